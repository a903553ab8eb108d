// Package auth owns the bearer credential lifecycle for the authenticated music catalog.
//
// A [Session] caches an [oauth2.Token] and refreshes it through a [Refresher] when it is within
// [RefreshSkew] of expiry. Concurrent callers that observe a stale token share a single refresh
// (golang.org/x/sync/singleflight). A failed refresh is terminal: the session is cleared and logout
// listeners run, so callers must send the user back through login.
//
// Two refreshers exist: the backend client (GET /refresh-token) used by the player, and [OAuthRefresher],
// which talks to the catalog token endpoint directly and backs the server's /refresh-token route.
package auth
