// Package server is the backend HTTP API, built on gin.
//
// # Routes
//
//	GET /health
//	GET /search?q=            search results
//	GET /api/search?q=        search results with "m:ss" durations
//	GET /api/trending         results for a random trending query
//	GET /play/:id             stream descriptor (also /stream/:id and /api/stream/:id)
//	GET /search-and-play?q=   best hit resolved to a stream
//	GET /refresh-token        catalog token refresh
//	GET /login, /callback     catalog authorization code flow
//
// Errors are JSON objects with an "error" key. A missing query is 400, no
// results is 404 and exhausted providers are 502. See [StatusFor].
//
// # Login
//
// /login stores the caller's frontend_url under a random state and redirects to
// the catalog authorize page. /callback exchanges the code and redirects back
// to the frontend with token, refresh_token and expires_in in the query.
//
// The CLI uses [TokenReceiver] as that frontend: a one-shot local page that
// captures the token pair.
package server
