// Package services implements the HTTP clients that talk to credentialed APIs: the altplay backend and the
// authenticated music catalog.
//
// # Authenticated Requests
//
// [Client] attaches the session credential to every request:
//   - [DestinationCatalog] : Authorization: Bearer header
//   - [DestinationBackend] : ?token= query parameter
//
// A 401 triggers exactly one forced refresh and one retry built from the original request. A second 401,
// or a failed refresh, ends the session. A 429 is retried by github.com/hashicorp/go-retryablehttp,
// waiting for the Retry-After hint (2s when absent, at most 10s, at most 3 times); a persistent 429
// surfaces as [shared.RateLimitedError].
//
// # Backend Client
//
// [BackendService] wraps the backend's search and stream endpoints and implements the playback engine's
// resolver contract, so the player can resolve through a remote backend instead of the local pipeline.
// It also implements [auth.Refresher] against GET /refresh-token.
//
// # Catalog Client
//
// [CatalogService] reads the user's saved tracks and playlists from the catalog and maps them to
// catalog-origin [models.TrackRef] values that resolve through search.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrAuthRequired] : no session, refresh failed, or credential rejected twice
//   - [shared.ErrRateLimited] : 429 persisted after the bounded retries
//   - [shared.ErrAPIRequest] : any other non-2xx status
package services
