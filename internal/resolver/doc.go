// Package resolver turns track ids and free text into playable streams by falling back across the
// ordered providers of a [providers.Registry].
//
// [StreamResolver] maps an id to a [models.StreamDescriptor], [SearchResolver] maps a query to ranked
// [models.SearchResult] values, and [Composite] chains the two. [Pipeline] routes a [models.TrackRef]
// to the right one and is what the playback engine and the backend API depend on.
//
// Providers are always tried strictly in order, each at most once per call, each under its own timeout.
// Individual provider failures are logged and never returned; only exhaustion is.
package resolver
