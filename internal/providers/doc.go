// Package providers adapts the upstream media providers (Invidious, Piped, a local yt-dlp binary) behind
// two small contracts, [StreamSource] and [SearchSource], and orders them in a [Registry].
//
// Each adapter is a tagged variant: it knows its own payload shape and normalizes it exactly once into
// [StreamSet] or [models.SearchResult] values. The shared decoder in normalize.go accepts both shapes
// the upstreams emit:
//
//   - a flat list of format entries carrying type/mediaType/mimeType/acodec, url and bitrate/abr
//   - a container object holding that list under streams, audioStreams, items, adaptiveFormats or formats
//
// Every HTTP adapter goes through [httpSource], which rate limits with [rate.Limiter] and guards the
// instance with a [gobreaker.CircuitBreaker]. Failures come back as [*ProviderError] so resolvers can log
// which instance failed and move on.
package providers
