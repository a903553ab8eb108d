// Package tasks runs library operations against the music catalog with real-time progress reporting.
//
// # Operations
//
// [LibraryEngine] exposes:
//
//  1. [LibraryEngine.Load] : playlist (by id or name) or saved tracks into a [formatter.Export]
//  2. [LibraryEngine.ResolveAll] : resolve every track of an export to a stream
//     - Bounded worker pool (default 4 workers)
//     - golang.org/x/time/rate limiter on dispatch, so public stream providers are not hammered
//     - Per-track failures are recorded on the entry and counted
//  3. [LibraryEngine.BulkExport] : load, optionally resolve and write several playlists,
//     then write export_manifest.json
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends never block: when the
// channel is full the update is dropped.
package tasks
