// Package models defines the domain values shared by the resolution pipeline, the playback engine and the backend API.
//
// The package contains three categories of types:
//
// 1. Catalog and search values
//   - [TrackRef] : an immutable reference to something the user can play
//   - [SearchResult] : one ranked hit from a search provider
//
// 2. Resolution output
//   - [StreamDescriptor] : a playable media URL plus display metadata
//
// 3. Client-local player state
//   - [RepeatMode] : off / all / one
//   - [QueueState] : ordered tracks, current index and flags
//   - [PositionCheckpoint] : last known position of the current track
//
// The [StateStore] interface describes the key/value persistence the player writes through;
// keys are listed as constants so every implementation agrees on them.
package models
