// Package media defines the playback primitive the player engine drives.
//
// A [Sink] holds at most one source at a time and reports progress, end of
// track and decode failures on its event channel. Each [Source] carries a Tag
// chosen by the caller; every [Event] echoes the tag of the source that
// produced it so late events from a replaced source can be told apart.
//
// Implementations:
//   - [VirtualSink] : clock-driven sink that plays nothing; used for headless runs and tests
//   - [CommandSink] : hands the stream URL to an external player process (mpv or ffplay)
package media
