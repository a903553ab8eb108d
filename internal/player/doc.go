// Package player implements the client playback engine.
//
// An [Engine] owns the play queue, the [media.Sink] and the load lifecycle of
// the current track. All of its state is mutated on a single event loop
// goroutine started by [Engine.Run]; intents such as [Engine.Next] or
// [Engine.Toggle] are posted to that loop and return once applied. Observers
// read immutable [Snapshot] values through [Engine.Snapshot] or
// [Engine.Subscribe].
//
// # Loading
//
// Selecting a track bumps a load generation and records the track key. A
// resolution that completes for an older generation or a different key is
// discarded without touching the sink. The load started by [Engine.Restore]
// only cues the stream and seeks to the saved checkpoint of that track.
//
// # Failures
//
// [Classify] sorts resolution and media errors into a [FailureClass].
// Extraction failures are retried once after a delay without a message; auth
// failures call the configured handler and show nothing; everything else sets
// a message. Every state accepts Next, Prev and Select.
//
// # Prefetch
//
// After a dwell time in Playing, the upcoming track is resolved in the
// background. The next auto-advance uses the cached descriptor; if the sink
// rejects it the track is resolved again once before failing.
package player
