package media

import (
	"errors"
	"time"
)

var (
	ErrNoSource   = errors.New("no source loaded") // Play and Seek before Load
	ErrSinkClosed = errors.New("sink closed")
)

// Source is a playable stream.
type Source struct {
	URL      string
	Duration time.Duration // 0 when unknown
	Tag      uint64
}

// EventKind enumerates sink events.
type EventKind int

const (
	EventProgress EventKind = iota
	EventEnded
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is reported by a sink while a source is loaded.
type Event struct {
	Kind     EventKind
	Tag      uint64
	Position time.Duration
	Err      error // set for EventError; wraps shared.ErrPlaybackDecode
}

// Sink is the single shared playback primitive. Only the engine calls it.
type Sink interface {
	Load(src Source) error // replaces the current source, paused at zero
	Play() error
	Pause() error
	Seek(pos time.Duration) error
	Stop() error // unloads the source
	SetVolume(v float64) error
	Position() time.Duration
	Events() <-chan Event
	Close() error
}

// clampVolume keeps v within [0, 1].
func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

func clampPosition(pos, duration time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if duration > 0 && pos > duration {
		return duration
	}
	return pos
}
