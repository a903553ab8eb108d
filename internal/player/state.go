package player

import (
	"time"

	"github.com/desertthunder/altplay/internal/models"
)

// State is the engine's playback state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is an immutable copy of the engine's observable state.
type Snapshot struct {
	State      State
	Queue      []models.TrackRef
	Index      int
	Track      models.TrackRef
	Stream     *models.StreamDescriptor
	Position   time.Duration
	Duration   time.Duration
	Shuffle    bool
	Repeat     models.RepeatMode
	Volume     float64
	Message    string
	Prefetched string // key of the cached upcoming descriptor, if any
	Generation uint64
}

// HasTrack reports whether a track is selected.
func (s Snapshot) HasTrack() bool {
	return !s.Track.IsZero()
}
