package models

import (
	"fmt"
	"strings"
	"time"
)

// Origin records where a [TrackRef] came from, which decides how it is resolved.
type Origin string

const (
	// OriginCatalog tracks come from the authenticated music catalog; they resolve through search.
	OriginCatalog Origin = "catalog"
	// OriginSearch tracks are provider search hits; their ID is a provider video id.
	OriginSearch Origin = "search"
)

// TrackRef references a track in the queue. It is a value and never mutated once built.
type TrackRef struct {
	ID       string `json:"id"`
	Origin   Origin `json:"origin"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Artwork  string `json:"artwork,omitempty"`
	Duration int    `json:"duration"`
}

// Key identifies the track for staleness checks: the id, or the title when the id is empty.
func (t TrackRef) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Title
}

// ResolveQuery is the free-text query used to find a playable stream for a catalog track.
func (t TrackRef) ResolveQuery() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.Title, t.Artist} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "audio")
	return strings.Join(parts, " ")
}

// IsZero reports whether t references nothing.
func (t TrackRef) IsZero() bool {
	return t.ID == "" && t.Title == ""
}

func (t TrackRef) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Title, t.Artist)
}

// TrackFromResult converts a search hit into a search-origin [TrackRef].
func TrackFromResult(r SearchResult) TrackRef {
	return TrackRef{
		ID:       r.ID,
		Origin:   OriginSearch,
		Title:    r.Title,
		Artist:   r.Uploader,
		Artwork:  r.Thumbnail,
		Duration: r.Duration,
	}
}

// SearchResult is one search hit. Duration is in seconds.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
}

// StreamDescriptor is a resolved playable stream. Upstream URLs expire but no expiry is tracked.
type StreamDescriptor struct {
	URL        string    `json:"url"`
	Provider   string    `json:"provider,omitempty"`
	Bitrate    int       `json:"bitrate,omitempty"`
	TrackID    string    `json:"id,omitempty"`
	Title      string    `json:"title"`
	Uploader   string    `json:"uploader"`
	Thumbnail  string    `json:"thumbnail"`
	Duration   int       `json:"duration"`
	ResolvedAt time.Time `json:"-"`
}

// Length returns the duration as a [time.Duration].
func (d StreamDescriptor) Length() time.Duration {
	return time.Duration(d.Duration) * time.Second
}

// RepeatMode controls what happens at queue boundaries and when a track ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// Next cycles off -> all -> one -> off.
func (m RepeatMode) Next() RepeatMode {
	return (m + 1) % 3
}

// ParseRepeatMode accepts "off", "all" or "one" (case-insensitive).
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// QueueState is the persisted shape of the play queue.
type QueueState struct {
	Tracks  []TrackRef `json:"tracks"`
	Index   int        `json:"index"`
	Shuffle bool       `json:"shuffle"`
	Repeat  RepeatMode `json:"repeat"`
}

// PositionCheckpoint is the last saved position of a track.
type PositionCheckpoint struct {
	TrackID  string        `json:"track_id"`
	Position time.Duration `json:"position"`
	SavedAt  time.Time     `json:"saved_at"`
}

// Keys of the client-local player state. Each is read and written independently.
const (
	KeyQueue        = "queue"
	KeyCurrentIndex = "current_index"
	KeyCurrentTrack = "current_track"
	KeyShuffle      = "shuffle"
	KeyRepeat       = "repeat"
	KeyVolume       = "volume"
	KeyCheckpoint   = "checkpoint"
	KeySession      = "session"
)

// StateKeys lists every player key cleared on logout.
var StateKeys = []string{
	KeyQueue, KeyCurrentIndex, KeyCurrentTrack, KeyShuffle, KeyRepeat, KeyVolume, KeyCheckpoint, KeySession,
}

// StateStore is a string key/value store for client-local state.
type StateStore interface {
	Get(key string) (value string, ok bool, err error) // Get returns the value for key and whether it exists
	Set(key, value string) error                       // Set creates or replaces the value for key
	Delete(key string) error                           // Delete removes key; missing keys are not an error
}
