package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/altplay/internal/media"
	"github.com/desertthunder/altplay/internal/models"
)

// SinkCall records one call made on a [FakeSink].
type SinkCall struct {
	Op     string
	Source media.Source
	Pos    time.Duration
}

// FakeSink is a [media.Sink] driven by the test through [FakeSink.Emit].
type FakeSink struct {
	mu      sync.Mutex
	calls   []SinkCall
	src     media.Source
	loaded  bool
	playing bool
	pos     time.Duration
	volume  float64
	events  chan media.Event

	// PlayErr, when set, is returned by Play for the loaded source.
	PlayErr func(media.Source) error
}

func NewFakeSink() *FakeSink {
	return &FakeSink{events: make(chan media.Event, 16), volume: 1}
}

func (s *FakeSink) record(c SinkCall) {
	s.calls = append(s.calls, c)
}

func (s *FakeSink) Load(src media.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(SinkCall{Op: "load", Source: src})
	s.src, s.loaded, s.playing, s.pos = src, true, false, 0
	return nil
}

func (s *FakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(SinkCall{Op: "play", Source: s.src})
	if !s.loaded {
		return media.ErrNoSource
	}
	if s.PlayErr != nil {
		if err := s.PlayErr(s.src); err != nil {
			return err
		}
	}
	s.playing = true
	return nil
}

func (s *FakeSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(SinkCall{Op: "pause", Source: s.src})
	s.playing = false
	return nil
}

func (s *FakeSink) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(SinkCall{Op: "seek", Source: s.src, Pos: pos})
	if !s.loaded {
		return media.ErrNoSource
	}
	s.pos = pos
	return nil
}

func (s *FakeSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(SinkCall{Op: "stop"})
	s.src, s.loaded, s.playing, s.pos = media.Source{}, false, false, 0
	return nil
}

func (s *FakeSink) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

func (s *FakeSink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *FakeSink) Events() <-chan media.Event { return s.events }

func (s *FakeSink) Close() error { return nil }

// Emit reports an event for the loaded source at pos.
func (s *FakeSink) Emit(kind media.EventKind, pos time.Duration, err error) {
	s.mu.Lock()
	tag := s.src.Tag
	s.pos = pos
	if kind != media.EventProgress {
		s.playing = false
	}
	s.mu.Unlock()
	s.events <- media.Event{Kind: kind, Tag: tag, Position: pos, Err: err}
}

// Source returns the loaded source.
func (s *FakeSink) Source() (media.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src, s.loaded
}

func (s *FakeSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *FakeSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Count returns how many times op was called.
func (s *FakeSink) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Loads lists the URLs passed to Load, in order.
func (s *FakeSink) Loads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for _, c := range s.calls {
		if c.Op == "load" {
			urls = append(urls, c.Source.URL)
		}
	}
	return urls
}

// ResolveFunc answers the n-th (1-based) resolution of a track.
type ResolveFunc func(ctx context.Context, track models.TrackRef, n int) (*models.StreamDescriptor, error)

// FakeResolver resolves every track to https://stream.test/<key> unless Fn says otherwise.
// Hold makes resolutions of a key block until Release.
type FakeResolver struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
	gates map[string]chan struct{}

	Fn ResolveFunc
}

func NewFakeResolver(fn ResolveFunc) *FakeResolver {
	return &FakeResolver{calls: make(map[string]int), gates: make(map[string]chan struct{}), Fn: fn}
}

// StreamFor is the descriptor returned by default for track.
func StreamFor(track models.TrackRef) *models.StreamDescriptor {
	return &models.StreamDescriptor{
		URL:      fmt.Sprintf("https://stream.test/%s", track.Key()),
		TrackID:  track.ID,
		Title:    track.Title,
		Duration: 180,
		Provider: "fake",
	}
}

func (r *FakeResolver) Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error) {
	key := track.Key()
	r.mu.Lock()
	r.calls[key]++
	n := r.calls[key]
	r.order = append(r.order, key)
	gate := r.gates[key]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.Fn != nil {
		return r.Fn(ctx, track, n)
	}
	return StreamFor(track), nil
}

// Hold blocks future resolutions of key.
func (r *FakeResolver) Hold(key string) {
	r.mu.Lock()
	r.gates[key] = make(chan struct{})
	r.mu.Unlock()
}

// Release unblocks resolutions of key.
func (r *FakeResolver) Release(key string) {
	r.mu.Lock()
	if g, ok := r.gates[key]; ok {
		close(g)
		delete(r.gates, key)
	}
	r.mu.Unlock()
}

// Calls returns how many times key was resolved.
func (r *FakeResolver) Calls(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

// Total returns the number of resolutions across all keys.
func (r *FakeResolver) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
