package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/altplay/internal/shared"
)

const DefaultTick = 250 * time.Millisecond

// VirtualSink advances a position clock without producing audio.
//
// Failure lets callers mark sources as undecodable; Play on such a source
// reports an [EventError] instead of starting the clock.
type VirtualSink struct {
	mu      sync.Mutex
	src     Source
	loaded  bool
	playing bool
	pos     time.Duration
	volume  float64
	tick    time.Duration
	stop    chan struct{}
	events  chan Event
	closed  bool

	Failure func(Source) error
}

// NewVirtualSink creates a sink whose clock advances by tick per tick (0 uses [DefaultTick]).
func NewVirtualSink(tick time.Duration) *VirtualSink {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &VirtualSink{tick: tick, volume: 1, events: make(chan Event, 64)}
}

func (s *VirtualSink) Events() <-chan Event { return s.events }

func (s *VirtualSink) Load(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.src, s.loaded, s.pos = src, true, 0
	return nil
}

func (s *VirtualSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if !s.loaded {
		return ErrNoSource
	}
	if s.playing {
		return nil
	}

	if s.Failure != nil {
		if err := s.Failure(s.src); err != nil {
			ev := Event{Kind: EventError, Tag: s.src.Tag, Position: s.pos, Err: fmt.Errorf("%w: %w", shared.ErrPlaybackDecode, err)}
			go s.emit(ev, nil)
			return nil
		}
	}

	s.playing = true
	s.stop = make(chan struct{})
	go s.run(s.stop, s.src.Tag)
	return nil
}

func (s *VirtualSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	return nil
}

func (s *VirtualSink) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNoSource
	}
	s.pos = clampPosition(pos, s.src.Duration)
	return nil
}

func (s *VirtualSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.loaded, s.pos, s.src = false, 0, Source{}
	return nil
}

func (s *VirtualSink) SetVolume(v float64) error {
	s.mu.Lock()
	s.volume = clampVolume(v)
	s.mu.Unlock()
	return nil
}

// Volume returns the last applied volume.
func (s *VirtualSink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Playing reports whether the clock is running.
func (s *VirtualSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Current returns the loaded source.
func (s *VirtualSink) Current() (Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src, s.loaded
}

func (s *VirtualSink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *VirtualSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halt()
	s.closed = true
	return nil
}

// halt stops the clock goroutine. Callers hold mu.
func (s *VirtualSink) halt() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.playing = false
}

func (s *VirtualSink) run(stop chan struct{}, tag uint64) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.stop != stop {
			s.mu.Unlock()
			return
		}
		s.pos += s.tick
		ev := Event{Kind: EventProgress, Tag: tag, Position: s.pos}
		if d := s.src.Duration; d > 0 && s.pos >= d {
			s.pos = d
			ev = Event{Kind: EventEnded, Tag: tag, Position: d}
			s.halt()
		}
		s.mu.Unlock()

		if ev.Kind == EventEnded {
			s.emit(ev, nil)
			return
		}
		s.emit(ev, stop)
	}
}

// emit delivers ev. Progress events give up when stop closes; terminal events always wait.
func (s *VirtualSink) emit(ev Event, stop chan struct{}) {
	if stop == nil {
		s.events <- ev
		return
	}
	select {
	case s.events <- ev:
	case <-stop:
	}
}
