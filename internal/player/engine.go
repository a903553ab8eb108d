package player

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/media"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
)

const (
	DefaultCheckpointInterval = 5 * time.Second
	DefaultPrefetchDwell      = 30 * time.Second
	DefaultRetryDelay         = 2 * time.Second
	DefaultResolveTimeout     = 60 * time.Second
)

// Resolver turns a queued track into a playable stream.
//
// Implemented by the local resolver pipeline and by the backend client.
type Resolver interface {
	Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error)
}

// Options configures an [Engine]. Resolver and Sink are required.
type Options struct {
	Resolver           Resolver
	Sink               media.Sink
	Store              models.StateStore // nil keeps nothing
	Logger             *log.Logger
	CheckpointInterval time.Duration
	PrefetchDwell      time.Duration
	RetryDelay         time.Duration
	ResolveTimeout     time.Duration
	Volume             float64 // initial volume when none is persisted; 0 means 1
	Rand               func(n int) int
	Now                func() time.Time
	OnAuthRequired     func()
}

// OptionsFromConfig fills the timing fields from cfg.
func OptionsFromConfig(cfg shared.PlayerConfig) Options {
	return Options{
		CheckpointInterval: cfg.CheckpointInterval,
		PrefetchDwell:      cfg.PrefetchDwell,
		RetryDelay:         cfg.RetryDelay,
		ResolveTimeout:     cfg.ResolveTimeout,
		Volume:             cfg.Volume,
	}
}

type loadResult struct {
	gen  uint64
	key  string
	desc *models.StreamDescriptor
	err  error
}

// prefetchSlot caches the upcoming track's descriptor.
type prefetchSlot struct {
	gen     uint64 // generation that started the prefetch
	key     string
	desc    *models.StreamDescriptor
	pending bool
}

// Engine is the playback state machine. Create with [NewEngine] and start with [Engine.Run].
type Engine struct {
	opts     Options
	resolver Resolver
	sink     media.Sink
	store    *Store
	logger   *log.Logger

	intents   chan func()
	results   chan loadResult
	prefetchc chan loadResult
	stopped   chan struct{}
	running   atomic.Bool
	snap      atomic.Pointer[Snapshot]

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}

	// Everything below is owned by the loop goroutine.
	ctx      context.Context
	queue    Queue
	shuffle  bool
	repeat   models.RepeatMode
	volume   float64
	state    State
	message  string
	gen      uint64
	wantKey  string
	stream   *models.StreamDescriptor
	cached   bool // stream came from the prefetch slot
	position time.Duration
	duration time.Duration
	cueOnly  bool
	resume   *models.PositionCheckpoint
	retried  bool
	played   time.Duration // play time accumulated before playAt
	playAt   time.Time
	next     struct {
		index  int
		ok     bool
		picked bool
	}
	prefetch prefetchSlot
}

// NewEngine creates an idle engine.
func NewEngine(opts Options) *Engine {
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	if opts.PrefetchDwell <= 0 {
		opts.PrefetchDwell = DefaultPrefetchDwell
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	if opts.Volume <= 0 {
		opts.Volume = 1
	}
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.OnAuthRequired == nil {
		opts.OnAuthRequired = func() {}
	}

	logger := shared.WithLogger(opts.Logger, "component", "player")
	e := &Engine{
		opts:      opts,
		resolver:  opts.Resolver,
		sink:      opts.Sink,
		store:     NewStore(opts.Store, logger),
		logger:    logger,
		intents:   make(chan func()),
		results:   make(chan loadResult),
		prefetchc: make(chan loadResult),
		stopped:   make(chan struct{}),
		subs:      make(map[chan Snapshot]struct{}),
		ctx:       context.Background(),
		volume:    min(opts.Volume, 1),
	}
	e.publish()
	return e
}

// Run drives the event loop until ctx is done. It may be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	e.ctx = ctx

	ticker := time.NewTicker(e.opts.CheckpointInterval)
	defer ticker.Stop()
	defer e.shutdown()

	events := e.sink.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-e.intents:
			fn()
		case res := <-e.results:
			e.applyResult(res)
		case res := <-e.prefetchc:
			e.applyPrefetch(res)
		case ev := <-events:
			e.handleEvent(ev)
		case <-ticker.C:
			e.tick()
		}
		e.publish()
	}
}

func (e *Engine) shutdown() {
	if e.state == StatePlaying {
		e.position = e.sink.Position()
		e.saveCheckpoint()
	}
	if err := e.sink.Pause(); err != nil {
		e.logger.Debug("pause on shutdown failed", "error", err)
	}
	close(e.stopped)

	e.subMu.Lock()
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
	e.subMu.Unlock()
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Slow readers only see the newest value. The channel is closed when
// the engine stops or cancel is called.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- e.Snapshot()

	e.subMu.Lock()
	select {
	case <-e.stopped:
		close(ch)
	default:
		e.subs[ch] = struct{}{}
	}
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) publish() {
	s := &Snapshot{
		State:      e.state,
		Queue:      e.queue.Tracks(),
		Index:      e.queue.Index(),
		Position:   e.position,
		Duration:   e.duration,
		Shuffle:    e.shuffle,
		Repeat:     e.repeat,
		Volume:     e.volume,
		Message:    e.message,
		Generation: e.gen,
	}
	s.Track, _ = e.queue.Current()
	if e.stream != nil {
		d := *e.stream
		s.Stream = &d
	}
	if e.prefetch.desc != nil {
		s.Prefetched = e.prefetch.key
	}
	e.snap.Store(s)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- *s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- *s:
			default:
			}
		}
	}
}

// do runs fn on the loop and waits until its effect is published.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	apply := func() {
		err := fn()
		e.publish()
		errc <- err
	}
	select {
	case e.intents <- apply:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-errc
}

// post queues fn on the loop without waiting. Used by timers.
func (e *Engine) post(fn func()) {
	select {
	case e.intents <- fn:
	case <-e.stopped:
	}
}

// Restore reads the persisted queue, flags, volume and checkpoint and cues the stored track.
func (e *Engine) Restore(ctx context.Context) error {
	return e.do(ctx, func() error {
		p, err := e.store.Load()
		if err != nil {
			e.logger.Warn("some player state could not be restored", "error", err)
		}

		tracks, index := p.Queue, p.Index
		if len(tracks) == 0 && !p.Track.IsZero() {
			tracks, index = []models.TrackRef{p.Track}, 0
		}
		e.queue = NewQueue(tracks, index)
		e.shuffle, e.repeat = p.Shuffle, p.Repeat
		if p.HasVolume {
			e.volume = min(max(p.Volume, 0), 1)
		}
		e.invalidateNext()

		if e.queue.IsEmpty() {
			e.state = StateIdle
			return nil
		}
		e.resume = p.Checkpoint
		e.cueOnly = true
		e.logger.Info("restoring session", "tracks", e.queue.Len(), "index", e.queue.Index())
		e.load(false)
		return nil
	})
}

// SetQueue replaces the queue and starts playing tracks[start].
func (e *Engine) SetQueue(ctx context.Context, tracks []models.TrackRef, start int) error {
	return e.do(ctx, func() error {
		e.queue = NewQueue(tracks, start)
		e.invalidateNext()
		e.store.warn("queue", e.store.SaveQueue(e.queue.Tracks()))
		e.cueOnly = false

		if e.queue.IsEmpty() {
			e.unload()
			return nil
		}
		e.load(false)
		return nil
	})
}

// Enqueue appends tracks. An empty queue starts playing the first appended track.
func (e *Engine) Enqueue(ctx context.Context, tracks ...models.TrackRef) error {
	return e.do(ctx, func() error {
		if len(tracks) == 0 {
			return nil
		}
		wasEmpty := e.queue.IsEmpty()
		e.queue.Append(tracks...)
		e.invalidateNext()
		e.store.warn("queue", e.store.SaveQueue(e.queue.Tracks()))
		if wasEmpty {
			e.cueOnly = false
			e.load(false)
		}
		return nil
	})
}

// Select plays the track at index.
func (e *Engine) Select(ctx context.Context, index int) error {
	return e.do(ctx, func() error {
		if !e.queue.Seek(index) {
			return fmt.Errorf("%w: index %d out of range", shared.ErrInvalidInput, index)
		}
		e.cueOnly = false
		e.load(false)
		return nil
	})
}

// Remove drops the track at index. Removing the current track loads its successor.
func (e *Engine) Remove(ctx context.Context, index int) error {
	return e.do(ctx, func() error {
		current := index == e.queue.Index()
		if _, ok := e.queue.RemoveAt(index); !ok {
			return fmt.Errorf("%w: index %d out of range", shared.ErrInvalidInput, index)
		}
		e.invalidateNext()
		e.store.warn("queue", e.store.SaveQueue(e.queue.Tracks()))
		e.store.warn("index", e.store.SaveIndex(e.queue.Index()))

		switch {
		case e.queue.IsEmpty():
			e.unload()
		case current:
			e.cueOnly = false
			e.load(false)
		}
		return nil
	})
}

// Next moves forward. At the end with repeat off nothing changes.
func (e *Engine) Next(ctx context.Context) error {
	return e.do(ctx, func() error {
		idx, ok := e.upcoming()
		if !ok {
			return nil
		}
		e.queue.Seek(idx)
		e.cueOnly = false
		e.load(false)
		return nil
	})
}

// Prev moves back. At the start with repeat off nothing changes.
func (e *Engine) Prev(ctx context.Context) error {
	return e.do(ctx, func() error {
		idx, ok := e.queue.PrevIndex(e.repeat)
		if !ok {
			return nil
		}
		e.queue.Seek(idx)
		e.cueOnly = false
		e.load(false)
		return nil
	})
}

// Toggle pauses while playing, resumes while paused and reloads after an error.
func (e *Engine) Toggle(ctx context.Context) error {
	return e.do(ctx, func() error {
		switch e.state {
		case StatePlaying:
			e.pause()
		case StatePaused:
			e.resumePlayback()
		case StateError, StateIdle:
			if !e.queue.IsEmpty() {
				e.cueOnly = false
				e.load(false)
			}
		}
		return nil
	})
}

// Play resumes a paused track.
func (e *Engine) Play(ctx context.Context) error {
	return e.do(ctx, func() error {
		if e.state == StatePaused {
			e.resumePlayback()
		}
		return nil
	})
}

// Pause pauses a playing track and saves its position.
func (e *Engine) Pause(ctx context.Context) error {
	return e.do(ctx, func() error {
		if e.state == StatePlaying {
			e.pause()
		}
		return nil
	})
}

// Seek moves the sink position. It does nothing until a stream is loaded.
func (e *Engine) Seek(ctx context.Context, pos time.Duration) error {
	return e.do(ctx, func() error {
		if e.stream == nil {
			return nil
		}
		if err := e.sink.Seek(pos); err != nil {
			return err
		}
		e.position = e.sink.Position()
		return nil
	})
}

func (e *Engine) SetShuffle(ctx context.Context, on bool) error {
	return e.do(ctx, func() error {
		e.shuffle = on
		e.invalidateNext()
		e.store.warn("shuffle", e.store.SaveShuffle(on))
		return nil
	})
}

func (e *Engine) SetRepeat(ctx context.Context, mode models.RepeatMode) error {
	return e.do(ctx, func() error {
		e.repeat = mode
		e.invalidateNext()
		e.store.warn("repeat", e.store.SaveRepeat(mode))
		return nil
	})
}

// SetVolume sets the volume in [0, 1]; it also applies to every later source.
func (e *Engine) SetVolume(ctx context.Context, v float64) error {
	return e.do(ctx, func() error {
		e.volume = min(max(v, 0), 1)
		e.store.warn("volume", e.store.SaveVolume(e.volume))
		return e.sink.SetVolume(e.volume)
	})
}

// Reset stops playback, empties the queue and clears persisted player state.
func (e *Engine) Reset(ctx context.Context) error {
	return e.do(ctx, func() error {
		e.queue = NewQueue(nil, 0)
		e.shuffle, e.repeat = false, models.RepeatOff
		e.invalidateNext()
		e.unload()
		return e.store.Clear()
	})
}

// load starts resolving the current track under a new generation.
func (e *Engine) load(useCache bool) {
	track, ok := e.queue.Current()
	if !ok {
		e.unload()
		return
	}

	e.gen++
	gen, key := e.gen, track.Key()
	e.wantKey = key
	e.position, e.duration = 0, time.Duration(track.Duration)*time.Second
	e.stream, e.cached = nil, false
	e.state, e.message = StateLoading, ""
	e.retried = false
	e.played = 0
	e.next.picked = false
	if err := e.sink.Stop(); err != nil {
		e.logger.Debug("sink stop failed", "error", err)
	}

	e.store.warn("index", e.store.SaveIndex(e.queue.Index()))
	e.store.warn("track", e.store.SaveTrack(track))

	if useCache && e.prefetch.desc != nil && e.prefetch.key == key {
		desc := e.prefetch.desc
		e.prefetch = prefetchSlot{}
		e.logger.Debug("using prefetched stream", "track", track.String())
		e.apply(desc, true)
		return
	}
	e.prefetch = prefetchSlot{}
	e.resolve(gen, track, e.results)
}

func (e *Engine) resolve(gen uint64, track models.TrackRef, out chan<- loadResult) {
	ctx, timeout, key := e.ctx, e.opts.ResolveTimeout, track.Key()
	e.logger.Debug("resolving", "track", track.String(), "gen", gen)

	go func() {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		desc, err := e.resolver.Resolve(rctx, track)
		select {
		case out <- loadResult{gen: gen, key: key, desc: desc, err: err}:
		case <-e.stopped:
		}
	}()
}

func (e *Engine) applyResult(res loadResult) {
	if res.gen != e.gen || res.key != e.wantKey {
		e.logger.Debug("discarding stale resolution", "gen", res.gen, "current", e.gen)
		return
	}
	if res.err != nil {
		e.fail(res.err)
		return
	}
	e.apply(res.desc, false)
}

// apply hands desc to the sink and starts playback unless the load is cue-only.
func (e *Engine) apply(desc *models.StreamDescriptor, cached bool) {
	track, _ := e.queue.Current()
	e.stream, e.cached = desc, cached
	if desc.Duration > 0 {
		e.duration = desc.Length()
	}

	src := media.Source{URL: desc.URL, Duration: e.duration, Tag: e.gen}
	if err := e.sink.Load(src); err != nil {
		e.mediaFailure(err)
		return
	}
	if err := e.sink.SetVolume(e.volume); err != nil {
		e.logger.Debug("set volume failed", "error", err)
	}

	if e.cueOnly {
		e.cueOnly = false
		if cp := e.resume; cp != nil && cp.TrackID == track.Key() && cp.Position > 0 {
			if err := e.sink.Seek(cp.Position); err == nil {
				e.position = e.sink.Position()
			}
		}
		e.resume = nil
		e.state = StatePaused
		e.logger.Info("cued", "track", track.String(), "position", e.position)
		return
	}
	e.resume = nil

	if err := e.sink.Play(); err != nil {
		e.mediaFailure(err)
		return
	}
	e.enterPlaying()
	e.logger.Info("playing", "track", track.String(), "provider", desc.Provider)
}

func (e *Engine) enterPlaying() {
	e.state = StatePlaying
	e.message = ""
	e.playAt = e.opts.Now()
	e.maybePrefetch()
}

func (e *Engine) pause() {
	if err := e.sink.Pause(); err != nil {
		e.logger.Debug("sink pause failed", "error", err)
	}
	e.played += e.opts.Now().Sub(e.playAt)
	e.position = e.sink.Position()
	e.state = StatePaused
	e.saveCheckpoint()
}

func (e *Engine) resumePlayback() {
	if e.stream == nil {
		e.load(false)
		return
	}
	if e.duration > 0 && e.position >= e.duration {
		if err := e.sink.Seek(0); err == nil {
			e.position = 0
		}
	}
	if err := e.sink.Play(); err != nil {
		e.mediaFailure(err)
		return
	}
	e.enterPlaying()
}

func (e *Engine) unload() {
	e.gen++
	e.wantKey = ""
	e.stream, e.cached = nil, false
	e.position, e.duration = 0, 0
	e.state, e.message = StateIdle, ""
	e.prefetch = prefetchSlot{}
	if err := e.sink.Stop(); err != nil {
		e.logger.Debug("sink stop failed", "error", err)
	}
}

// fail records a load failure and schedules the one silent extraction retry.
func (e *Engine) fail(err error) {
	class := Classify(err)
	track, _ := e.queue.Current()
	e.state = StateError
	e.stream = nil
	e.logger.Warn("load failed", "track", track.String(), "class", class, "error", err)

	if class == FailureExtraction && !e.retried {
		e.retried = true
		e.message = ""
		e.scheduleRetry(e.gen, e.wantKey)
		return
	}

	e.message = class.Message()
	if class == FailureAuth {
		e.opts.OnAuthRequired()
	}
}

func (e *Engine) scheduleRetry(gen uint64, key string) {
	time.AfterFunc(e.opts.RetryDelay, func() {
		e.post(func() {
			if e.gen != gen || e.wantKey != key || e.state != StateError {
				return
			}
			track, ok := e.queue.Current()
			if !ok {
				return
			}
			e.logger.Info("retrying stream resolution", "track", track.String())
			e.gen++
			e.wantKey = track.Key()
			e.state = StateLoading
			e.resolve(e.gen, track, e.results)
		})
	})
}

// mediaFailure handles a sink rejection. A cached descriptor is re-resolved once.
func (e *Engine) mediaFailure(err error) {
	if e.cached {
		e.logger.Warn("prefetched stream rejected, resolving again", "error", err)
		e.load(false)
		return
	}
	e.fail(fmt.Errorf("%w: %w", shared.ErrPlaybackDecode, err))
}

func (e *Engine) handleEvent(ev media.Event) {
	if ev.Tag != e.gen || e.stream == nil {
		return
	}

	switch ev.Kind {
	case media.EventProgress:
		e.position = ev.Position
		e.maybePrefetch()
	case media.EventError:
		e.position = ev.Position
		e.mediaFailure(ev.Err)
	case media.EventEnded:
		if e.state != StatePlaying {
			return
		}
		e.ended()
	}
}

// ended handles the natural end of the current track.
func (e *Engine) ended() {
	e.store.warn("checkpoint", e.store.DeleteCheckpoint())

	if e.repeat == models.RepeatOne {
		src := media.Source{URL: e.stream.URL, Duration: e.duration, Tag: e.gen}
		err := e.sink.Load(src)
		if err == nil {
			err = e.sink.Play()
		}
		if err != nil {
			e.mediaFailure(err)
			return
		}
		e.position, e.played = 0, 0
		e.enterPlaying()
		return
	}

	idx, ok := e.upcoming()
	if !ok {
		e.played += e.opts.Now().Sub(e.playAt)
		e.position = e.duration
		e.state = StatePaused
		return
	}
	e.queue.Seek(idx)
	e.load(true)
}

func (e *Engine) tick() {
	if e.state != StatePlaying {
		return
	}
	e.position = e.sink.Position()
	e.saveCheckpoint()
	e.maybePrefetch()
}

func (e *Engine) saveCheckpoint() {
	track, ok := e.queue.Current()
	if !ok || e.stream == nil {
		return
	}
	cp := models.PositionCheckpoint{TrackID: track.Key(), Position: e.position, SavedAt: e.opts.Now()}
	e.store.warn("checkpoint", e.store.SaveCheckpoint(cp))
}

// upcoming returns the index auto-advance and Next move to, picked once per load.
func (e *Engine) upcoming() (int, bool) {
	if !e.next.picked {
		e.next.index, e.next.ok = e.queue.NextIndex(e.repeat, e.shuffle, e.opts.Rand)
		e.next.picked = true
	}
	return e.next.index, e.next.ok
}

// invalidateNext forgets the picked upcoming index and anything prefetched for it.
func (e *Engine) invalidateNext() {
	e.next.picked = false
	e.prefetch = prefetchSlot{}
}

func (e *Engine) playedFor() time.Duration {
	if e.state != StatePlaying {
		return e.played
	}
	return e.played + e.opts.Now().Sub(e.playAt)
}

func (e *Engine) maybePrefetch() {
	if e.state != StatePlaying || e.repeat == models.RepeatOne {
		return
	}
	if e.prefetch.gen == e.gen && (e.prefetch.pending || e.prefetch.key != "") {
		return
	}
	if e.playedFor() < e.opts.PrefetchDwell {
		return
	}

	idx, ok := e.upcoming()
	if !ok {
		return
	}
	track, _ := e.queue.At(idx)
	if cur, _ := e.queue.Current(); track.Key() == cur.Key() {
		return
	}

	e.prefetch = prefetchSlot{gen: e.gen, key: track.Key(), pending: true}
	e.logger.Debug("prefetching", "track", track.String())
	e.resolve(e.gen, track, e.prefetchc)
}

func (e *Engine) applyPrefetch(res loadResult) {
	if !e.prefetch.pending || res.gen != e.prefetch.gen || res.key != e.prefetch.key {
		return
	}
	e.prefetch.pending = false
	if res.err != nil {
		e.logger.Debug("prefetch failed", "key", res.key, "error", res.err)
		return
	}
	e.prefetch.desc = res.desc
}
