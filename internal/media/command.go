package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
)

// ArgsFunc builds the player arguments for src starting at start with volume in [0, 1].
type ArgsFunc func(src Source, start time.Duration, volume float64) []string

// MPVArgs plays audio only, quietly, from start.
func MPVArgs(src Source, start time.Duration, volume float64) []string {
	return []string{
		"--no-video",
		"--no-terminal",
		"--start=" + strconv.FormatFloat(start.Seconds(), 'f', 1, 64),
		"--volume=" + strconv.Itoa(int(volume*100)),
		src.URL,
	}
}

// FFPlayArgs plays audio only without a window and exits at the end.
func FFPlayArgs(src Source, start time.Duration, volume float64) []string {
	return []string{
		"-nodisp", "-autoexit", "-loglevel", "error",
		"-ss", strconv.FormatFloat(start.Seconds(), 'f', 1, 64),
		"-volume", strconv.Itoa(int(volume * 100)),
		src.URL,
	}
}

// ArgsFor picks the argument builder matching the player binary name.
func ArgsFor(command string) ArgsFunc {
	switch filepath.Base(command) {
	case "ffplay", "ffplay.exe":
		return FFPlayArgs
	default:
		return MPVArgs
	}
}

// CommandSink runs one external player process per play span.
//
// Pausing kills the process and remembers the position; Play starts a new
// process at that position. Position is derived from wall time since start.
type CommandSink struct {
	command string
	args    ArgsFunc
	tick    time.Duration
	logger  *log.Logger

	mu        sync.Mutex
	src       Source
	loaded    bool
	volume    float64
	offset    time.Duration // position when the current process started
	startedAt time.Time
	cancel    context.CancelFunc
	proc      chan struct{} // closed when the current process is reaped
	events    chan Event
}

// NewCommandSink creates a sink that runs command for each play span.
func NewCommandSink(command string, args ArgsFunc, logger *log.Logger) *CommandSink {
	if args == nil {
		args = ArgsFor(command)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandSink{
		command: command,
		args:    args,
		tick:    DefaultTick,
		logger:  shared.WithLogger(logger, "component", "sink", "command", filepath.Base(command)),
		volume:  1,
		events:  make(chan Event, 64),
	}
}

func (s *CommandSink) Events() <-chan Event { return s.events }

func (s *CommandSink) Load(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kill()
	s.src, s.loaded, s.offset = src, true, 0
	return nil
}

func (s *CommandSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNoSource
	}
	if s.cancel != nil {
		return nil
	}
	return s.start()
}

func (s *CommandSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = s.position()
	s.kill()
	return nil
}

func (s *CommandSink) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNoSource
	}

	running := s.cancel != nil
	s.kill()
	s.offset = clampPosition(pos, s.src.Duration)
	if running {
		return s.start()
	}
	return nil
}

func (s *CommandSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kill()
	s.loaded, s.offset, s.src = false, 0, Source{}
	return nil
}

// SetVolume applies to the next process start; a running process keeps its volume.
func (s *CommandSink) SetVolume(v float64) error {
	s.mu.Lock()
	s.volume = clampVolume(v)
	s.mu.Unlock()
	return nil
}

func (s *CommandSink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position()
}

func (s *CommandSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kill()
	return nil
}

func (s *CommandSink) position() time.Duration {
	if s.cancel == nil {
		return s.offset
	}
	return clampPosition(s.offset+time.Since(s.startedAt), s.src.Duration)
}

// start launches the player. Callers hold mu.
func (s *CommandSink) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.command, s.args(s.src, s.offset, s.volume)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", s.command, err)
	}

	done := make(chan struct{})
	s.cancel, s.proc, s.startedAt = cancel, done, time.Now()
	s.logger.Debug("player started", "tag", s.src.Tag, "offset", s.offset)

	go s.progress(done, s.src.Tag)
	go s.wait(ctx, cmd, done, s.src.Tag)
	return nil
}

// kill stops the running process and waits for it to be reaped. Callers hold mu.
func (s *CommandSink) kill() {
	if s.cancel == nil {
		return
	}
	cancel, done := s.cancel, s.proc
	s.cancel, s.proc = nil, nil
	cancel()
	s.mu.Unlock()
	<-done
	s.mu.Lock()
}

func (s *CommandSink) wait(ctx context.Context, cmd *exec.Cmd, done chan struct{}, tag uint64) {
	err := cmd.Wait()
	killed := ctx.Err() != nil
	close(done)
	if killed {
		return
	}

	s.mu.Lock()
	pos := s.position()
	if s.proc == nil || s.proc == done {
		s.cancel, s.proc, s.offset = nil, nil, pos
	}
	s.mu.Unlock()

	ev := Event{Kind: EventEnded, Tag: tag, Position: pos}
	var exitErr *exec.ExitError
	if err != nil {
		if errors.As(err, &exitErr) {
			err = fmt.Errorf("exit status %d", exitErr.ExitCode())
		}
		ev = Event{Kind: EventError, Tag: tag, Position: pos, Err: fmt.Errorf("%w: %w", shared.ErrPlaybackDecode, err)}
	}
	s.logger.Debug("player exited", "tag", tag, "event", ev.Kind)
	s.events <- ev
}

func (s *CommandSink) progress(done chan struct{}, tag uint64) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			select {
			case s.events <- Event{Kind: EventProgress, Tag: tag, Position: s.Position()}:
			default:
			}
		}
	}
}
