package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/altplay/internal/media"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/player"
	"github.com/desertthunder/altplay/internal/repositories"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/desertthunder/altplay/internal/ui"
	"github.com/urfave/cli/v3"
)

// sink builds the audio output named by --sink, falling back to the config.
func (r *Runner) sink(cmd *cli.Command) (media.Sink, error) {
	kind := cmd.String("sink")
	if kind == "" {
		kind = r.config.Player.Sink
	}
	command := cmd.String("player")
	if command == "" {
		command = r.config.Player.Command
	}

	switch kind {
	case "", "virtual":
		return media.NewVirtualSink(0), nil
	case "command":
		if command == "" {
			return nil, fmt.Errorf("%w: player.command is required for the command sink", shared.ErrInvalidConfig)
		}
		return media.NewCommandSink(command, nil, r.logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown sink %q", shared.ErrInvalidArgument, kind)
	}
}

// Play launches the interactive player.
//
// The engine runs on its own goroutine for the lifetime of the TUI. Quitting the TUI cancels it,
// which writes a final checkpoint.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := cmd.String("log-file")
	if !cmd.IsSet("log-file") && r.config.Log.File != "" {
		logPath = r.config.Log.File
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	res, err := r.pickResolver(cmd)
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		r.logger.Warn("player state will not persist", "error", err)
		store = repositories.NewMemoryStore()
	}

	sink, err := r.sink(cmd)
	if err != nil {
		return err
	}
	defer sink.Close()

	opts := player.OptionsFromConfig(r.config.Player)
	opts.Resolver = res
	opts.Sink = sink
	opts.Store = store
	opts.Logger = r.logger

	var library ui.Library
	if _, _, session, err := r.clients(); err != nil {
		r.logger.Warn("library unavailable", "error", err)
	} else {
		opts.OnAuthRequired = session.Logout
		if session.Authenticated() {
			if lib, err := r.library(nil); err == nil {
				library = lib
			}
		}
	}

	engine := player.NewEngine(opts)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- engine.Run(runCtx) }()

	if !cmd.Bool("fresh") {
		if err := engine.Restore(runCtx); err != nil {
			r.logger.Warn("failed to restore session", "error", err)
		}
	}

	if query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); query != "" {
		if err := r.queueSearch(runCtx, engine, res, query); err != nil {
			r.logger.Warn("initial search failed", "query", query, "error", err)
		}
	}

	model := ui.NewModel(runCtx, engine, res, library)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx)).Run(); err != nil &&
		!errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// queueSearch replaces the queue with the results for query, playing the first.
func (r *Runner) queueSearch(ctx context.Context, engine *player.Engine, res Resolver, query string) error {
	results, err := res.Search(ctx, query)
	if err != nil {
		return err
	}
	r.recordSearch(query, len(results))
	if len(results) == 0 {
		return shared.ErrNoResults
	}

	tracks := make([]models.TrackRef, len(results))
	for i, result := range results {
		tracks[i] = models.TrackFromResult(result)
	}
	return engine.SetQueue(ctx, tracks, 0)
}
