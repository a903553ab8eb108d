package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/desertthunder/altplay/internal/tasks"
	"github.com/urfave/cli/v3"
)

// library builds the [tasks.LibraryEngine] over the catalog client. res may be nil when nothing is resolved.
func (r *Runner) library(res tasks.Resolver) (*tasks.LibraryEngine, error) {
	_, catalog, session, err := r.clients()
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, fmt.Errorf("%w: run 'altplay auth login' first", shared.ErrAuthRequired)
	}
	return tasks.NewLibraryEngine(catalog, res, r.logger), nil
}

// printProgress writes updates until progressCh is closed, then closes the returned channel.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchTracks:
				r.writePlain("🎵 %s\n", update.Message)
			case tasks.ResolveTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.WriteExport:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()
	return done
}

// LibraryPlaylists lists the user's catalog playlists.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.library(nil)
	if err != nil {
		return err
	}

	playlists, err := engine.Playlists(ctx, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n\n", p.Tracks.Total)
	}
	return r.writePlain("Use '%s' to export your saved tracks.\n", tasks.SavedTracksID)
}

// LibraryExport exports one or more playlists, resolving every track first with --resolve.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist id or name", shared.ErrMissingArgument)
	}
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	var res tasks.Resolver
	if cmd.Bool("resolve") {
		picked, err := r.pickResolver(cmd)
		if err != nil {
			return err
		}
		res = picked
	}
	engine, err := r.library(res)
	if err != nil {
		return err
	}

	r.logger.Info("starting export", "playlists", len(ids), "format", format, "resolve", res != nil)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.printProgress(progressCh)
	result, err := engine.BulkExport(ctx, progressCh, ids, tasks.BulkExportOpts{
		Format:    format,
		OutputDir: cmd.String("output"),
		Resolve:   res != nil,
		ResolveOpts: tasks.ResolveOpts{
			NumWorkers: cmd.Int("workers"),
			RateLimit:  cmd.Float("rate"),
		},
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Playlists: %d/%d exported\n", result.SuccessfulExports, result.TotalPlaylists)
	for _, pr := range result.Results {
		if !pr.Success {
			r.writePlain("  ✗ %s: %s\n", pr.PlaylistName, pr.ErrorMessage)
			continue
		}
		if res != nil {
			r.writePlain("  ✓ %s (%d/%d resolved)\n", pr.PlaylistName, pr.Resolved, pr.Tracks)
		} else {
			r.writePlain("  ✓ %s (%d tracks)\n", pr.PlaylistName, pr.Tracks)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return nil
}
