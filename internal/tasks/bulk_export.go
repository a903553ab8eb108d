package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 4
	maxWorkers       = 10
	defaultRateLimit = 2.0
)

// ResolveOpts bounds bulk resolution.
type ResolveOpts struct {
	NumWorkers int     // Concurrent resolutions (default 4, max 10)
	RateLimit  float64 // Resolutions started per second (default 2)
}

func (o ResolveOpts) withDefaults() ResolveOpts {
	if o.NumWorkers <= 0 {
		o.NumWorkers = defaultWorkers
	}
	o.NumWorkers = min(o.NumWorkers, maxWorkers)
	if o.RateLimit <= 0 {
		o.RateLimit = defaultRateLimit
	}
	return o
}

// BatchResult summarizes a bulk resolution.
type BatchResult struct {
	Total      int     `json:"total"`
	Resolved   int     `json:"resolved"`
	Failed     int     `json:"failed"`
	Percentage float64 `json:"percentage"`
}

type resolveOutcome struct {
	index int
	err   error
}

// ResolveAll resolves every entry of export in place with a rate-limited worker pool.
//
// Per-track failures are recorded on the entry and do not stop the batch. A
// cancelled ctx stops dispatching and returns the partial result with ctx's error.
func (e *LibraryEngine) ResolveAll(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	export *formatter.Export,
	opts ResolveOpts,
) (*BatchResult, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}
	opts = opts.withDefaults()

	total := len(export.Entries)
	result := &BatchResult{Total: total}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan int)
	results := make(chan resolveOutcome, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry := &export.Entries[i]
				desc, err := e.resolver.Resolve(ctx, entry.Track)
				if err == nil {
					entry.Stream, entry.Error = desc, ""
				} else {
					entry.Stream, entry.Error = nil, err.Error()
				}
				results <- resolveOutcome{index: i, err: err}
			}
		}()
	}

	var dispatchErr error
	go func() {
		defer close(jobs)
		for i := range export.Entries {
			if err := limiter.Wait(ctx); err != nil {
				dispatchErr = err
				return
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				dispatchErr = ctx.Err()
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			result.Failed++
			e.logger.Debug("resolve failed", "track", export.Entries[res.index].Track.String(), "error", res.err)
		} else {
			result.Resolved++
		}
		e.sendProgress(prog, resolvedUpdate(completed, total, export.Entries[res.index].Track, res.err))
	}

	if total > 0 {
		result.Percentage = float64(result.Resolved) / float64(total) * 100
	}
	if dispatchErr != nil {
		return result, fmt.Errorf("bulk resolve interrupted: %w", dispatchErr)
	}
	return result, nil
}

// BulkExportOpts configures [LibraryEngine.BulkExport].
type BulkExportOpts struct {
	Format    string // json, csv, markdown or txt
	OutputDir string // defaults to altplay_export_{epoch}
	Resolve   bool   // resolve streams before writing
	ResolveOpts
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Tracks       int      `json:"tracks"`
	Resolved     int      `json:"resolved"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult is written as the export manifest.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// BulkExport loads each playlist (or [SavedTracksID]), optionally resolves it and writes it in the
// requested format. Playlists are processed one at a time; a failed playlist does not stop the rest.
// A manifest summarizing the run is written to OutputDir/export_manifest.json.
func (e *LibraryEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one playlist", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("altplay_export_%d", time.Now().Unix())
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res := e.exportOne(ctx, id, opts)
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(i+1, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(i+1, len(ids), res.PlaylistName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *LibraryEngine) exportOne(ctx context.Context, id string, opts BulkExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{PlaylistID: id, PlaylistName: fmt.Sprintf("Unknown (%s)", id)}
	fail := func(err error) PlaylistExportResult {
		res.Error, res.ErrorMessage = err, err.Error()
		return res
	}

	export, err := e.Load(ctx, nil, id)
	if err != nil {
		return fail(err)
	}
	res.PlaylistName, res.Tracks = export.Name, len(export.Entries)

	if opts.Resolve {
		batch, err := e.ResolveAll(ctx, nil, export, opts.ResolveOpts)
		if err != nil {
			return fail(err)
		}
		res.Resolved = batch.Resolved
	}

	var cover string
	if len(export.Entries) > 0 {
		cover = export.Entries[0].Track.Artwork
	}
	files, err := formatter.Write(ctx, export, opts.Format, opts.OutputDir, cover)
	if err != nil {
		return fail(fmt.Errorf("%s export failed: %w", opts.Format, err))
	}
	res.Files, res.Success = files, true
	return res
}
