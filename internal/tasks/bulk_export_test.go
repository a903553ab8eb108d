package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
)

type mockResolver struct {
	fail     map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (m *mockResolver) Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, track.Title)
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.fail[track.Title] {
		return nil, shared.ErrAllProvidersExhausted
	}
	return &models.StreamDescriptor{URL: "https://cdn.test/" + track.Title, Provider: "mock", Title: track.Title}, nil
}

func fastOpts() ResolveOpts {
	return ResolveOpts{NumWorkers: 3, RateLimit: 1000}
}

func TestResolveAll(t *testing.T) {
	ctx := context.Background()

	t.Run("records streams and failures", func(t *testing.T) {
		resolver := &mockResolver{fail: map[string]bool{"two": true}}
		engine := NewLibraryEngine(newCatalog(), resolver, nil)
		export := formatter.NewExport("p1", "Road Trip", catalogTracks("one", "two", "three"))
		progress := make(chan ProgressUpdate, 10)

		result, err := engine.ResolveAll(ctx, progress, export, fastOpts())
		if err != nil {
			t.Fatalf("ResolveAll failed: %v", err)
		}
		if result.Total != 3 || result.Resolved != 2 || result.Failed != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if result.Percentage < 66 || result.Percentage > 67 {
			t.Errorf("unexpected percentage %f", result.Percentage)
		}

		if export.Entries[0].Stream == nil || export.Entries[0].Stream.URL != "https://cdn.test/one" {
			t.Errorf("entry 0 not resolved: %+v", export.Entries[0])
		}
		if export.Entries[1].Stream != nil || !strings.Contains(export.Entries[1].Error, "all sources failed") {
			t.Errorf("entry 1 should carry the error: %+v", export.Entries[1])
		}

		close(progress)
		count := 0
		for u := range progress {
			count++
			if u.Phase != ResolveTracks || u.Total != 3 {
				t.Errorf("unexpected update %+v", u)
			}
		}
		if count != 3 {
			t.Errorf("expected 3 updates, got %d", count)
		}
	})

	t.Run("worker count bounds concurrency", func(t *testing.T) {
		resolver := &mockResolver{delay: 10 * time.Millisecond}
		engine := NewLibraryEngine(newCatalog(), resolver, nil)
		export := formatter.NewExport("x", "x", catalogTracks("a", "b", "c", "d", "e", "f", "g", "h"))

		if _, err := engine.ResolveAll(ctx, nil, export, ResolveOpts{NumWorkers: 2, RateLimit: 1000}); err != nil {
			t.Fatalf("ResolveAll failed: %v", err)
		}
		if peak := resolver.peak.Load(); peak > 2 {
			t.Errorf("expected at most 2 concurrent resolutions, saw %d", peak)
		}
		if len(resolver.calls) != 8 {
			t.Errorf("expected 8 calls, got %d", len(resolver.calls))
		}
	})

	t.Run("cancellation returns partial result", func(t *testing.T) {
		resolver := &mockResolver{}
		engine := NewLibraryEngine(newCatalog(), resolver, nil)
		export := formatter.NewExport("x", "x", catalogTracks("a", "b", "c"))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		result, err := engine.ResolveAll(cctx, nil, export, fastOpts())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.Total != 3 {
			t.Errorf("expected a partial result, got %+v", result)
		}
	})

	t.Run("empty export", func(t *testing.T) {
		engine := NewLibraryEngine(newCatalog(), &mockResolver{}, nil)
		result, err := engine.ResolveAll(ctx, nil, formatter.NewExport("x", "x", nil), ResolveOpts{})
		if err != nil {
			t.Fatalf("ResolveAll failed: %v", err)
		}
		if result.Total != 0 || result.Percentage != 0 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("no resolver", func(t *testing.T) {
		_, err := NewLibraryEngine(newCatalog(), nil, nil).ResolveAll(ctx, nil, formatter.NewExport("x", "x", nil), ResolveOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestResolveOptsDefaults(t *testing.T) {
	o := ResolveOpts{}.withDefaults()
	if o.NumWorkers != defaultWorkers || o.RateLimit != defaultRateLimit {
		t.Errorf("unexpected defaults %+v", o)
	}
	if got := (ResolveOpts{NumWorkers: 50}).withDefaults().NumWorkers; got != maxWorkers {
		t.Errorf("workers not capped, got %d", got)
	}
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		format      string
		ids         []string
		wantSuccess int
		wantFailed  int
		wantFiles   []string
	}{
		{
			name:        "single playlist json export",
			format:      formatter.FormatJSON,
			ids:         []string{"p1"},
			wantSuccess: 1,
			wantFiles:   []string{"p1.json"},
		},
		{
			name:        "playlists and saved tracks as csv",
			format:      formatter.FormatCSV,
			ids:         []string{"p1", "Focus", SavedTracksID},
			wantSuccess: 3,
			wantFiles:   []string{"p1_tracks.csv", "p2_tracks.csv", "saved_tracks.csv"},
		},
		{
			name:        "markdown with a failing playlist",
			format:      formatter.FormatMarkdown,
			ids:         []string{"p2", "missing"},
			wantSuccess: 1,
			wantFailed:  1,
			wantFiles:   []string{filepath.Join("p2", "README.md")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			engine := NewLibraryEngine(newCatalog(), &mockResolver{}, nil)
			progress := make(chan ProgressUpdate, 20)

			result, err := engine.BulkExport(ctx, progress, tt.ids, BulkExportOpts{Format: tt.format, OutputDir: dir})
			if err != nil {
				t.Fatalf("BulkExport failed: %v", err)
			}
			if result.SuccessfulExports != tt.wantSuccess || result.FailedExports != tt.wantFailed {
				t.Errorf("got %d/%d, want %d/%d", result.SuccessfulExports, result.FailedExports, tt.wantSuccess, tt.wantFailed)
			}
			for _, f := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
					t.Errorf("expected %s: %v", f, err)
				}
			}

			data, err := os.ReadFile(result.ManifestPath)
			if err != nil {
				t.Fatalf("manifest not written: %v", err)
			}
			var manifest BulkExportResult
			if err := json.Unmarshal(data, &manifest); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if manifest.TotalPlaylists != len(tt.ids) || len(manifest.Results) != len(tt.ids) {
				t.Errorf("unexpected manifest %+v", manifest)
			}
			for _, r := range manifest.Results {
				if !r.Success && r.ErrorMessage == "" {
					t.Errorf("failed result without message: %+v", r)
				}
			}
			if len(progress) != len(tt.ids) {
				t.Errorf("expected %d progress updates, got %d", len(tt.ids), len(progress))
			}
		})
	}

	t.Run("resolve before writing", func(t *testing.T) {
		dir := t.TempDir()
		resolver := &mockResolver{fail: map[string]bool{"three": true}}
		engine := NewLibraryEngine(newCatalog(), resolver, nil)

		result, err := engine.BulkExport(ctx, nil, []string{"p1"}, BulkExportOpts{
			Format:      formatter.FormatJSON,
			OutputDir:   dir,
			Resolve:     true,
			ResolveOpts: fastOpts(),
		})
		if err != nil {
			t.Fatalf("BulkExport failed: %v", err)
		}
		if result.Results[0].Resolved != 2 || result.Results[0].Tracks != 3 {
			t.Errorf("unexpected counts %+v", result.Results[0])
		}

		var export formatter.Export
		data, _ := os.ReadFile(filepath.Join(dir, "p1.json"))
		if err := json.Unmarshal(data, &export); err != nil {
			t.Fatalf("invalid export: %v", err)
		}
		if export.Resolved() != 2 {
			t.Errorf("expected 2 resolved entries in file, got %d", export.Resolved())
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := NewLibraryEngine(newCatalog(), nil, nil).BulkExport(ctx, nil, []string{"p1"}, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("no ids", func(t *testing.T) {
		_, err := NewLibraryEngine(newCatalog(), nil, nil).BulkExport(ctx, nil, nil, BulkExportOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		result, err := NewLibraryEngine(newCatalog(), nil, nil).BulkExport(cctx, nil, []string{"p1"}, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || len(result.Results) != 0 {
			t.Errorf("expected an empty partial result, got %+v", result)
		}
	})
}
