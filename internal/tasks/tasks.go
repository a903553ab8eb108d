// package tasks implements library operations over the music catalog: loading playlists into track lists,
// resolving them to streams in bulk and exporting the results.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/services"
	"github.com/desertthunder/altplay/internal/shared"
)

// SavedTracksID selects the user's liked tracks instead of a playlist.
const SavedTracksID = "saved"

// Catalog is the slice of the catalog API the engine reads.
type Catalog interface {
	Playlists(ctx context.Context) ([]services.CatalogPlaylist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRef, error)
	SavedTracks(ctx context.Context, maxPages int) ([]models.TrackRef, error)
}

// Resolver turns a track into a playable stream.
type Resolver interface {
	Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error)
}

// LibraryEngine loads, resolves and exports catalog track lists.
type LibraryEngine struct {
	catalog  Catalog
	resolver Resolver
	logger   *log.Logger
}

// NewLibraryEngine creates a [LibraryEngine]. resolver may be nil when only loading is needed.
func NewLibraryEngine(catalog Catalog, resolver Resolver, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{
		catalog:  catalog,
		resolver: resolver,
		logger:   shared.WithLogger(logger, "component", "library"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Playlists lists the user's playlists.
func (e *LibraryEngine) Playlists(ctx context.Context, progress chan<- ProgressUpdate) ([]services.CatalogPlaylist, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	e.sendProgress(progress, fetchPlaylistsUpdate())
	playlists, err := e.catalog.Playlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// FindPlaylist matches idOrName against playlist ids, then case-insensitively against names.
func (e *LibraryEngine) FindPlaylist(ctx context.Context, idOrName string) (*services.CatalogPlaylist, error) {
	playlists, err := e.Playlists(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		if pl.ID == idOrName {
			return &pl, nil
		}
	}
	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, idOrName) {
			return &pl, nil
		}
	}
	return nil, fmt.Errorf("%w: no playlist found with id or name '%s'", shared.ErrNoResults, idOrName)
}

// Load fetches the tracks of a playlist (by id or name) or of [SavedTracksID].
//
// An id that is not among the listed playlists is still tried directly, since the
// listing only covers the first page.
func (e *LibraryEngine) Load(ctx context.Context, progress chan<- ProgressUpdate, idOrName string) (*formatter.Export, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return nil, fmt.Errorf("%w: playlist id or name", shared.ErrMissingArgument)
	}

	if idOrName == SavedTracksID {
		e.sendProgress(progress, fetchTracksUpdate(1, 1, "saved tracks"))
		tracks, err := e.catalog.SavedTracks(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch saved tracks: %w", err)
		}
		e.sendProgress(progress, foundTracksUpdate(1, 1, "saved tracks", len(tracks)))
		return formatter.NewExport(SavedTracksID, "Saved Tracks", tracks), nil
	}

	id, name, description := idOrName, idOrName, ""
	if pl, err := e.FindPlaylist(ctx, idOrName); err == nil {
		id, name, description = pl.ID, pl.Name, pl.Description
	} else {
		e.logger.Debug("playlist not listed, trying id directly", "playlist", idOrName, "error", err)
	}

	e.sendProgress(progress, fetchTracksUpdate(1, 1, name))
	tracks, err := e.catalog.PlaylistTracks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist '%s': %w", name, err)
	}
	e.sendProgress(progress, foundTracksUpdate(1, 1, name, len(tracks)))

	export := formatter.NewExport(id, name, tracks)
	export.Description = description
	return export, nil
}
