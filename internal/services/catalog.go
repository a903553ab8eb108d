// Catalog API types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
)

const (
	DefaultCatalogURL = "https://api.spotify.com/v1"
	pageSize          = 50
	maxPlaylistPages  = 20
	maxSavedPages     = 40
)

// CatalogImage represents an image resource.
type CatalogImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// CatalogArtist represents an artist reference.
type CatalogArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogAlbum represents an album reference.
type CatalogAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []CatalogImage `json:"images"`
}

// CatalogTrack represents a catalog track.
type CatalogTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []CatalogArtist `json:"artists"`
	Album      CatalogAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// TrackRef maps the catalog track onto a catalog-origin [models.TrackRef].
func (t CatalogTrack) TrackRef() models.TrackRef {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	artist := strings.Join(names, ", ")
	if artist == "" {
		artist = "Unknown"
	}

	var artwork string
	if len(t.Album.Images) > 0 {
		artwork = t.Album.Images[0].URL
	}
	return models.TrackRef{
		ID:       t.ID,
		Origin:   models.OriginCatalog,
		Title:    t.Name,
		Artist:   artist,
		Artwork:  artwork,
		Duration: t.DurationMS / 1000,
	}
}

// CatalogUser represents the current user's profile.
type CatalogUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Product     string `json:"product"`
}

// CatalogPlaylist is a playlist summary.
type CatalogPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type trackItem struct {
	Track *CatalogTrack `json:"track"`
}

type trackPage struct {
	Items []trackItem `json:"items"`
	Next  *string     `json:"next"`
}

type playlistPage struct {
	Items []CatalogPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

// CatalogService reads the authenticated user's library from the catalog API.
type CatalogService struct {
	client *Client
}

// NewCatalogService creates a catalog client on top of client.
func NewCatalogService(client *Client) *CatalogService {
	return &CatalogService{client: client}
}

func (s *CatalogService) get(ctx context.Context, path string, params url.Values, out any) error {
	req := Request{Destination: DestinationCatalog, Path: path, Params: params}
	if err := s.client.GetJSON(ctx, req, out); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	return nil
}

// Me retrieves the current user's profile.
func (s *CatalogService) Me(ctx context.Context) (*CatalogUser, error) {
	var user CatalogUser
	if err := s.get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists lists the user's playlists (first page of 50).
func (s *CatalogService) Playlists(ctx context.Context) ([]CatalogPlaylist, error) {
	var page playlistPage
	if err := s.get(ctx, "/me/playlists", url.Values{"limit": {fmt.Sprint(pageSize)}}, &page); err != nil {
		return nil, err
	}

	out := make([]CatalogPlaylist, 0, len(page.Items))
	for _, p := range page.Items {
		if p.ID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// PlaylistTracks returns every track of a playlist, following pagination.
func (s *CatalogService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRef, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	path := "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	return s.collect(ctx, path, url.Values{"limit": {fmt.Sprint(pageSize)}}, maxPlaylistPages)
}

// SavedTracks returns the user's liked tracks, following up to maxPages pages (0 uses the default).
func (s *CatalogService) SavedTracks(ctx context.Context, maxPages int) ([]models.TrackRef, error) {
	if maxPages <= 0 {
		maxPages = maxSavedPages
	}
	return s.collect(ctx, "/me/tracks", url.Values{"limit": {fmt.Sprint(pageSize)}}, maxPages)
}

func (s *CatalogService) collect(ctx context.Context, path string, params url.Values, maxPages int) ([]models.TrackRef, error) {
	var tracks []models.TrackRef
	for page := 0; path != "" && page < maxPages; page++ {
		var p trackPage
		if err := s.get(ctx, path, params, &p); err != nil {
			if page > 0 {
				break
			}
			return nil, err
		}

		for _, it := range p.Items {
			if it.Track == nil || it.Track.ID == "" {
				continue
			}
			tracks = append(tracks, it.Track.TrackRef())
		}

		path, params = "", nil
		if p.Next != nil {
			path = *p.Next
		}
	}
	return tracks, nil
}
