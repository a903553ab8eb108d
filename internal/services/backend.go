package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/altplay/internal/auth"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"golang.org/x/oauth2"
)

const (
	searchTimeout = 15 * time.Second
	streamTimeout = 30 * time.Second
)

// BackendService is the client for the altplay backend API.
type BackendService struct {
	client *Client
	now    func() time.Time
}

// NewBackendService creates a backend client on top of client.
func NewBackendService(client *Client) *BackendService {
	return &BackendService{client: client, now: time.Now}
}

// LoginURL is the backend /login URL that redirects back to frontendURL with the token pair.
func (b *BackendService) LoginURL(frontendURL string) string {
	q := url.Values{"frontend_url": {frontendURL}, "t": {fmt.Sprint(b.now().UnixMilli())}}
	return b.client.backendURL + "/login?" + q.Encode()
}

// Search calls GET /search.
func (b *BackendService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}

	var results []models.SearchResult
	req := Request{Path: "/search", Params: url.Values{"q": {query}}, Timeout: searchTimeout}
	if err := b.client.GetJSON(ctx, req, &results); err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

// Trending calls GET /api/trending.
func (b *BackendService) Trending(ctx context.Context) ([]models.SearchResult, error) {
	var results []models.SearchResult
	if err := b.client.GetJSON(ctx, Request{Path: "/api/trending", Timeout: searchTimeout}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveID calls GET /play/:id.
func (b *BackendService) ResolveID(ctx context.Context, id string) (*models.StreamDescriptor, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidInput)
	}

	desc, err := b.descriptor(ctx, Request{Path: "/play/" + url.PathEscape(id), Timeout: streamTimeout})
	if err != nil {
		return nil, err
	}
	if desc.TrackID == "" {
		desc.TrackID = id
	}
	return desc, nil
}

// SearchAndResolve calls GET /search-and-play.
func (b *BackendService) SearchAndResolve(ctx context.Context, query string) (*models.StreamDescriptor, error) {
	return b.descriptor(ctx, Request{Path: "/search-and-play", Params: url.Values{"q": {query}}, Timeout: streamTimeout})
}

// descriptor fetches a stream descriptor, mapping 502 to exhausted providers and 404 to no results.
func (b *BackendService) descriptor(ctx context.Context, req Request) (*models.StreamDescriptor, error) {
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		switch {
		case resp == nil:
		case resp.StatusCode == http.StatusBadGateway:
			return nil, fmt.Errorf("%w: %w", shared.ErrAllProvidersExhausted, err)
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %w", shared.ErrNoResults, err)
		}
		return nil, err
	}

	var desc models.StreamDescriptor
	if err := resp.Decode(&desc); err != nil {
		return nil, err
	}
	if desc.URL == "" {
		return nil, fmt.Errorf("%w: empty stream url", shared.ErrNoPlayableFormat)
	}
	desc.ResolvedAt = b.now()
	return &desc, nil
}

// Resolve routes a track the same way the local pipeline does.
func (b *BackendService) Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error) {
	if track.Origin == models.OriginCatalog || track.ID == "" {
		desc, err := b.SearchAndResolve(ctx, track.ResolveQuery())
		if err != nil {
			return nil, err
		}
		if track.Artwork != "" {
			desc.Thumbnail = track.Artwork
		}
		return desc, nil
	}
	return b.ResolveID(ctx, track.ID)
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Refresh calls GET /refresh-token without attaching the (stale) credential.
func (b *BackendService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	var out refreshResponse
	req := Request{
		Path:     "/refresh-token",
		Params:   url.Values{"refresh_token": {refreshToken}},
		SkipAuth: true,
	}
	if err := b.client.GetJSON(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access_token", shared.ErrAPIRequest)
	}

	return auth.TokenFromExpiresIn(out.AccessToken, out.RefreshToken, out.ExpiresIn, b.now()), nil
}
