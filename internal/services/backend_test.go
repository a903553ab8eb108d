package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *BackendService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	b := NewBackendService(newTestClient(srv, nil))
	b.now = func() time.Time { return time.Unix(1000, 0) }
	return b
}

func TestBackendService(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "daft punk", r.URL.Query().Get("q"))
			json.NewEncoder(w).Encode([]models.SearchResult{{ID: "a", Title: "One More Time", Duration: 320}})
		})

		results, err := b.Search(context.Background(), "daft punk")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, 320, results[0].Duration)
	})

	t.Run("Search rejects an empty query", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})
		_, err := b.Search(context.Background(), "  ")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Search with no hits returns an empty list", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		})
		results, err := b.Search(context.Background(), "zzz")
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("ResolveID", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/play/abc", r.URL.Path)
			w.Write([]byte(`{"url":"https://cdn/x","title":"T","uploader":"U","thumbnail":"th","duration":200}`))
		})

		desc, err := b.ResolveID(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/x", desc.URL)
		assert.Equal(t, "abc", desc.TrackID)
		assert.Equal(t, time.Unix(1000, 0), desc.ResolvedAt)
	})

	t.Run("ResolveID surfaces a 502", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"could not get audio stream: all sources failed"}`))
		})

		_, err := b.ResolveID(context.Background(), "abc")
		assert.ErrorIs(t, err, shared.ErrAllProvidersExhausted)
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.ErrorContains(t, err, "all sources failed")
	})

	t.Run("SearchAndResolve maps 404 to no results", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"No results found"}`))
		})

		_, err := b.SearchAndResolve(context.Background(), "zzz")
		assert.ErrorIs(t, err, shared.ErrNoResults)
	})

	t.Run("Resolve routes catalog tracks through search-and-play", func(t *testing.T) {
		var path, query string
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			path, query = r.URL.Path, r.URL.Query().Get("q")
			w.Write([]byte(`{"url":"u","id":"yt1","thumbnail":"yt-thumb"}`))
		})

		track := models.TrackRef{ID: "sp1", Origin: models.OriginCatalog, Title: "Song", Artist: "Band", Artwork: "art"}
		desc, err := b.Resolve(context.Background(), track)
		require.NoError(t, err)
		assert.Equal(t, "/search-and-play", path)
		assert.Equal(t, "Song Band audio", query)
		assert.Equal(t, "art", desc.Thumbnail)
		assert.Equal(t, "yt1", desc.TrackID)
	})

	t.Run("Resolve routes search tracks by id", func(t *testing.T) {
		var path string
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Write([]byte(`{"url":"u"}`))
		})

		_, err := b.Resolve(context.Background(), models.TrackRef{ID: "v1", Origin: models.OriginSearch, Title: "x"})
		require.NoError(t, err)
		assert.Equal(t, "/play/v1", path)
	})

	t.Run("Refresh", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/refresh-token", r.URL.Path)
			assert.Equal(t, "r1", r.URL.Query().Get("refresh_token"))
			assert.Empty(t, r.URL.Query().Get("token"))
			w.Write([]byte(`{"access_token":"a2","expires_in":3600}`))
		})

		tok, err := b.Refresh(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "a2", tok.AccessToken)
		assert.Empty(t, tok.RefreshToken)
		assert.Equal(t, time.Unix(1000, 0).Add(time.Hour), tok.Expiry)
	})

	t.Run("Refresh failure", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Failed to refresh token"}`))
		})

		_, err := b.Refresh(context.Background(), "r1")
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
	})

	t.Run("LoginURL", func(t *testing.T) {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
		u := b.LoginURL("http://127.0.0.1:5173")
		assert.Contains(t, u, "/login?")
		assert.Contains(t, u, "frontend_url=http%3A%2F%2F127.0.0.1%3A5173")
		assert.Contains(t, u, "t=1000000")
	})
}
