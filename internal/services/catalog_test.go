package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogTrackRef(t *testing.T) {
	track := CatalogTrack{
		ID:         "sp1",
		Name:       "Harder Better",
		Artists:    []CatalogArtist{{Name: "Daft"}, {Name: "Punk"}},
		Album:      CatalogAlbum{Images: []CatalogImage{{URL: "big"}, {URL: "small"}}},
		DurationMS: 224_500,
	}

	ref := track.TrackRef()
	assert.Equal(t, models.OriginCatalog, ref.Origin)
	assert.Equal(t, "Daft, Punk", ref.Artist)
	assert.Equal(t, "big", ref.Artwork)
	assert.Equal(t, 224, ref.Duration)

	assert.Equal(t, "Unknown", CatalogTrack{ID: "x"}.TrackRef().Artist)
}

func TestCatalogService(t *testing.T) {
	t.Run("SavedTracks follows pagination and skips local tracks", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			switch r.URL.Query().Get("offset") {
			case "":
				assert.Equal(t, "/v1/me/tracks", r.URL.Path)
				fmt.Fprintf(w, `{"items":[{"track":{"id":"1","name":"A","artists":[{"name":"X"}]}},{"track":null}],"next":"%s/v1/me/tracks?offset=50&limit=50"}`, srv.URL)
			default:
				w.Write([]byte(`{"items":[{"track":{"id":"2","name":"B"}},{"track":{"id":"","name":"local"}}],"next":null}`))
			}
		}))
		defer srv.Close()

		svc := NewCatalogService(newTestClient(srv, &stubTokens{token: "tok"}))
		tracks, err := svc.SavedTracks(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, tracks, 2)
		assert.Equal(t, "1", tracks[0].ID)
		assert.Equal(t, "2", tracks[1].ID)
	})

	t.Run("SavedTracks stops at the page limit", func(t *testing.T) {
		var hits int
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			fmt.Fprintf(w, `{"items":[{"track":{"id":"%d","name":"t"}}],"next":"%s/v1/me/tracks?offset=%d"}`, hits, srv.URL, hits*50)
		}))
		defer srv.Close()

		svc := NewCatalogService(newTestClient(srv, &stubTokens{token: "tok"}))
		tracks, err := svc.SavedTracks(context.Background(), 3)
		require.NoError(t, err)
		assert.Len(t, tracks, 3)
		assert.Equal(t, 3, hits)
	})

	t.Run("PlaylistTracks requires an id", func(t *testing.T) {
		svc := NewCatalogService(NewClient(ClientOptions{}))
		_, err := svc.PlaylistTracks(context.Background(), "")
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})

	t.Run("Playlists and Me", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/me":
				w.Write([]byte(`{"id":"u1","display_name":"Owen"}`))
			case "/v1/me/playlists":
				w.Write([]byte(`{"items":[{"id":"p1","name":"Mix","tracks":{"total":12}},{"id":"","name":"ghost"}]}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		svc := NewCatalogService(newTestClient(srv, &stubTokens{token: "tok"}))
		user, err := svc.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Owen", user.DisplayName)

		lists, err := svc.Playlists(context.Background())
		require.NoError(t, err)
		require.Len(t, lists, 1)
		assert.Equal(t, 12, lists[0].Tracks.Total)
	})

	t.Run("errors are wrapped with the path", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc := NewCatalogService(newTestClient(srv, &stubTokens{token: "tok"}))
		_, err := svc.PlaylistTracks(context.Background(), "p1")
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.ErrorContains(t, err, "/playlists/p1/tracks")
	})
}
