package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifyQuery(t *testing.T) {
	assert.Equal(t, "rain music", QualifyQuery("rain"))
	assert.Equal(t, "rain music", QualifyQuery("  rain "))
	assert.Equal(t, "purple rain", QualifyQuery("purple rain"))
}

func TestSearchResolver(t *testing.T) {
	logger := shared.NewLogger(nil)

	t.Run("falls through a timed out provider to a nested-shape provider", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "rain music", r.URL.Query().Get("q"))
			fmt.Fprint(w, `{"items": [
				{"url": "/watch?v=a", "type": "stream", "title": "Rain A", "uploaderName": "UA", "duration": 100},
				{"url": "/watch?v=b", "type": "stream", "title": "Rain B", "uploaderName": "UB", "duration": 200},
				{"url": "/watch?v=c", "type": "stream", "title": "Rain C", "uploaderName": "UC", "duration": 300}
			]}`)
		}))
		defer srv.Close()

		timingOut := &fakeSearch{name: "slow", timeout: 20 * time.Millisecond, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return nil, blockUntilDone(ctx)
		}}
		piped := providers.NewPiped(srv.URL, providers.SourceOptions{Timeout: time.Second, Logger: logger})

		r := NewSearchResolver(providers.NewRegistry().AddSearch(timingOut, piped), logger)
		results, err := r.Search(context.Background(), "rain")
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "a", results[0].ID)
		assert.Equal(t, providers.ThumbnailFor("a"), results[0].Thumbnail)
		assert.Equal(t, []string{"rain music"}, timingOut.Queries())
	})

	t.Run("zero results retries the primary with the raw query", func(t *testing.T) {
		primary := &fakeSearch{name: "primary", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			if q == "rain" {
				return hits("raw"), nil
			}
			return nil, nil
		}}
		secondary := &fakeSearch{name: "secondary", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return hits("other"), nil
		}}

		r := NewSearchResolver(providers.NewRegistry().AddSearch(primary, secondary), logger)
		results, err := r.Search(context.Background(), "rain")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "raw", results[0].ID)
		assert.Equal(t, []string{"rain music", "rain"}, primary.Queries())
		assert.Empty(t, secondary.Queries())
	})

	t.Run("secondary providers get the qualified query", func(t *testing.T) {
		primary := &fakeSearch{name: "primary", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return nil, errors.New("boom")
		}}
		secondary := &fakeSearch{name: "secondary", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return hits("x"), nil
		}}

		r := NewSearchResolver(providers.NewRegistry().AddSearch(primary, secondary), logger)
		_, err := r.Search(context.Background(), "rain")
		require.NoError(t, err)
		assert.Equal(t, []string{"rain music"}, primary.Queries())
		assert.Equal(t, []string{"rain music"}, secondary.Queries())
	})

	t.Run("every provider erroring is SearchUnavailable", func(t *testing.T) {
		broken := &fakeSearch{name: "broken", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return nil, shared.ErrProviderUnavailable
		}}

		r := NewSearchResolver(providers.NewRegistry().AddSearch(broken), logger)
		_, err := r.Search(context.Background(), "two words")
		assert.ErrorIs(t, err, shared.ErrSearchUnavailable)
		assert.ErrorIs(t, err, shared.ErrProviderUnavailable)
	})

	t.Run("an empty answer yields an empty list", func(t *testing.T) {
		broken := &fakeSearch{name: "broken", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return nil, shared.ErrProviderUnavailable
		}}
		empty := &fakeSearch{name: "empty", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return []models.SearchResult{}, nil
		}}

		r := NewSearchResolver(providers.NewRegistry().AddSearch(broken, empty), logger)
		results, err := r.Search(context.Background(), "two words")
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("cleans and caps results", func(t *testing.T) {
		var raw []models.SearchResult
		raw = append(raw, models.SearchResult{ID: "", Title: "no id"}, models.SearchResult{ID: "no-title"})
		for i := range 40 {
			raw = append(raw, models.SearchResult{ID: fmt.Sprintf("id%d", i), Title: "t", Duration: -1})
		}
		p := &fakeSearch{name: "p", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return raw, nil
		}}

		r := NewSearchResolver(providers.NewRegistry().AddSearch(p), logger)
		results, err := r.Search(context.Background(), "many results")
		require.NoError(t, err)
		require.Len(t, results, MaxResults)
		assert.Equal(t, "id0", results[0].ID)
		assert.Equal(t, "Unknown", results[0].Uploader)
		assert.Equal(t, 0, results[0].Duration)
		assert.True(t, strings.HasSuffix(results[0].Thumbnail, "/vi/id0/mqdefault.jpg"))
	})

	t.Run("empty query", func(t *testing.T) {
		r := NewSearchResolver(providers.NewRegistry(), logger)
		_, err := r.Search(context.Background(), "   ")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Trending", func(t *testing.T) {
		p := &fakeSearch{name: "p", timeout: time.Second, fn: func(ctx context.Context, q string) ([]models.SearchResult, error) {
			return hits("t1"), nil
		}}
		r := NewSearchResolver(providers.NewRegistry().AddSearch(p), logger)
		r.pick = func(n int) int { return n - 1 }

		results, err := r.Trending(context.Background())
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, []string{TrendingQueries[len(TrendingQueries)-1]}, p.Queries())
	})
}
