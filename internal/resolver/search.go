package resolver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
	"github.com/desertthunder/altplay/internal/shared"
)

const (
	// MaxResults caps every search response.
	MaxResults     = 25
	musicQualifier = "music"
)

// TrendingQueries back the trending endpoint; one is picked at random per call.
var TrendingQueries = []string{"top hits 2025", "trending music 2025", "popular songs 2025"}

// SearchResolver maps free text to ranked search results with provider fallback.
type SearchResolver struct {
	registry *providers.Registry
	logger   *log.Logger
	pick     func(n int) int
}

// NewSearchResolver creates a [SearchResolver] over the registry's search sources.
func NewSearchResolver(registry *providers.Registry, logger *log.Logger) *SearchResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SearchResolver{
		registry: registry,
		logger:   shared.WithLogger(logger, "component", "search-resolver"),
		pick:     rand.IntN,
	}
}

// QualifyQuery appends the "music" qualifier to single-word queries.
func QualifyQuery(q string) string {
	q = strings.TrimSpace(q)
	if len(strings.Fields(q)) < 2 {
		return q + " " + musicQualifier
	}
	return q
}

// Search runs the qualified query against the primary provider, retries it once with the raw query on zero
// results, then falls through the remaining providers.
//
// Exhaustion yields [shared.ErrSearchUnavailable] when every provider errored and an empty list when at
// least one answered with nothing.
func (r *SearchResolver) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}
	qualified := QualifyQuery(query)

	var (
		lastErr  error
		answered bool
	)
	for i, p := range r.registry.Searches() {
		results, err := r.attempt(ctx, p, qualified)
		if err == nil && len(results) == 0 && i == 0 && qualified != query {
			r.logger.Debug("no results for qualified query, retrying", "query", query, "provider", p.Name())
			results, err = r.attempt(ctx, p, query)
		}

		if err != nil {
			lastErr = err
			r.logger.Warn("search provider failed", "query", query, "provider", p.Name(), "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		answered = true
		if len(results) > 0 {
			return results, nil
		}
	}

	if !answered {
		if lastErr == nil {
			return nil, fmt.Errorf("%w: no search providers configured", shared.ErrSearchUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrSearchUnavailable, lastErr)
	}
	return []models.SearchResult{}, nil
}

// Trending searches one of [TrendingQueries].
func (r *SearchResolver) Trending(ctx context.Context) ([]models.SearchResult, error) {
	return r.Search(ctx, TrendingQueries[r.pick(len(TrendingQueries))])
}

func (r *SearchResolver) attempt(ctx context.Context, p providers.SearchSource, query string) ([]models.SearchResult, error) {
	if t := p.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	raw, err := p.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return cleanResults(raw), nil
}

// cleanResults drops hits without id or title, fills missing thumbnails and caps the list.
func cleanResults(raw []models.SearchResult) []models.SearchResult {
	out := make([]models.SearchResult, 0, min(len(raw), MaxResults))
	for _, r := range raw {
		if r.ID == "" || r.Title == "" {
			continue
		}
		if r.Thumbnail == "" {
			r.Thumbnail = providers.ThumbnailFor(r.ID)
		}
		if r.Uploader == "" {
			r.Uploader = "Unknown"
		}
		if r.Duration < 0 {
			r.Duration = 0
		}
		out = append(out, r)
		if len(out) == MaxResults {
			break
		}
	}
	return out
}
