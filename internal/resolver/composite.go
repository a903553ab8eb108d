package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
)

// DefaultTopK is how many search hits SearchAndResolve tries.
const DefaultTopK = 5

// Searcher is the search half of [Composite].
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// IDResolver is the stream half of [Composite].
type IDResolver interface {
	ResolveID(ctx context.Context, id string) (*models.StreamDescriptor, error)
}

// Composite chains search and stream resolution.
type Composite struct {
	search  Searcher
	streams IDResolver
	topK    int
	logger  *log.Logger
}

// NewComposite creates a [Composite] trying the top [DefaultTopK] hits.
func NewComposite(search Searcher, streams IDResolver, logger *log.Logger) *Composite {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Composite{
		search:  search,
		streams: streams,
		topK:    DefaultTopK,
		logger:  shared.WithLogger(logger, "component", "search-and-resolve"),
	}
}

// SearchAndResolve returns the stream of the first resolvable hit among the top K, in rank order.
// Display metadata comes from the search hit; url, bitrate and provider from resolution.
func (c *Composite) SearchAndResolve(ctx context.Context, query string) (*models.StreamDescriptor, error) {
	results, err := c.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrNoResults, query)
	}

	var lastErr error
	for _, hit := range results[:min(c.topK, len(results))] {
		desc, err := c.streams.ResolveID(ctx, hit.ID)
		if err != nil {
			lastErr = err
			c.logger.Debug("candidate not resolvable", "query", query, "id", hit.ID, "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return mergeHit(desc, hit), nil
	}

	if errors.Is(lastErr, shared.ErrAllProvidersExhausted) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", shared.ErrAllProvidersExhausted, lastErr)
}

func mergeHit(desc *models.StreamDescriptor, hit models.SearchResult) *models.StreamDescriptor {
	out := *desc
	out.TrackID = hit.ID
	if hit.Title != "" {
		out.Title = hit.Title
	}
	if hit.Uploader != "" {
		out.Uploader = hit.Uploader
	}
	if hit.Thumbnail != "" {
		out.Thumbnail = hit.Thumbnail
	}
	if hit.Duration > 0 {
		out.Duration = hit.Duration
	}
	return &out
}
