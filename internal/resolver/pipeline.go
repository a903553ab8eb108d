package resolver

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
)

// Pipeline is the local resolution pipeline: search, stream and composite resolution over one registry.
type Pipeline struct {
	*SearchResolver
	*StreamResolver
	composite *Composite
}

// NewPipeline wires the resolvers over registry.
func NewPipeline(registry *providers.Registry, logger *log.Logger) *Pipeline {
	search := NewSearchResolver(registry, logger)
	streams := NewStreamResolver(registry, logger)
	return &Pipeline{
		SearchResolver: search,
		StreamResolver: streams,
		composite:      NewComposite(search, streams, logger),
	}
}

// SearchAndResolve delegates to the composite resolver.
func (p *Pipeline) SearchAndResolve(ctx context.Context, query string) (*models.StreamDescriptor, error) {
	return p.composite.SearchAndResolve(ctx, query)
}

// Resolve routes a track: catalog tracks (and tracks without id) resolve through search, everything else by id.
func (p *Pipeline) Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error) {
	if track.Origin == models.OriginCatalog || track.ID == "" {
		desc, err := p.composite.SearchAndResolve(ctx, track.ResolveQuery())
		if err != nil {
			return nil, err
		}
		out := *desc
		if track.Artwork != "" {
			out.Thumbnail = track.Artwork
		}
		return &out, nil
	}
	return p.ResolveID(ctx, track.ID)
}
