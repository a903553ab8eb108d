package providers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
)

// Registry is the explicitly ordered list of providers. Order is fallback order.
type Registry struct {
	streams  []StreamSource
	searches []SearchSource
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddStream appends stream sources in fallback order.
func (r *Registry) AddStream(sources ...StreamSource) *Registry {
	r.streams = append(r.streams, sources...)
	return r
}

// AddSearch appends search sources in fallback order.
func (r *Registry) AddSearch(sources ...SearchSource) *Registry {
	r.searches = append(r.searches, sources...)
	return r
}

// Streams returns a copy of the ordered stream sources.
func (r *Registry) Streams() []StreamSource {
	return append([]StreamSource(nil), r.streams...)
}

// Searches returns a copy of the ordered search sources.
func (r *Registry) Searches() []SearchSource {
	return append([]SearchSource(nil), r.searches...)
}

// StreamNames lists stream source names in order.
func (r *Registry) StreamNames() []string {
	names := make([]string, len(r.streams))
	for i, s := range r.streams {
		names[i] = s.Name()
	}
	return names
}

// SearchNames lists search source names in order.
func (r *Registry) SearchNames() []string {
	names := make([]string, len(r.searches))
	for i, s := range r.searches {
		names[i] = s.Name()
	}
	return names
}

// FromConfig builds the default registry: every Invidious instance, then every Piped instance,
// then the local yt-dlp extractor when enabled.
func FromConfig(cfg shared.ProvidersConfig, client *http.Client, logger *log.Logger) *Registry {
	r := NewRegistry()

	invOpts := OptionsFromConfig(cfg, cfg.InvidiousTimeout, client, logger)
	for _, base := range cfg.Invidious {
		p := NewInvidious(base, invOpts)
		r.AddStream(p).AddSearch(p)
	}

	pipedOpts := OptionsFromConfig(cfg, cfg.PipedTimeout, client, logger)
	for _, base := range cfg.Piped {
		p := NewPiped(base, pipedOpts)
		r.AddStream(p).AddSearch(p)
	}

	if cfg.YTDLPEnabled {
		r.AddStream(NewYTDLP(cfg.YTDLPTimeout, nil, logger))
	}
	return r
}
