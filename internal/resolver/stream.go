package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
	"github.com/desertthunder/altplay/internal/shared"
)

// StreamResolver resolves a video id to the best audio stream of the first usable provider.
type StreamResolver struct {
	registry *providers.Registry
	logger   *log.Logger
	now      func() time.Time
}

// NewStreamResolver creates a [StreamResolver] over the registry's stream sources.
func NewStreamResolver(registry *providers.Registry, logger *log.Logger) *StreamResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &StreamResolver{
		registry: registry,
		logger:   shared.WithLogger(logger, "component", "stream-resolver"),
		now:      time.Now,
	}
}

// ResolveID returns the highest-bitrate audio format of the first provider that yields one.
func (r *StreamResolver) ResolveID(ctx context.Context, id string) (*models.StreamDescriptor, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidInput)
	}

	var lastErr error
	for _, p := range r.registry.Streams() {
		desc, err := r.attempt(ctx, p, id)
		if err == nil {
			r.logger.Debug("resolved stream", "id", id, "provider", p.Name(), "bitrate", desc.Bitrate)
			return desc, nil
		}

		lastErr = err
		if errors.Is(err, shared.ErrNoPlayableFormat) {
			r.logger.Debug("provider had no playable format", "id", id, "provider", p.Name())
		} else {
			r.logger.Warn("stream provider failed", "id", id, "provider", p.Name(), "err", err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no stream providers configured")
	}
	return nil, fmt.Errorf("%w: %w", shared.ErrAllProvidersExhausted, lastErr)
}

func (r *StreamResolver) attempt(ctx context.Context, p providers.StreamSource, id string) (*models.StreamDescriptor, error) {
	if t := p.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	set, err := p.Streams(ctx, id)
	if err != nil {
		return nil, err
	}

	best, ok := set.Best()
	if !ok {
		return nil, &providers.ProviderError{Provider: p.Name(), Op: "streams", ID: id, Err: shared.ErrNoPlayableFormat}
	}

	thumb := set.Thumbnail
	if thumb == "" {
		thumb = providers.ThumbnailFor(id)
	}
	return &models.StreamDescriptor{
		URL:        best.URL,
		Provider:   p.Name(),
		Bitrate:    best.Bitrate,
		TrackID:    id,
		Title:      set.Title,
		Uploader:   set.Uploader,
		Thumbnail:  thumb,
		Duration:   set.Duration,
		ResolvedAt: r.now(),
	}, nil
}
