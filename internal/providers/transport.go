package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultBreakerFailures = 5
	defaultBreakerOpen     = 30 * time.Second
	maxErrorBody           = 512
)

// SourceOptions configures an HTTP backed provider instance.
type SourceOptions struct {
	Timeout           time.Duration
	HTTPClient        *http.Client
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
	BreakerFailures   uint32
	BreakerOpen       time.Duration
	UserAgent         string
	Logger            *log.Logger
}

// OptionsFromConfig builds [SourceOptions] for the given timeout from the providers config section.
func OptionsFromConfig(cfg shared.ProvidersConfig, timeout time.Duration, client *http.Client, logger *log.Logger) SourceOptions {
	return SourceOptions{
		Timeout:           timeout,
		HTTPClient:        client,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerOpen:       cfg.BreakerOpen,
		UserAgent:         cfg.UserAgent,
		Logger:            logger,
	}
}

// httpSource is the transport shared by the HTTP adapters: one limiter and one breaker per instance.
type httpSource struct {
	name      string
	kind      Kind
	baseURL   string
	timeout   time.Duration
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	userAgent string
	logger    *log.Logger
}

func newHTTPSource(kind Kind, baseURL string, opts SourceOptions) httpSource {
	baseURL = strings.TrimSuffix(baseURL, "/")
	name := string(kind) + ":" + baseURL

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = defaultBreakerOpen
	}

	limit, burst := rate.Inf, opts.Burst
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}

	logger := shared.WithLogger(opts.Logger, "provider", name)
	failures := opts.BreakerFailures
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return httpSource{
		name:      name,
		kind:      kind,
		baseURL:   baseURL,
		timeout:   opts.Timeout,
		client:    opts.HTTPClient,
		limiter:   rate.NewLimiter(limit, burst),
		breaker:   gobreaker.NewCircuitBreaker(settings),
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

func (s *httpSource) Name() string           { return s.name }
func (s *httpSource) Kind() Kind             { return s.kind }
func (s *httpSource) Timeout() time.Duration { return s.timeout }

// getJSON performs a rate limited, breaker guarded GET of baseURL+path and decodes the body into out.
func (s *httpSource) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", shared.ErrProviderTimeout, err)
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.fetch(ctx, path, query, out)
	})
	return err
}

func (s *httpSource) fetch(ctx context.Context, path string, query url.Values, out any) error {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w (status %d)", shared.ErrProviderUnavailable, shared.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", shared.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrProviderUnavailable, err)
	}
	return nil
}
