package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultRetryAfter = 2 * time.Second
	MaxRetryWait      = 10 * time.Second
	MaxRateRetries    = 3
	maxErrorBody      = 512
)

// Destination selects the base URL and how the credential is attached.
type Destination int

const (
	DestinationBackend Destination = iota
	DestinationCatalog
)

func (d Destination) String() string {
	if d == DestinationCatalog {
		return "catalog"
	}
	return "backend"
}

// TokenSource is the credential provider the client draws from; [auth.Session] implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
	Logout()
}

// Request describes one API call. It is kept so the request can be rebuilt for the post-refresh retry.
type Request struct {
	Method      string
	Destination Destination
	Path        string // relative to the destination base URL, or absolute
	Params      url.Values
	Header      http.Header
	Body        []byte
	Timeout     time.Duration // 0 uses the client default
	SkipAuth    bool
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out.
func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ClientOptions configures a [Client].
type ClientOptions struct {
	BackendURL        string
	CatalogURL        string
	Tokens            TokenSource
	HTTPClient        *http.Client
	Timeout           time.Duration
	DefaultRetryAfter time.Duration
	Logger            *log.Logger
}

// Client is the authenticated request client.
type Client struct {
	backendURL string
	catalogURL string
	tokens     TokenSource
	http       *retryablehttp.Client
	timeout    time.Duration
	retryAfter time.Duration
	logger     *log.Logger
}

// NewClient creates a [Client]. A nil Tokens makes every request unauthenticated.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = DefaultRetryAfter
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	c := &Client{
		backendURL: strings.TrimSuffix(opts.BackendURL, "/"),
		catalogURL: strings.TrimSuffix(opts.CatalogURL, "/"),
		tokens:     opts.Tokens,
		timeout:    opts.Timeout,
		retryAfter: opts.DefaultRetryAfter,
		logger:     shared.WithLogger(opts.Logger, "component", "api-client"),
	}

	rc := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.Logger = nil
	rc.RetryMax = MaxRateRetries
	rc.RetryWaitMin = 0
	rc.RetryWaitMax = MaxRetryWait
	rc.CheckRetry = retryOnRateLimit
	rc.Backoff = c.rateLimitBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.http = rc
	return c
}

// retryOnRateLimit retries 429 responses only; transport errors are returned as-is.
func retryOnRateLimit(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusTooManyRequests, nil
}

func (c *Client) rateLimitBackoff(_, max time.Duration, attempt int, resp *http.Response) time.Duration {
	wait := c.retryAfter
	if resp != nil {
		wait = parseRetryAfter(resp.Header, c.retryAfter)
	}
	if wait > max {
		wait = max
	}
	c.logger.Warn("rate limited, waiting", "attempt", attempt+1, "wait", wait)
	return wait
}

// parseRetryAfter reads Retry-After as seconds or an HTTP date.
func parseRetryAfter(h http.Header, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if at, err := http.ParseTime(v); err == nil {
		return max(time.Until(at), 0)
	}
	return fallback
}

// Do sends req with the session credential attached, handling 401 refresh-and-retry and 429 backoff.
//
// The response is returned alongside any status error so callers can inspect the body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	token, err := c.credential(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, token, false)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.logger.Debug("credential rejected, forcing refresh", "path", req.Path, "destination", req.Destination)
		token, err = c.tokens.ForceRefresh(ctx)
		if err != nil {
			return resp, err
		}

		resp, err = c.send(ctx, req, token, true)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.logger.Warn("credential rejected after refresh, logging out")
			c.tokens.Logout()
			return resp, fmt.Errorf("%w: credential rejected after refresh", shared.ErrAuthRequired)
		}
	}

	return resp, c.checkStatus(resp)
}

// GetJSON performs req and decodes a successful body into out.
func (c *Client) GetJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// credential returns the token to attach. Backend calls proceed without one when logged out.
func (c *Client) credential(ctx context.Context, req Request) (string, error) {
	if req.SkipAuth || c.tokens == nil {
		return "", nil
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrAuthRequired) && req.Destination == DestinationBackend {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

func (c *Client) checkStatus(resp *Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &shared.RateLimitedError{RetryAfter: parseRetryAfter(resp.Header, c.retryAfter)}
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrAuthRequired)
	}

	body := resp.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) buildURL(req Request, token string, retry bool) (string, error) {
	raw := req.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		base := c.backendURL
		if req.Destination == DestinationCatalog {
			base = c.catalogURL
		}
		raw = base + "/" + strings.TrimPrefix(raw, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad request url: %v", shared.ErrInvalidInput, err)
	}

	q := u.Query()
	for k, vs := range req.Params {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if token != "" && req.Destination == DestinationBackend && (retry || q.Get("token") == "") {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) send(ctx context.Context, req Request, token string, retry bool) (*Response, error) {
	u, err := c.buildURL(req, token, retry)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body any
	if len(req.Body) > 0 {
		body = req.Body
	}
	hreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if token != "" && req.Destination == DestinationCatalog {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
