// package server serves the resolution pipeline and the catalog OAuth flow over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/auth"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const shutdownTimeout = 5 * time.Second

// Resolver is the resolution pipeline the API exposes.
//
// Implemented by the local resolver pipeline; the backend client satisfies it too.
type Resolver interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Trending(ctx context.Context) ([]models.SearchResult, error)
	ResolveID(ctx context.Context, id string) (*models.StreamDescriptor, error)
	SearchAndResolve(ctx context.Context, query string) (*models.StreamDescriptor, error)
}

// Options configures a [Server]. Only Resolver is required.
type Options struct {
	Resolver    Resolver
	OAuth       *oauth2.Config // nil disables /login and /callback
	Refresher   auth.Refresher // defaults to an [auth.OAuthRefresher] over OAuth
	FrontendURL string
	Logger      *log.Logger
	Release     bool
	Now         func() time.Time
}

// Server is the backend HTTP API.
type Server struct {
	opts   Options
	router *gin.Engine
	logger *log.Logger
	logins *loginStates
}

// New builds the router and registers every route.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Refresher == nil && opts.OAuth != nil {
		opts.Refresher = auth.NewOAuthRefresher(opts.OAuth)
	}
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := shared.WithLogger(opts.Logger, "component", "server")
	s := &Server{
		opts:   opts,
		router: gin.New(),
		logger: logger,
		logins: newLoginStates(opts.Now),
	}
	s.router.Use(ginLogger(logger), gin.Recovery(), cors())
	s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	s.logger.Info("server started", "addr", addr)

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited")
	return nil
}

// ginLogger writes one line per request to logger.
func ginLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + redact(raw)
		}
		status := c.Writer.Status()
		kv := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("HTTP request", kv...)
			return
		}
		logger.Info("HTTP request", kv...)
	}
}

// redact hides credentials carried in a query string.
func redact(raw string) string {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	for _, k := range []string{"refresh_token", "code", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	return q.Encode()
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
