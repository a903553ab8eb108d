package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/gin-gonic/gin"
)

// apiSearchResult is the /api/search item: uploader as artist and "m:ss" duration.
type apiSearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
}

// streamResponse is the /play and /stream payload.
type streamResponse struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
}

// searchAndPlayResponse adds the chosen video id.
type searchAndPlayResponse struct {
	URL       string `json:"url"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
}

func (s *Server) routes() {
	r := s.router
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/search", s.search)
	r.GET("/play/:id", s.stream)
	r.GET("/stream/:id", s.stream)
	r.GET("/search-and-play", s.searchAndPlay)
	r.GET("/refresh-token", s.refreshToken)
	r.GET("/login", s.login)
	r.GET("/callback", s.callback)

	api := r.Group("/api")
	{
		api.GET("/search", s.apiSearch)
		api.GET("/trending", s.trending)
		api.GET("/stream/:id", s.stream)
	}
}

func (s *Server) search(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	results, err := s.opts.Resolver.Search(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(results))
}

func (s *Server) apiSearch(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	results, err := s.opts.Resolver.Search(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIResults(results))
}

func (s *Server) trending(c *gin.Context) {
	results, err := s.opts.Resolver.Trending(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIResults(results))
}

func (s *Server) stream(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video id required"})
		return
	}
	desc, err := s.opts.Resolver.ResolveID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, streamResponse{
		URL:       desc.URL,
		Title:     desc.Title,
		Uploader:  desc.Uploader,
		Thumbnail: desc.Thumbnail,
		Duration:  desc.Duration,
	})
}

func (s *Server) searchAndPlay(c *gin.Context) {
	q, ok := requireQuery(c)
	if !ok {
		return
	}
	desc, err := s.opts.Resolver.SearchAndResolve(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, searchAndPlayResponse{
		URL:       desc.URL,
		ID:        desc.TrackID,
		Title:     desc.Title,
		Uploader:  desc.Uploader,
		Thumbnail: desc.Thumbnail,
		Duration:  desc.Duration,
	})
}

func requireQuery(c *gin.Context) (string, bool) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query required"})
		return "", false
	}
	return q, true
}

// fail maps a resolution error to its status code.
func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// StatusFor returns the HTTP status for a resolution error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAllProvidersExhausted),
		errors.Is(err, shared.ErrNoPlayableFormat),
		errors.Is(err, shared.ErrSearchUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toAPIResults(results []models.SearchResult) []apiSearchResult {
	out := make([]apiSearchResult, 0, len(results))
	for _, r := range results {
		artist := r.Uploader
		if artist == "" {
			artist = "Unknown"
		}
		out = append(out, apiSearchResult{
			ID:        r.ID,
			Title:     r.Title,
			Artist:    artist,
			Thumbnail: r.Thumbnail,
			Duration:  shared.FormatDuration(r.Duration),
		})
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
