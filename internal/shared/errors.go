package shared

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig      = errors.New("configuration not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Authentication errors
	ErrAuthRequired   = errors.New("authentication required")
	ErrNoRefreshToken = errors.New("no refresh token available")

	// Provider and resolution errors
	ErrProviderTimeout       = errors.New("provider timed out")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrNoPlayableFormat      = errors.New("no playable audio format")
	ErrAllProvidersExhausted = errors.New("could not get audio stream: all sources failed")
	ErrSearchUnavailable     = errors.New("search unavailable")
	ErrNoResults             = errors.New("no results")

	// Playback errors
	ErrPlaybackDecode = errors.New("playback failed to decode stream")

	// API and service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)

// RateLimitedError reports a 429 that persisted after the bounded wait-then-retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
