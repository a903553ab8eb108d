package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/altplay/internal/shared"
	"github.com/sony/gobreaker"
)

// ProviderError records which provider instance failed an operation.
type ProviderError struct {
	Provider string
	Op       string
	ID       string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapErr maps transport level failures onto the shared sentinels and tags them with the provider.
func wrapErr(provider, op, id string, err error) error {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %w", shared.ErrProviderTimeout, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = fmt.Errorf("%w: circuit %w", shared.ErrProviderUnavailable, err)
	}
	return &ProviderError{Provider: provider, Op: op, ID: id, Err: err}
}
