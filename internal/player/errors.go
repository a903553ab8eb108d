package player

import (
	"context"
	"errors"
	"net"

	"github.com/desertthunder/altplay/internal/shared"
)

var (
	ErrEngineRunning = errors.New("engine already running")
	ErrEngineStopped = errors.New("engine stopped")
)

// FailureClass buckets load and playback failures by how the engine reacts.
type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureExtraction
	FailureDecode
	FailureAuth
	FailureRateLimited
	FailureNetwork
	FailureUnknown
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureExtraction:
		return "extraction"
	case FailureDecode:
		return "decode"
	case FailureAuth:
		return "auth"
	case FailureRateLimited:
		return "rate_limited"
	case FailureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

const (
	MessageExhausted = "Could not find a playable stream for this track."
	MessageDecode    = "This stream could not be played."
	MessageGeneric   = "Playback failed. Try again or pick another track."
)

// Classify maps err onto a [FailureClass].
func Classify(err error) FailureClass {
	var netErr net.Error
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, shared.ErrAllProvidersExhausted),
		errors.Is(err, shared.ErrNoPlayableFormat),
		errors.Is(err, shared.ErrNoResults):
		return FailureExtraction
	case errors.Is(err, shared.ErrPlaybackDecode):
		return FailureDecode
	case errors.Is(err, shared.ErrAuthRequired):
		return FailureAuth
	case errors.Is(err, shared.ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, shared.ErrProviderTimeout),
		errors.Is(err, shared.ErrProviderUnavailable),
		errors.Is(err, shared.ErrAPIRequest),
		errors.As(err, &netErr):
		return FailureNetwork
	default:
		return FailureUnknown
	}
}

// Message is the user-visible text for class. Auth failures show nothing.
func (c FailureClass) Message() string {
	switch c {
	case FailureNone, FailureAuth:
		return ""
	case FailureExtraction:
		return MessageExhausted
	case FailureDecode:
		return MessageDecode
	default:
		return MessageGeneric
	}
}
