package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// RefreshSkew is how long before expiry a token is treated as stale.
const RefreshSkew = 60 * time.Second

// RefreshTimeout bounds a single refresh call, independently of the callers waiting on it.
const RefreshTimeout = 30 * time.Second

const refreshKey = "refresh"

// Refresher exchanges a refresh token for a new token.
// The returned token may omit RefreshToken, in which case the current one is kept.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// Session is the client's bearer credential. Safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	token     *oauth2.Token
	refresher Refresher
	group     singleflight.Group
	listeners []func()
	onUpdate  func(*oauth2.Token)
	now       func() time.Time
	logger    *log.Logger
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = shared.WithLogger(l, "component", "auth") }
}

// WithTokenUpdates registers a callback invoked after every successful refresh or [Session.Set].
func WithTokenUpdates(fn func(*oauth2.Token)) SessionOption {
	return func(s *Session) { s.onUpdate = fn }
}

// NewSession creates an empty session refreshing through r.
func NewSession(r Refresher, opts ...SessionOption) *Session {
	s := &Session{
		refresher: r,
		now:       time.Now,
		logger:    shared.WithLogger(shared.NewLogger(nil), "component", "auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set installs a token, e.g. after the login redirect or when restoring persisted state.
func (s *Session) Set(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	cp := *tok
	s.mu.Lock()
	s.token = &cp
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(&cp)
	}
}

// Current returns a copy of the cached token, or nil when logged out.
func (s *Session) Current() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil
	}
	cp := *s.token
	return &cp
}

// Authenticated reports whether a token (fresh or refreshable) is present.
func (s *Session) Authenticated() bool {
	return s.Current() != nil
}

// OnLogout registers fn to run whenever the session is torn down.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Token returns a valid access token, refreshing first when the cached one is stale.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.token
	fresh := tok != nil && s.fresh(tok)
	s.mu.Unlock()

	switch {
	case tok == nil:
		return "", shared.ErrAuthRequired
	case fresh:
		return tok.AccessToken, nil
	}
	return s.refresh(ctx, tok.AccessToken)
}

// ForceRefresh refreshes regardless of expiry, e.g. after the server rejected the current token.
// Concurrent calls share one refresh.
func (s *Session) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()

	if tok == nil {
		return "", shared.ErrAuthRequired
	}
	return s.refresh(ctx, tok.AccessToken)
}

// Logout clears the token and notifies listeners.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = nil
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (s *Session) fresh(tok *oauth2.Token) bool {
	if tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return s.now().Before(tok.Expiry.Add(-RefreshSkew))
}

// refresh replaces the token the caller saw as stale. Callers that observed the same token share one
// refresh; a caller arriving after the token already changed gets the new one without another call.
//
// The shared refresh does not inherit any caller's cancellation. A caller that gives up stops waiting
// without affecting the others.
func (s *Session) refresh(ctx context.Context, staleAccess string) (string, error) {
	ch := s.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RefreshTimeout)
		defer cancel()
		return s.doRefresh(rctx, staleAccess)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Session) doRefresh(ctx context.Context, staleAccess string) (string, error) {
	s.mu.Lock()
	var refreshToken string
	if s.token != nil {
		if s.token.AccessToken != staleAccess && s.fresh(s.token) {
			current := s.token.AccessToken
			s.mu.Unlock()
			return current, nil
		}
		refreshToken = s.token.RefreshToken
	}
	s.mu.Unlock()

	if refreshToken == "" {
		s.logger.Warn("no refresh token, logging out")
		s.Logout()
		return "", fmt.Errorf("%w: %w", shared.ErrAuthRequired, shared.ErrNoRefreshToken)
	}

	tok, err := s.refresher.Refresh(ctx, refreshToken)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("token refresh interrupted, keeping session", "err", err)
		return "", fmt.Errorf("token refresh interrupted: %w", err)
	}
	if err != nil || tok == nil || tok.AccessToken == "" {
		if err == nil {
			err = fmt.Errorf("refresh returned no access token")
		}
		s.logger.Warn("token refresh failed, logging out", "err", err)
		s.Logout()
		return "", fmt.Errorf("%w: %v", shared.ErrAuthRequired, err)
	}

	next := *tok
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}

	s.mu.Lock()
	s.token = &next
	onUpdate := s.onUpdate
	s.mu.Unlock()

	if onUpdate != nil {
		onUpdate(&next)
	}
	s.logger.Debug("token refreshed", "expiry", next.Expiry)
	return next.AccessToken, nil
}
