package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSession(t *testing.T) {
	t.Run("returns the cached token while fresh", func(t *testing.T) {
		clk := newClock()
		var calls atomic.Int32
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			calls.Add(1)
			return &oauth2.Token{AccessToken: "new"}, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now().Add(time.Hour)})

		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a1", tok)
		assert.Zero(t, calls.Load())
	})

	t.Run("refreshes inside the skew window and keeps the refresh token", func(t *testing.T) {
		clk := newClock()
		var gotRefresh string
		var updates []*oauth2.Token
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			gotRefresh = rt
			return &oauth2.Token{AccessToken: "a2", Expiry: clk.Now().Add(time.Hour)}, nil
		}), WithClock(clk.Now), WithTokenUpdates(func(tok *oauth2.Token) { updates = append(updates, tok) }))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now().Add(2 * time.Minute)})

		clk.Advance(61 * time.Second)
		tok, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a2", tok)
		assert.Equal(t, "r1", gotRefresh)

		current := s.Current()
		assert.Equal(t, "r1", current.RefreshToken, "refresh token kept when the response omits it")
		assert.Equal(t, clk.Now().Add(time.Hour), current.Expiry)
		require.Len(t, updates, 2)
		assert.Equal(t, "a2", updates[1].AccessToken)
	})

	t.Run("rotated refresh token replaces the old one", func(t *testing.T) {
		clk := newClock()
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "a2", RefreshToken: "r2", Expiry: clk.Now().Add(time.Hour)}, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now()})

		_, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "r2", s.Current().RefreshToken)
	})

	t.Run("concurrent stale callers share one refresh", func(t *testing.T) {
		clk := newClock()
		var calls atomic.Int32
		release := make(chan struct{})
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			calls.Add(1)
			<-release
			return &oauth2.Token{AccessToken: "shared", Expiry: clk.Now().Add(time.Hour)}, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: clk.Now().Add(-time.Minute)})

		const n = 20
		var wg sync.WaitGroup
		tokens := make([]string, n)
		errs := make([]error, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tokens[i], errs[i] = s.Token(context.Background())
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for i := range n {
			require.NoError(t, errs[i])
			assert.Equal(t, "shared", tokens[i])
		}
	})

	t.Run("refresh failure is terminal", func(t *testing.T) {
		clk := newClock()
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return nil, errors.New("invalid_grant")
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now()})

		var loggedOut atomic.Int32
		s.OnLogout(func() { loggedOut.Add(1) })

		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
		assert.Nil(t, s.Current())
		assert.False(t, s.Authenticated())
		assert.Equal(t, int32(1), loggedOut.Load())

		_, err = s.Token(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		clk := newClock()
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			t.Fatal("refresher must not be called without a refresh token")
			return nil, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", Expiry: clk.Now()})

		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
		assert.ErrorIs(t, err, shared.ErrNoRefreshToken)
	})

	t.Run("a cancelled caller does not tear down the session for other waiters", func(t *testing.T) {
		clk := newClock()
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			calls.Add(1)
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &oauth2.Token{AccessToken: "fresh", Expiry: clk.Now().Add(time.Hour)}, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: clk.Now().Add(-time.Minute)})

		var loggedOut atomic.Int32
		s.OnLogout(func() { loggedOut.Add(1) })

		ctxA, cancelA := context.WithCancel(context.Background())
		errA := make(chan error, 1)
		go func() {
			_, err := s.Token(ctxA)
			errA <- err
		}()
		<-started

		type result struct {
			tok string
			err error
		}
		resB := make(chan result, 1)
		go func() {
			tok, err := s.Token(context.Background())
			resB <- result{tok, err}
		}()
		time.Sleep(50 * time.Millisecond)

		cancelA()
		select {
		case err := <-errA:
			assert.ErrorIs(t, err, context.Canceled)
			assert.NotErrorIs(t, err, shared.ErrAuthRequired)
		case <-time.After(time.Second):
			t.Fatal("cancelled caller kept waiting on the refresh")
		}

		close(release)
		b := <-resB
		require.NoError(t, b.err)
		assert.Equal(t, "fresh", b.tok)
		assert.Equal(t, int32(1), calls.Load())
		assert.Zero(t, loggedOut.Load())
		require.NotNil(t, s.Current())
		assert.Equal(t, "fresh", s.Current().AccessToken)
	})

	t.Run("an interrupted refresh keeps the session", func(t *testing.T) {
		clk := newClock()
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return nil, context.DeadlineExceeded
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now()})

		var loggedOut atomic.Int32
		s.OnLogout(func() { loggedOut.Add(1) })

		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, shared.ErrAuthRequired)
		assert.Zero(t, loggedOut.Load())
		assert.Equal(t, "a1", s.Current().AccessToken)
	})

	t.Run("ForceRefresh ignores expiry", func(t *testing.T) {
		clk := newClock()
		var calls atomic.Int32
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			calls.Add(1)
			return &oauth2.Token{AccessToken: "forced", Expiry: clk.Now().Add(time.Hour)}, nil
		}), WithClock(clk.Now))
		s.Set(&oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: clk.Now().Add(time.Hour)})

		tok, err := s.ForceRefresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "forced", tok)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("logged out session", func(t *testing.T) {
		s := NewSession(RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return nil, nil
		}))
		_, err := s.Token(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
		_, err = s.ForceRefresh(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
	})
}
