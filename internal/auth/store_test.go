package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/repositories"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenStore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		kv := repositories.NewMemoryStore()
		expiry := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
		require.NoError(t, SaveToken(kv, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}))

		tok, err := LoadToken(kv)
		require.NoError(t, err)
		require.NotNil(t, tok)
		assert.Equal(t, "a", tok.AccessToken)
		assert.Equal(t, "r", tok.RefreshToken)
		assert.True(t, expiry.Equal(tok.Expiry))
	})

	t.Run("missing session", func(t *testing.T) {
		tok, err := LoadToken(repositories.NewMemoryStore())
		assert.NoError(t, err)
		assert.Nil(t, tok)
	})

	t.Run("corrupt session", func(t *testing.T) {
		kv := repositories.NewMemoryStore()
		require.NoError(t, kv.Set(models.KeySession, "{"))
		_, err := LoadToken(kv)
		assert.Error(t, err)
	})

	t.Run("saving nil deletes", func(t *testing.T) {
		kv := repositories.NewMemoryStore()
		require.NoError(t, SaveToken(kv, &oauth2.Token{AccessToken: "a"}))
		require.NoError(t, SaveToken(kv, nil))
		_, ok, _ := kv.Get(models.KeySession)
		assert.False(t, ok)
	})
}

func TestRestore(t *testing.T) {
	t.Run("installs the saved token and persists refreshes", func(t *testing.T) {
		clk := newClock()
		kv := repositories.NewMemoryStore()
		require.NoError(t, SaveToken(kv, &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: clk.Now().Add(-time.Minute)}))

		refresher := RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "new", Expiry: clk.Now().Add(time.Hour)}, nil
		})
		var updates int
		s, err := Restore(kv, refresher, WithClock(clk.Now), WithTokenUpdates(func(*oauth2.Token) { updates++ }))
		require.NoError(t, err)
		assert.True(t, s.Authenticated())

		access, err := s.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new", access)

		saved, err := LoadToken(kv)
		require.NoError(t, err)
		assert.Equal(t, "new", saved.AccessToken)
		assert.Equal(t, "r", saved.RefreshToken)
		assert.Positive(t, updates)
	})

	t.Run("logout clears player state", func(t *testing.T) {
		kv := repositories.NewMemoryStore()
		require.NoError(t, kv.Set(models.KeyQueue, "[]"))
		require.NoError(t, kv.Set(models.KeyVolume, "0.50"))
		require.NoError(t, SaveToken(kv, &oauth2.Token{AccessToken: "a"}))

		s, err := Restore(kv, RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return nil, errors.New("unused")
		}))
		require.NoError(t, err)
		s.Logout()

		keys, err := kv.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.False(t, s.Authenticated())
	})

	t.Run("failed refresh logs out", func(t *testing.T) {
		clk := newClock()
		kv := repositories.NewMemoryStore()
		require.NoError(t, SaveToken(kv, &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: clk.Now().Add(-time.Minute)}))

		s, err := Restore(kv, RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			return nil, errors.New("invalid_grant")
		}), WithClock(clk.Now))
		require.NoError(t, err)

		_, err = s.Token(context.Background())
		assert.ErrorIs(t, err, shared.ErrAuthRequired)
		tok, _ := LoadToken(kv)
		assert.Nil(t, tok)
	})

	t.Run("corrupt session still yields a session", func(t *testing.T) {
		kv := repositories.NewMemoryStore()
		require.NoError(t, kv.Set(models.KeySession, "not json"))
		s, err := Restore(kv, nil)
		assert.Error(t, err)
		require.NotNil(t, s)
		assert.False(t, s.Authenticated())
	})
}
