package auth

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/altplay/internal/models"
	"golang.org/x/oauth2"
)

// SaveToken writes tok under [models.KeySession].
func SaveToken(kv models.StateStore, tok *oauth2.Token) error {
	if tok == nil {
		return kv.Delete(models.KeySession)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return kv.Set(models.KeySession, string(data))
}

// LoadToken reads the persisted token. A missing session returns nil without error.
func LoadToken(kv models.StateStore) (*oauth2.Token, error) {
	raw, ok, err := kv.Get(models.KeySession)
	if err != nil || !ok {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, nil
	}
	return &tok, nil
}

// Restore builds a session that persists every token it receives in kv and
// clears the stored player state on logout. A previously saved token is installed.
func Restore(kv models.StateStore, r Refresher, opts ...SessionOption) (*Session, error) {
	s := NewSession(r, opts...)
	tok, loadErr := LoadToken(kv)

	prev := s.onUpdate
	s.onUpdate = func(t *oauth2.Token) {
		if err := SaveToken(kv, t); err != nil {
			s.logger.Warn("failed to persist session", "error", err)
		}
		if prev != nil {
			prev(t)
		}
	}
	s.OnLogout(func() {
		for _, key := range models.StateKeys {
			if err := kv.Delete(key); err != nil {
				s.logger.Warn("failed to clear state", "key", key, "error", err)
			}
		}
	})

	if tok != nil {
		s.Set(tok)
	}
	return s, loadErr
}
