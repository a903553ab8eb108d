package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/altplay/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// NewOAuthConfig builds the catalog [oauth2.Config] from configured credentials.
func NewOAuthConfig(creds shared.SpotifyConfig) (*oauth2.Config, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, nil
}

// OAuthRefresher refreshes against the catalog token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

var _ Refresher = (*OAuthRefresher)(nil)

// NewOAuthRefresher creates a [Refresher] backed by config.
func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{config: config}
}

// Refresh exchanges refreshToken for a new token. The endpoint may omit a rotated refresh token.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := r.config.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return tok, nil
}

// ExpiresIn returns the whole seconds until tok expires, or 0 when unknown or past.
func ExpiresIn(tok *oauth2.Token, now time.Time) int {
	if tok == nil || tok.Expiry.IsZero() {
		return 0
	}
	secs := int(tok.Expiry.Sub(now) / time.Second)
	return max(secs, 0)
}

// TokenFromExpiresIn builds a bearer token that expires expiresIn seconds after now.
func TokenFromExpiresIn(access, refresh string, expiresIn int, now time.Time) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if expiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(expiresIn) * time.Second)
	}
	return tok
}
