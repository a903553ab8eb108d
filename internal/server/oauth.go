package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/altplay/internal/auth"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	defaultFrontendURL = "http://127.0.0.1:5173"
	loginStateTTL      = 10 * time.Minute
)

// loginStates maps the OAuth state parameter to the frontend that started the login.
type loginStates struct {
	mu      sync.Mutex
	pending map[string]loginState
	now     func() time.Time
}

type loginState struct {
	frontendURL string
	created     time.Time
}

func newLoginStates(now func() time.Time) *loginStates {
	return &loginStates{pending: make(map[string]loginState), now: now}
}

// add stores frontendURL under a fresh state and drops expired entries.
func (l *loginStates) add(frontendURL string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, v := range l.pending {
		if now.Sub(v.created) > loginStateTTL {
			delete(l.pending, k)
		}
	}
	state := shared.GenerateID()
	l.pending[state] = loginState{frontendURL: frontendURL, created: now}
	return state
}

// take consumes state. Unknown or expired states report false.
func (l *loginStates) take(state string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.pending[state]
	if !ok {
		return "", false
	}
	delete(l.pending, state)
	if l.now().Sub(v.created) > loginStateTTL {
		return "", false
	}
	return v.frontendURL, true
}

func (s *Server) frontendURL() string {
	if s.opts.FrontendURL != "" {
		return s.opts.FrontendURL
	}
	return defaultFrontendURL
}

// login redirects to the catalog authorize page.
func (s *Server) login(c *gin.Context) {
	if s.opts.OAuth == nil {
		s.fail(c, fmt.Errorf("%w: catalog login is not configured", shared.ErrMissingCredentials))
		return
	}
	frontend := strings.TrimSpace(c.Query("frontend_url"))
	if frontend == "" {
		frontend = s.frontendURL()
	}
	if u, err := url.Parse(frontend); err != nil || u.Scheme == "" || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frontend_url"})
		return
	}

	state := s.logins.add(frontend)
	c.Redirect(http.StatusFound, s.opts.OAuth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "false")))
}

// callback exchanges the authorization code and hands the token pair to the frontend.
func (s *Server) callback(c *gin.Context) {
	frontend, ok := s.logins.take(c.Query("state"))
	if !ok {
		s.logger.Warn("login callback with unknown state")
		c.Redirect(http.StatusFound, loginError(s.frontendURL(), "invalid_state"))
		return
	}
	if e := c.Query("error"); e != "" {
		c.Redirect(http.StatusFound, loginError(frontend, e))
		return
	}
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, loginError(frontend, "no_code"))
		return
	}
	if s.opts.OAuth == nil {
		c.Redirect(http.StatusFound, loginError(frontend, "server_error"))
		return
	}

	tok, err := s.opts.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		s.logger.Error("token exchange failed", "error", err)
		c.Redirect(http.StatusFound, loginError(frontend, "token_exchange_failed"))
		return
	}

	q := url.Values{
		"token":         {tok.AccessToken},
		"refresh_token": {tok.RefreshToken},
		"expires_in":    {strconv.Itoa(auth.ExpiresIn(tok, s.opts.Now()))},
	}
	c.Redirect(http.StatusFound, withQuery(frontend, q))
}

// refreshToken trades a refresh token for a new access token. Failures are 401.
func (s *Server) refreshToken(c *gin.Context) {
	rt := c.Query("refresh_token")
	if rt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	if s.opts.Refresher == nil {
		s.fail(c, fmt.Errorf("%w: catalog login is not configured", shared.ErrMissingCredentials))
		return
	}

	tok, err := s.opts.Refresher.Refresh(c.Request.Context(), rt)
	if err != nil {
		s.logger.Warn("refresh failed", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token refresh failed"})
		return
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = rt
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tok.AccessToken,
		"refresh_token": refresh,
		"expires_in":    auth.ExpiresIn(tok, s.opts.Now()),
	})
}

func loginError(frontend, reason string) string {
	return withQuery(strings.TrimRight(frontend, "/")+"/login", url.Values{"error": {reason}})
}

func withQuery(base string, q url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// TokenResult is what a [TokenReceiver] got from the backend redirect.
type TokenResult struct {
	Token *oauth2.Token
	err   error
}

func (r *TokenResult) Error() error {
	return r.err
}

// TokenReceiver is the local page the backend login redirects to when the CLI logs in.
//
// It reads token, refresh_token and expires_in from the query and sends them
// through [TokenReceiver.Result]. Only the first request is honored.
type TokenReceiver struct {
	resultChan chan TokenResult
	once       sync.Once
	mu         sync.Mutex
	hit        bool
	now        func() time.Time
}

func NewTokenReceiver() *TokenReceiver {
	return &TokenReceiver{resultChan: make(chan TokenResult, 1), now: time.Now}
}

// Routes returns the paths the receiver serves. The error redirect lands on /login, under "/".
func (h *TokenReceiver) Routes() []string {
	return []string{"/"}
}

func (h *TokenReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		http.NotFound(w, r)
		return
	}

	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Login already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.Send(TokenResult{err: fmt.Errorf("%w: login failed: %s", shared.ErrAuthRequired, e)})
		http.Error(w, "Login failed: "+e, http.StatusBadRequest)
		return
	}
	access := q.Get("token")
	if access == "" {
		h.Send(TokenResult{err: fmt.Errorf("%w: login redirect carried no token", shared.ErrAuthRequired)})
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}
	expiresIn, _ := strconv.Atoi(q.Get("expires_in"))
	h.Send(TokenResult{Token: auth.TokenFromExpiresIn(access, q.Get("refresh_token"), expiresIn, h.now())})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Logged in</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>Logged in</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// Send delivers result once.
func (h *TokenReceiver) Send(result TokenResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *TokenReceiver) Result() <-chan TokenResult {
	return h.resultChan
}
