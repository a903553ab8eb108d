package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/altplay/internal/server"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultLoginTimeout = 5 * time.Minute

// AuthLogin runs the backend login in the browser and saves the token pair it hands back.
//
// A local [server.TokenReceiver] is the "frontend" the backend redirects to after the catalog callback.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	backend, _, session, err := r.clients()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cmd.Int("port"))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	receiver := server.NewTokenReceiver()
	mux := http.NewServeMux()
	for _, route := range receiver.Routes() {
		mux.Handle(route, receiver)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("login receiver failed", "error", err)
		}
	}()
	defer srv.Close()

	loginURL := backend.LoginURL("http://" + addr)
	r.logger.Debug("login url", "url", loginURL)

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to log in:\n%s\n", loginURL)
	} else if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to log in:\n%s\n", loginURL)
	} else {
		r.writePlain("Waiting for the browser login...\n")
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}

	select {
	case res := <-receiver.Result():
		if err := res.Error(); err != nil {
			return err
		}
		session.Set(res.Token)
	case <-time.After(timeout):
		return fmt.Errorf("%w: login timed out after %s", shared.ErrAuthRequired, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Info("login successful")
	r.writePlainln("✓ Logged in")
	return nil
}

// AuthStatus prints the saved session and, when logged in, the catalog account.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	_, catalog, session, err := r.clients()
	if err != nil {
		return err
	}

	tok := session.Current()
	if tok == nil {
		return r.writePlain("Authentication: ✗ Not logged in\nRun 'altplay auth login' to connect your library.\n")
	}

	r.writePlain("Authentication: ✓ Logged in\n")
	if !tok.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", tok.Expiry.Local().Format(time.RFC1123))
	}
	r.writePlain("Refresh token: %v\n", tok.RefreshToken != "")

	user, err := catalog.Me(ctx)
	if err != nil {
		r.logger.Warn("failed to fetch account", "error", err)
		return r.writePlain("Account: unavailable (%v)\n", err)
	}
	return r.writePlain("Account: %s (%s)\n", user.DisplayName, user.ID)
}

// AuthLogout forgets the session. Logging out also clears the saved queue and position.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	_, _, session, err := r.clients()
	if err != nil {
		return err
	}
	session.Logout()
	r.logger.Info("logged out")
	return r.writePlain("✓ Logged out\n")
}
