package main

import (
	"context"

	"github.com/desertthunder/altplay/internal/auth"
	"github.com/desertthunder/altplay/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the backend HTTP API until ctx is cancelled.
//
// Search and stream routes always use the local provider pipeline. Login and callback need the
// catalog credentials; without them the server still starts and those routes answer 503.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	var res server.Resolver = r.resolver
	if res == nil {
		res = r.pipeline()
	}

	opts := server.Options{
		Resolver:    res,
		FrontendURL: r.config.Server.FrontendURL,
		Logger:      r.logger,
		Release:     cmd.Bool("release"),
	}

	if oauthConfig, err := auth.NewOAuthConfig(r.config.Credentials.Spotify); err != nil {
		r.logger.Warn("login is disabled", "error", err)
	} else {
		opts.OAuth = oauthConfig
	}

	r.logger.Info("starting server", "addr", addr, "login", opts.OAuth != nil)
	return server.New(opts).Run(ctx, addr)
}
