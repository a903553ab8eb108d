package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/altplay/internal/formatter"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search runs a query against the search providers and prints the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	res, err := r.pickResolver(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("searching", "query", query)
	results, err := res.Search(ctx, query)
	if err != nil {
		return err
	}
	r.recordSearch(query, len(results))

	if limit := cmd.Int("limit"); limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return formatter.WriteResults(r.output, results, format)
}

// recordSearch keeps the query in the local history. Failures are only logged.
func (r *Runner) recordSearch(query string, count int) {
	if _, err := r.openStore(); err != nil {
		r.logger.Debug("search history unavailable", "error", err)
		return
	}
	history := r.history()
	if history == nil {
		return
	}
	if err := history.Record(query, count); err != nil {
		r.logger.Warn("failed to record search", "error", err)
	}
}

// Trending prints the trending tracks.
func (r *Runner) Trending(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	res, err := r.pickResolver(cmd)
	if err != nil {
		return err
	}

	results, err := res.Trending(ctx)
	if err != nil {
		return err
	}
	return formatter.WriteResults(r.output, results, format)
}

// Resolve resolves a track id, or the first playable result of --query, and prints the stream.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().First())
	query := strings.TrimSpace(cmd.String("query"))
	if id == "" && query == "" {
		return fmt.Errorf("%w: track id or --query", shared.ErrMissingArgument)
	}
	format := cmd.String("format")
	if !formatter.ValidFormat(format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	res, err := r.pickResolver(cmd)
	if err != nil {
		return err
	}

	var desc *models.StreamDescriptor
	if id != "" {
		r.logger.Info("resolving", "id", id)
		desc, err = res.ResolveID(ctx, id)
	} else {
		r.logger.Info("resolving", "query", query)
		desc, err = res.SearchAndResolve(ctx, query)
	}
	if err != nil {
		return err
	}
	return formatter.WriteDescriptor(r.output, desc, format)
}
