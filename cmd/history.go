package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/altplay/internal/repositories"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) historyRepo() (*repositories.HistoryRepository, error) {
	if _, err := r.openStore(); err != nil {
		return nil, err
	}
	history := r.history()
	if history == nil {
		return nil, fmt.Errorf("%w: search history needs the database", shared.ErrServiceUnavailable)
	}
	return history, nil
}

// History prints the most recent searches.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	history, err := r.historyRepo()
	if err != nil {
		return err
	}

	entries, err := history.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if entries == nil {
			entries = []repositories.HistoryEntry{}
		}
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No searches yet.\n")
	}
	for _, e := range entries {
		r.writePlain("%s  %-40s %d results\n", e.SearchedAt.Local().Format(time.DateTime), e.Query, e.ResultCount)
	}
	return nil
}

// HistoryClear deletes every recorded search.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	history, err := r.historyRepo()
	if err != nil {
		return err
	}

	n, err := history.Clear()
	if err != nil {
		return err
	}
	r.logger.Info("search history cleared", "entries", n)
	return r.writePlain("✓ Cleared %d searches\n", n)
}
