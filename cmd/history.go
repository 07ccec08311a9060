package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints plays stored by player recent --save.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.historyRepository()
	if err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("listing history", "stored", total, "limit", limit)

	records, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}
	return r.render(records, format, cmd.String("output"))
}

// HistoryPrune deletes plays older than --older-than.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	repo, err := r.historyRepository()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-age)
	removed, err := repo.Prune(ctx, cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("history pruned", "cutoff", cutoff.Format(time.RFC3339), "removed", removed)
	return r.writePlain("✓ Removed %d plays older than %s\n", removed, cutoff.Format("2006-01-02"))
}
