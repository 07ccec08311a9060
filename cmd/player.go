package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/repositories"
	"github.com/urfave/cli/v3"
)

// PlayerStatus prints the current playback state.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	c, err := r.controller(cmd.Bool("json"))
	if err != nil {
		return err
	}
	return reported(c.Refresh(ctx))
}

// PlayerPlay resumes playback.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	return r.playerCommand(ctx, "play", (*player.Controller).Play)
}

// PlayerPause pauses playback.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	return r.playerCommand(ctx, "pause", (*player.Controller).Pause)
}

// PlayerNext skips to the next track.
func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	return r.playerCommand(ctx, "next", (*player.Controller).Next)
}

// PlayerPrevious goes back one track.
func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	return r.playerCommand(ctx, "previous", (*player.Controller).Previous)
}

// playerCommand reads the state before running fn so the controller can tell when the command took effect.
func (r *Runner) playerCommand(ctx context.Context, name string, fn func(*player.Controller, context.Context) error) error {
	c, err := r.controller(false)
	if err != nil {
		return err
	}

	if err := c.Sync(ctx); err != nil {
		r.logger.Debug("could not read state before command", "command", name, "error", err)
	}

	r.logger.Debug("sending playback command", "command", name)
	return reported(fn(c, ctx))
}

// PlayerRecent lists recently played tracks, optionally caching them in the history database.
func (r *Runner) PlayerRecent(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	save := cmd.Bool("save")
	output := cmd.String("output")

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.playerService()
	if err != nil {
		return err
	}

	r.logger.Info("fetching recently played", "limit", limit)
	history, err := svc.RecentlyPlayed(ctx, limit)
	if err != nil {
		return err
	}

	records := make([]*models.PlayRecord, 0, len(history.Items))
	for _, item := range history.Items {
		records = append(records, repositories.RecordFromItem(item))
	}

	if save {
		repo, err := r.historyRepository()
		if err != nil {
			return err
		}
		added, err := repo.SaveAll(ctx, records)
		if err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}
		r.logger.Info("history saved", "fetched", len(records), "added", added)
	}

	return r.render(records, format, output)
}

// render writes history in format to output, or stdout when output is empty.
func (r *Runner) render(records []*models.PlayRecord, format formatter.Format, output string) error {
	data, err := formatter.History(records, format)
	if err != nil {
		return err
	}

	if output == "" {
		return r.writeRaw(data)
	}
	if err := formatter.WriteFile(output, data); err != nil {
		return err
	}
	return r.writePlain("✓ Wrote %d plays to %s\n", len(records), output)
}
