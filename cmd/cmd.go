// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/spotctl/internal/player"
	"github.com/urfave/cli/v3"
)

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, csv, markdown or json",
		Value:   value,
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write output to this file instead of stdout",
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify authorization lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize spotctl in the browser and store the issued tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove stored tokens",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show whether tokens are stored",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the stored refresh token for a new access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

// playerCommand handles playback state and control
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Control Spotify playback",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show what is currently playing",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.PlayerStatus,
			},
			{
				Name:   "play",
				Usage:  "Resume playback",
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:    "next",
				Aliases: []string{"skip"},
				Usage:   "Skip to the next track",
				Action:  r.PlayerNext,
			},
			{
				Name:    "previous",
				Aliases: []string{"prev"},
				Usage:   "Go back to the previous track",
				Action:  r.PlayerPrevious,
			},
			{
				Name:  "recent",
				Usage: "List recently played tracks",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of tracks to fetch (1-50)",
						Value:   20,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Store the fetched plays in the history database",
					},
					formatFlag("text"),
					outputFlag(),
				},
				Action: r.PlayerRecent,
			},
		},
	}
}

// historyCommand reads the local play history cache
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Locally stored play history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored plays, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of plays (0 for all)",
						Value:   player.MaxRecentlyPlayed,
					},
					formatFlag("text"),
					outputFlag(),
				},
				Action: r.HistoryList,
			},
			{
				Name:  "prune",
				Usage: "Delete plays older than a cutoff",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age of the oldest play to keep",
						Value: 90 * 24 * time.Hour,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}
