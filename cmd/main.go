package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/desertthunder/spotctl/internal/ui"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// envConfigPath points at an alternative config file.
const envConfigPath = "SPOTCTL_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := "config.toml"
	if p, ok := os.LookupEnv(envConfigPath); ok && p != "" {
		configPath = p
	}

	config, err := loadConfig(configPath, os.LookupEnv)
	if err != nil {
		logger.Fatal("invalid configuration", "path", configPath, "error", err)
	}
	shared.SetLogLevel(logger, config.LogLevel)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "spotctl",
		Usage:    "Control Spotify playback from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		code := handleError(os.Stderr, logger, err)
		runner.Close()
		os.Exit(code)
	}
}

// loadConfig reads path when it exists, falling back to the embedded defaults, then applies
// environment overrides and validates the result.
func loadConfig(path string, lookup func(string) (string, bool)) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	config.ApplyEnv(lookup)
	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// handleError prints err for the user and returns the process exit code.
func handleError(w io.Writer, logger *log.Logger, err error) int {
	var done reportedError
	if errors.As(err, &done) {
		return 1
	}

	var apiErr *api.Error
	switch {
	case errors.Is(err, shared.ErrNoActiveDevice), api.KindOf(err) == api.NotFound:
		fmt.Fprintln(w, ui.NoDeviceAlert())
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrNoRefreshToken):
		fmt.Fprintln(w, ui.Alert("Not signed in", "Run 'spotctl auth login' first."))
	case errors.Is(err, shared.ErrMissingCredentials):
		fmt.Fprintln(w, ui.Alert("Missing Spotify app credentials", err.Error()))
	case errors.As(err, &apiErr):
		fmt.Fprintln(w, ui.ErrorAlert(apiErr))
	default:
		logger.Error("application error", "error", err)
	}
	return 1
}
