package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/auth"
	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/repositories"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/desertthunder/spotctl/internal/ui"
	"github.com/urfave/cli/v3"
)

// keyringService namespaces spotctl's entries in the OS keyring.
const keyringService = "spotctl"

// defaultLoginTimeout bounds how long auth login waits for the browser redirect.
const defaultLoginTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built on first use so commands like setup config work without credentials or a database.
type Runner struct {
	config       *shared.Config
	configPath   string
	logger       *log.Logger
	output       io.Writer
	errOutput    io.Writer
	openBrowser  func(string) error
	loginTimeout time.Duration

	store      credentials.Store
	db         *sql.DB
	authorizer *auth.Authorizer
	client     *api.Client
	player     *player.Service
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer

	// Store replaces the backend selected by Config.Auth.Storage.
	Store credentials.Store
	// DB replaces the database opened from Config.Database.
	DB *sql.DB

	OpenBrowser  func(string) error
	LoginTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.LoginTimeout <= 0 {
		opts.LoginTimeout = defaultLoginTimeout
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		logger:       opts.Logger,
		output:       opts.Output,
		errOutput:    opts.ErrOutput,
		openBrowser:  opts.OpenBrowser,
		loginTimeout: opts.LoginTimeout,
		store:        opts.Store,
		db:           opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playerCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// database opens and migrates the configured database once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	path, err := shared.ExpandPath(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	cfg := r.config.Database
	cfg.Path = path

	r.logger.Debug("opening database", "path", cfg.Path)
	db, err := shared.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// credentialStore returns the backend named by auth.storage.
func (r *Runner) credentialStore() (credentials.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	var (
		store credentials.Store
		err   error
	)
	switch r.config.Auth.Storage {
	case shared.StorageFile:
		var path string
		if path, err = shared.ExpandPath(r.config.Auth.File); err != nil {
			return nil, err
		}
		store, err = credentials.NewFileStore(path)
	case shared.StorageKeyring:
		store, err = credentials.NewKeyringStore(keyringService, r.config.Auth.KeyringUser)
	case shared.StorageSQLite:
		var db *sql.DB
		if db, err = r.database(); err != nil {
			return nil, err
		}
		store, err = credentials.NewSQLiteStore(db)
	case shared.StorageMemory:
		store = credentials.NewMemoryStore(credentials.Credential{})
	default:
		return nil, fmt.Errorf("%w: unknown auth.storage %q", shared.ErrInvalidConfig, r.config.Auth.Storage)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s credential store: %w", r.config.Auth.Storage, err)
	}

	r.logger.Debug("credential store ready", "storage", r.config.Auth.Storage)
	r.store = store
	return store, nil
}

func (r *Runner) getAuthorizer() (*auth.Authorizer, error) {
	if r.authorizer != nil {
		return r.authorizer, nil
	}
	if !r.config.HasClientCredentials() {
		return nil, fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s or %s/%s",
			shared.ErrMissingCredentials, r.configName(), shared.EnvClientID, shared.EnvClientSecret)
	}

	store, err := r.credentialStore()
	if err != nil {
		return nil, err
	}

	a, err := auth.NewAuthorizer(r.config.Credentials.Spotify, r.config.API.AccountsURL, store,
		auth.WithTimeout(r.config.API.Timeout()),
		auth.WithLogger(shared.WithLogger(r.logger, "component", "auth")),
	)
	if err != nil {
		return nil, err
	}
	r.authorizer = a
	return a, nil
}

func (r *Runner) apiClient() (*api.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	authorizer, err := r.getAuthorizer()
	if err != nil {
		return nil, err
	}
	store, err := r.credentialStore()
	if err != nil {
		return nil, err
	}

	c, err := api.NewClient(store, authorizer,
		api.WithTimeout(r.config.API.Timeout()),
		api.WithRateLimit(r.config.API.RequestsPerSecond),
		api.WithLogger(shared.WithLogger(r.logger, "component", "api")),
	)
	if err != nil {
		return nil, err
	}
	r.client = c
	return c, nil
}

func (r *Runner) playerService() (*player.Service, error) {
	if r.player != nil {
		return r.player, nil
	}

	client, err := r.apiClient()
	if err != nil {
		return nil, err
	}
	r.player = player.NewService(client, r.config.API.BaseURL)
	return r.player, nil
}

// controller builds a [player.Controller] that prints to the runner's outputs.
func (r *Runner) controller(asJSON bool) (*player.Controller, error) {
	svc, err := r.playerService()
	if err != nil {
		return nil, err
	}

	printer := ui.NewPrinter(r.output, r.errOutput, asJSON)
	return player.NewController(svc, printer,
		player.WithSettleDelay(r.config.Player.SettleDelay()),
		player.WithPollAttempts(r.config.Player.PollAttempts),
		player.WithControllerLogger(shared.WithLogger(r.logger, "component", "player")),
	), nil
}

func (r *Runner) historyRepository() (*repositories.HistoryRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewHistoryRepository(db), nil
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeRaw writes pre-rendered output unchanged.
func (r *Runner) writeRaw(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}
