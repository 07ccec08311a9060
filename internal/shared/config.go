package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override the Spotify application credentials.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
)

// Credential storage backends.
const (
	StorageFile    = "file"
	StorageKeyring = "keyring"
	StorageSQLite  = "sqlite"
	StorageMemory  = "memory"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LogLevel    string            `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	API         APIConfig         `toml:"api"`
	Player      PlayerConfig      `toml:"player"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the Spotify application (client) credentials.
// Empty credentials are valid here; commands that talk to Spotify check
// [SpotifyConfig.HasClientCredentials] before use.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri" validate:"required,url"`
}

// AuthConfig selects where the user's token pair is persisted.
type AuthConfig struct {
	Storage     string `toml:"storage" validate:"required,oneof=file keyring sqlite memory"`
	File        string `toml:"file"`
	KeyringUser string `toml:"keyring_user"`
}

// APIConfig contains Spotify Web API endpoints and request pacing.
type APIConfig struct {
	BaseURL           string  `toml:"base_url" validate:"required,url"`
	AccountsURL       string  `toml:"accounts_url" validate:"required,url"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
	TimeoutSeconds    int     `toml:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the per-request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PlayerConfig tunes how playback state is re-read after a command.
type PlayerConfig struct {
	SettleDelayMS int `toml:"settle_delay_ms" validate:"gte=0"`
	PollAttempts  int `toml:"poll_attempts" validate:"gte=0"`
}

// SettleDelay returns the wait before the first state poll after a command.
func (p PlayerConfig) SettleDelay() time.Duration {
	return time.Duration(p.SettleDelayMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host" validate:"required"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// Address returns host:port for the callback listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides the Spotify client credentials with any values found through lookup (usually [os.LookupEnv]).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvClientID); ok && v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok && v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v, ok := lookup(EnvRedirectURI); ok && v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
}

// ApplyDefaults fills settings that depend on the environment, such as the keyring user.
func (c *Config) ApplyDefaults() error {
	if c.Auth.Storage == StorageKeyring && c.Auth.KeyringUser == "" {
		current, err := user.Current()
		if err != nil {
			return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
		}
		c.Auth.KeyringUser = current.Username
	}
	return nil
}

// Validate checks struct tags and the storage-specific settings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Auth.Storage {
	case StorageFile:
		if c.Auth.File == "" {
			return fmt.Errorf("%w: auth.file required for file storage", ErrInvalidConfig)
		}
	case StorageKeyring:
		if c.Auth.KeyringUser == "" {
			return fmt.Errorf("%w: auth.keyring_user required for keyring storage", ErrInvalidConfig)
		}
	}

	return nil
}

// HasClientCredentials reports whether real Spotify client credentials are configured (not the example placeholders).
func (c *Config) HasClientCredentials() bool {
	s := c.Credentials.Spotify
	return s.ClientID != "" && s.ClientSecret != "" && !strings.HasPrefix(s.ClientID, "your_") && !strings.HasPrefix(s.ClientSecret, "your_")
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Join(ErrInvalidConfig, err)
	}
	return filepath.Join(home, path[2:]), nil
}
