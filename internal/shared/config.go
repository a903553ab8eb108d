package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ALTPLAY_"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server" envPrefix:"SERVER_"`
	Database    DatabaseConfig    `toml:"database" envPrefix:"DATABASE_"`
	Credentials CredentialsConfig `toml:"credentials" envPrefix:"CREDENTIALS_"`
	Backend     BackendConfig     `toml:"backend" envPrefix:"BACKEND_"`
	Providers   ProvidersConfig   `toml:"providers" envPrefix:"PROVIDERS_"`
	Player      PlayerConfig      `toml:"player" envPrefix:"PLAYER_"`
	Log         LogConfig         `toml:"log" envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server settings for the backend API.
type ServerConfig struct {
	Host        string `toml:"host" env:"HOST"`
	Port        int    `toml:"port" env:"PORT"`
	FrontendURL string `toml:"frontend_url" env:"FRONTEND_URL"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify" envPrefix:"SPOTIFY_"`
}

// SpotifyConfig contains the catalog OAuth application credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `toml:"client_secret" env:"CLIENT_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"REDIRECT_URI"`
	Scopes       []string `toml:"scopes" env:"SCOPES" envSeparator:","`
}

// BackendConfig tells clients where the backend API and the catalog API live.
type BackendConfig struct {
	URL        string        `toml:"url" env:"URL"`
	CatalogURL string        `toml:"catalog_url" env:"CATALOG_URL"`
	Timeout    time.Duration `toml:"timeout" env:"TIMEOUT"`
}

// ProvidersConfig lists the upstream stream/search provider instances in fallback order.
type ProvidersConfig struct {
	Invidious         []string      `toml:"invidious" env:"INVIDIOUS" envSeparator:","`
	Piped             []string      `toml:"piped" env:"PIPED" envSeparator:","`
	InvidiousTimeout  time.Duration `toml:"invidious_timeout" env:"INVIDIOUS_TIMEOUT"`
	PipedTimeout      time.Duration `toml:"piped_timeout" env:"PIPED_TIMEOUT"`
	YTDLPEnabled      bool          `toml:"ytdlp_enabled" env:"YTDLP_ENABLED"`
	YTDLPTimeout      time.Duration `toml:"ytdlp_timeout" env:"YTDLP_TIMEOUT"`
	RequestsPerSecond float64       `toml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int           `toml:"burst" env:"BURST"`
	BreakerFailures   uint32        `toml:"breaker_failures" env:"BREAKER_FAILURES"`
	BreakerOpen       time.Duration `toml:"breaker_open" env:"BREAKER_OPEN"`
	UserAgent         string        `toml:"user_agent" env:"USER_AGENT"`
}

// PlayerConfig tunes the playback engine.
type PlayerConfig struct {
	CheckpointInterval time.Duration `toml:"checkpoint_interval" env:"CHECKPOINT_INTERVAL"`
	PrefetchDwell      time.Duration `toml:"prefetch_dwell" env:"PREFETCH_DWELL"`
	RetryDelay         time.Duration `toml:"retry_delay" env:"RETRY_DELAY"`
	ResolveTimeout     time.Duration `toml:"resolve_timeout" env:"RESOLVE_TIMEOUT"`
	Volume             float64       `toml:"volume" env:"VOLUME"`
	// Sink is "virtual" or "command".
	Sink    string `toml:"sink" env:"SINK"`
	Command string `toml:"command" env:"COMMAND"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"`
	File  string `toml:"file" env:"FILE"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigWithEnv loads the file at path (falling back to the embedded defaults when it does not exist),
// then applies .env and ALTPLAY_* environment overrides.
func LoadConfigWithEnv(path string, envFiles ...string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		config = DefaultConfig()
	}

	if err := ApplyEnv(config, envFiles...); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv loads the given .env files (missing files are ignored) and overlays ALTPLAY_* variables onto config.
func ApplyEnv(config *Config, envFiles ...string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, f, err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
