package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvConsumerKey    = "CRATE_DISCOGS_CONSUMER_KEY"
	EnvConsumerSecret = "CRATE_DISCOGS_CONSUMER_SECRET"
	EnvDatabaseDSN    = "CRATE_DATABASE_DSN"
	EnvDatabasePath   = "CRATE_DATABASE_PATH"
	EnvLogLevel       = "CRATE_LOG_LEVEL"
	EnvServerPort     = "CRATE_SERVER_PORT"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Discogs  DiscogsConfig  `toml:"discogs"`
	Sync     SyncConfig     `toml:"sync"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DiscogsConfig contains the application's consumer credentials and API endpoints.
type DiscogsConfig struct {
	ConsumerKey       string   `toml:"consumer_key"`
	ConsumerSecret    string   `toml:"consumer_secret"`
	BaseURL           string   `toml:"base_url" validate:"required,url"`
	AuthorizeURL      string   `toml:"authorize_url" validate:"required,url"`
	CallbackURL       string   `toml:"callback_url" validate:"omitempty,url"`
	UserAgent         string   `toml:"user_agent" validate:"required"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute" validate:"gte=0"`
}

// SyncConfig tunes the collection synchronization pipeline.
type SyncConfig struct {
	PageSize         int      `toml:"page_size" validate:"gte=1,lte=100"`
	FetchConcurrency int      `toml:"fetch_concurrency" validate:"gte=1"`
	WriteConcurrency int      `toml:"write_concurrency" validate:"gte=1"`
	MaxRetries       int      `toml:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay        Duration `toml:"base_delay"`
	MaxDelay         Duration `toml:"max_delay"`
	RunTimeout       Duration `toml:"run_timeout"`
}

// BreakerConfig configures the circuit breaker around upstream calls.
type BreakerConfig struct {
	Enabled          bool     `toml:"enabled"`
	MaxRequests      uint32   `toml:"max_requests"`
	Interval         Duration `toml:"interval"`
	Timeout          Duration `toml:"timeout"`
	FailureThreshold uint32   `toml:"failure_threshold"`
}

// DatabaseConfig contains database connection settings.
//
// Users and their tokens always live in the SQLite file at Path. Driver picks
// where synchronized catalog rows go: the same file, or the postgres DSN.
type DatabaseConfig struct {
	Driver       string `toml:"driver" validate:"oneof=sqlite3 postgres"`
	Path         string `toml:"path"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// LogConfig controls logger level and an optional log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration is a [time.Duration] that decodes from TOML strings such as "1s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults, and
// CRATE_* environment variables (optionally from a .env file) take precedence.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault is [LoadConfig], except that a missing file yields the
// embedded defaults with environment overrides applied.
func LoadConfigOrDefault(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if !errors.Is(err, ErrMissingConfig) {
		return config, err
	}

	config = DefaultConfig()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
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

// LoadEnv loads a .env file from the working directory when one exists.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvConsumerKey); v != "" {
		c.Discogs.ConsumerKey = v
	}
	if v := os.Getenv(EnvConsumerSecret); v != "" {
		c.Discogs.ConsumerSecret = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvServerPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the configuration's struct constraints.
func (c *Config) Validate() error {
	if err := Validate(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for postgres", ErrInvalidConfig)
	}
	return nil
}

// HasConsumerCredentials reports whether a consumer key and secret are configured.
func (c *Config) HasConsumerCredentials() bool {
	d := c.Discogs
	return d.ConsumerKey != "" && d.ConsumerSecret != "" &&
		d.ConsumerKey != "your_discogs_consumer_key" && d.ConsumerSecret != "your_discogs_consumer_secret"
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
