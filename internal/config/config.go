// Package config loads the server configuration: built-in defaults, then an
// optional YAML file, then environment overrides. The result is validated
// before use so a bad setting stops the process at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSource is the IMDB Top 250 dataset.
const DefaultSource = "https://raw.githubusercontent.com/itiievskyi/IMDB-Top-250/master/imdb_top_250.csv"

// Environment overrides.
const (
	EnvConfigPath = "MOVIESTATS_CONFIG"
	EnvSource     = "MOVIESTATS_SOURCE"
	EnvAddr       = "MOVIESTATS_ADDR"
	EnvLogLevel   = "MOVIESTATS_LOG_LEVEL"
	EnvLogFormat  = "MOVIESTATS_LOG_FORMAT"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Query   QueryConfig   `yaml:"query"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit   float64  `yaml:"rate_limit"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatasetConfig describes the one source loaded at startup.
type DatasetConfig struct {
	Source       string        `yaml:"source"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxBytes     int64         `yaml:"max_bytes"`
}

// QueryConfig holds the defaults applied when a request omits a parameter.
type QueryConfig struct {
	DefaultFrom int `yaml:"default_from"`
	DefaultTo   int `yaml:"default_to"`
	TopN        int `yaml:"top_n"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			CORSOrigins:     []string{"*"},
		},
		Dataset: DatasetConfig{
			Source:       DefaultSource,
			FetchTimeout: 30 * time.Second,
			MaxBytes:     32 << 20,
		},
		Query: QueryConfig{
			DefaultFrom: 2000,
			DefaultTo:   2023,
			TopN:        10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv copies variables from .env files into the environment without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvSource)); v != "" {
		c.Dataset.Source = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Dataset.Source == "" {
		errs = append(errs, errors.New("dataset.source is required"))
	}
	if c.Dataset.FetchTimeout <= 0 {
		errs = append(errs, errors.New("dataset.fetch_timeout must be positive"))
	}
	if c.Dataset.MaxBytes <= 0 {
		errs = append(errs, errors.New("dataset.max_bytes must be positive"))
	}
	if c.Query.TopN <= 0 {
		errs = append(errs, errors.New("query.top_n must be positive"))
	}
	if c.Query.DefaultFrom > c.Query.DefaultTo {
		errs = append(errs, fmt.Errorf("query.default_from (%d) must not exceed query.default_to (%d)",
			c.Query.DefaultFrom, c.Query.DefaultTo))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path must start with /"))
	}

	return errors.Join(errs...)
}
