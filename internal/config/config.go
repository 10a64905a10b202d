// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/iammusic/submissions/internal/errs"
	"github.com/iammusic/submissions/internal/notify"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Rate limiter backends.
const (
	LimiterMemory   = "memory"
	LimiterPostgres = "postgres"
)

// Environment variables read by Load.
const (
	EnvDatabaseURL  = "SUBMISSIONS_DATABASE_URL"
	EnvHTTPAddr     = "SUBMISSIONS_HTTP_ADDR"
	EnvStore        = "SUBMISSIONS_STORE"
	EnvDedupWindow  = "SUBMISSIONS_DEDUP_WINDOW"
	EnvRateLimit    = "SUBMISSIONS_RATE_LIMIT"
	EnvKafkaBrokers = "SUBMISSIONS_KAFKA_BROKERS"
	EnvKafkaTopic   = "SUBMISSIONS_KAFKA_TOPIC"
)

// HTTPConfig configures the inbound server.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// StoreConfig selects the log backend.
type StoreConfig struct {
	Driver  string        `yaml:"driver"`
	Timeout time.Duration `yaml:"timeout"` // per log operation
}

// DatabaseConfig holds the log store credential. DSN is a file path for sqlite.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// DedupConfig is the duplicate-suppression policy.
// Window varies between deployments (30s vs 10m); pending a product decision.
type DedupConfig struct {
	Window time.Duration `yaml:"window"`
}

// RateLimitConfig configures per-fingerprint throttling. Disabled by default.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"`
	Pause   time.Duration `yaml:"pause"`
	Burst   int           `yaml:"burst"`
}

// Config is the complete service configuration.
type Config struct {
	HTTP      HTTPConfig         `yaml:"http"`
	Store     StoreConfig        `yaml:"store"`
	Database  DatabaseConfig     `yaml:"database"`
	Dedup     DedupConfig        `yaml:"dedup"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Kafka     notify.KafkaConfig `yaml:"kafka"`
}

// Load reads path (if non-empty), applies environment overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		c.Database.DSN = v
	}
	if v := strings.TrimSpace(getenv(EnvHTTPAddr)); v != "" {
		c.HTTP.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvStore)); v != "" {
		c.Store.Driver = v
	}
	if v := strings.TrimSpace(getenv(EnvDedupWindow)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDedupWindow, err)
		}
		c.Dedup.Window = d
	}
	if v := strings.TrimSpace(getenv(EnvRateLimit)); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "on", "yes":
			c.RateLimit.Enabled = true
		case "0", "false", "off", "no":
			c.RateLimit.Enabled = false
		default:
			return fmt.Errorf("%s: invalid boolean %q", EnvRateLimit, v)
		}
	}
	if v := strings.TrimSpace(getenv(EnvKafkaBrokers)); v != "" {
		c.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
	if v := strings.TrimSpace(getenv(EnvKafkaTopic)); v != "" {
		c.Kafka.Topic = v
	}
	return nil
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.Path == "" {
		c.HTTP.Path = "/api/save-text"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 5 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 10 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgres
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = 10 * time.Second
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Dedup.Window == 0 {
		c.Dedup.Window = 30 * time.Second
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = LimiterMemory
	}
	if c.RateLimit.Pause == 0 {
		c.RateLimit.Pause = 5 * time.Second
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 1
	}
}

// Validate checks the configuration. A missing store credential wraps errs.ErrMissingCredential.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: set %s or database.dsn", errs.ErrMissingCredential, EnvDatabaseURL)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("configuration error: unknown store driver %q", c.Store.Driver)
	}
	if !strings.HasPrefix(c.HTTP.Path, "/") {
		return fmt.Errorf("configuration error: http.path must start with '/', got %q", c.HTTP.Path)
	}
	if c.Dedup.Window < 0 {
		return fmt.Errorf("configuration error: dedup.window must not be negative")
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("configuration error: store.timeout must not be negative")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case LimiterMemory:
		case LimiterPostgres:
			if c.Store.Driver != DriverPostgres {
				return fmt.Errorf("configuration error: postgres rate limiter requires the postgres store")
			}
		default:
			return fmt.Errorf("configuration error: unknown rate_limit.backend %q", c.RateLimit.Backend)
		}
		if c.RateLimit.Pause <= 0 {
			return fmt.Errorf("configuration error: rate_limit.pause must be positive")
		}
	}
	return nil
}
