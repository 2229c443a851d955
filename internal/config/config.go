package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/joshdurbin/hashlink/internal/repository"
	"github.com/joshdurbin/hashlink/internal/shortener"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "SHORTENER"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Generator shortener.Config
}

// ServerConfig holds server-related configuration. PublicProtocol and
// PublicHost form the base of every absolute link the service returns.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	PublicProtocol  string        `envconfig:"PUBLIC_PROTOCOL" default:"http"`
	PublicHost      string        `envconfig:"PUBLIC_HOST" default:"localhost:8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// StoreConfig selects and configures the link store
type StoreConfig struct {
	Driver           string `envconfig:"DRIVER" default:"sqlite"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"hashlink.db"`
	PostgresDSN      string `envconfig:"POSTGRES_DSN"`
	PostgresMaxConns int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	RedisURL         string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisKeyPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"hashlink:"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level   string `envconfig:"LEVEL" default:"info"`
	Format  string `envconfig:"FORMAT" default:"text"`
	Verbose bool   `envconfig:"VERBOSE" default:"false"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `envconfig:"ENABLED" default:"true"`
}

// Load reads the configuration from the environment. Each env file that
// exists is loaded first; variables already set in the process win.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return &cfg, nil
}

// PublicURL returns the public base URL, e.g. http://localhost:8080
func (c *ServerConfig) PublicURL() string {
	return c.PublicProtocol + "://" + c.PublicHost
}

// Address returns the listen address for the HTTP server
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store configuration: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	if c.Generator.SuffixLength < 1 || c.Generator.SuffixLength > shortener.MaxSuffixLength {
		return fmt.Errorf("suffix length must be between 1 and %d, got: %d", shortener.MaxSuffixLength, c.Generator.SuffixLength)
	}
	return nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server port must be a number between 1 and 65535, got: %s", c.Port)
	}
	if c.PublicProtocol != "http" && c.PublicProtocol != "https" {
		return fmt.Errorf("public protocol must be http or https, got: %s", c.PublicProtocol)
	}
	if c.PublicHost == "" {
		return fmt.Errorf("public host cannot be empty")
	}
	if strings.ContainsAny(c.PublicHost, "/?# ") {
		return fmt.Errorf("public host must be a bare host[:port], got: %s", c.PublicHost)
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"idle timeout", c.IdleTimeout},
		{"request timeout", c.RequestTimeout},
		{"shutdown timeout", c.ShutdownTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %v", timeout.name, timeout.value)
		}
	}

	return nil
}

// Validate validates the store configuration for the selected driver
func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case repository.DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case repository.DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN cannot be empty")
		}
		if c.PostgresMaxConns <= 0 {
			return fmt.Errorf("postgres max connections must be positive, got: %d", c.PostgresMaxConns)
		}
	case repository.DriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis URL cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s (must be one of: sqlite, postgres, redis)", c.Driver)
	}
	return nil
}

// Validate validates the logging configuration
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Level)
	}

	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be one of: json, text)", c.Format)
	}
	return nil
}
