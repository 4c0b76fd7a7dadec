// Package config loads application configuration from environment
// variables, applying defaults and validating everything up front so a
// misconfigured process fails at startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Clean    CleanConfig
	Sink     SinkConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for
	// running cleans to finish.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds PostgreSQL settings. Loading cleaned tables is
// disabled when URL is empty.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"8"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CleanConfig holds cleaning run settings.
type CleanConfig struct {
	// MaxFileSize is the largest accepted input in bytes (default: 100MB).
	MaxFileSize int64 `env:"CLEAN_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of tables cleaned at once.
	MaxConcurrent int `env:"CLEAN_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a free slot.
	MaxWaitTime time.Duration `env:"CLEAN_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single load-and-clean run.
	Timeout time.Duration `env:"CLEAN_TIMEOUT" default:"5m"`

	// ProfilesPath is a YAML profile file. Empty means only the built-in
	// default profile is available.
	ProfilesPath string `env:"CLEAN_PROFILES" envAlt:"PROFILES_PATH"`

	// DefaultProfile is used when a request names no profile.
	DefaultProfile string `env:"CLEAN_DEFAULT_PROFILE" default:"default"`
}

// SinkConfig describes where cleaned tables are copied.
type SinkConfig struct {
	Table       string `env:"SINK_TABLE"`
	CreateTable bool   `env:"SINK_CREATE_TABLE" default:"false"`
	BatchColumn string `env:"SINK_BATCH_COLUMN" default:"etl_batch_id"`
}

// SecurityConfig holds HTTP access settings.
type SecurityConfig struct {
	// APIKeys is a comma-separated list of keys accepted in X-API-Key.
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey rejects /api requests without a valid key.
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// SinkEnabled reports whether cleaned tables can be loaded into the database.
func (c *Config) SinkEnabled() bool {
	return c.Database.URL != "" && c.Sink.Table != ""
}
