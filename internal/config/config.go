// Package config provides centralized configuration management for the import
// server. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Destination DestinationConfig
	Wizard      WizardConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m, submissions can be slow)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DestinationConfig selects where submitted imports are written.
type DestinationConfig struct {
	// Driver is postgres, sqlite or none (default: none, submissions fail)
	Driver string `env:"DESTINATION_DRIVER" default:"none"`

	// URL is the PostgreSQL connection string or the SQLite file path.
	// Supports DATABASE_URL for compatibility.
	URL string `env:"DESTINATION_URL" envAlt:"DATABASE_URL"`

	// CreateTables creates missing destination tables at startup (default: false)
	CreateTables bool `env:"DESTINATION_CREATE_TABLES" default:"false"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// WizardConfig holds import wizard settings.
type WizardConfig struct {
	// SchemaFile is a TOML file of schemas; empty uses the built-in schemas
	SchemaFile string `env:"IMPORT_SCHEMA_FILE"`

	// TranslationsFile is a TOML file overriding user-facing strings
	TranslationsFile string `env:"IMPORT_TRANSLATIONS_FILE"`

	// MaxRecords caps the data rows of an upload; 0 means unlimited (default: 10000)
	MaxRecords int `env:"IMPORT_MAX_RECORDS" default:"10000"`

	// AutoMapDistance is the Levenshtein distance for header auto-matching (default: 2)
	AutoMapDistance int `env:"IMPORT_AUTO_MAP_DISTANCE" default:"2"`

	// UpdateModes offers update and appendUpdate besides append (default: false)
	UpdateModes bool `env:"IMPORT_UPDATE_MODES_ENABLED" default:"false"`

	// SessionTTL is how long an idle session is kept (default: 30m)
	SessionTTL time.Duration `env:"IMPORT_SESSION_TTL" default:"30m"`

	// SweepInterval is how often expired sessions are removed (default: 1m)
	SweepInterval time.Duration `env:"IMPORT_SWEEP_INTERVAL" default:"1m"`

	// MaxFileSize is the maximum allowed upload size in bytes (default: 100MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrentSubmits is the maximum number of parallel submissions (default: 4)
	MaxConcurrentSubmits int `env:"IMPORT_MAX_CONCURRENT_SUBMITS" default:"4"`

	// SubmitWait is how long a submission waits for a free slot (default: 30s)
	SubmitWait time.Duration `env:"IMPORT_SUBMIT_WAIT" default:"30s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the /api routes with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// RateLimit is the number of requests allowed per client IP per minute; 0 disables (default: 300)
	RateLimit int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
