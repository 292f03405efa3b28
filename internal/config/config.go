// Package config provides centralized configuration management for the application.
// It loads configuration from an optional config file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// Archive drivers.
const (
	ArchiveNone = "none"
	ArchiveDir  = "dir"
	ArchiveS3   = "s3"
)

// Config holds all application configuration.
// All settings can be configured via environment variables or the config file.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Upload     UploadConfig
	Allocation AllocationConfig
	Inbox      InboxConfig
	Archive    ArchiveConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is memory, mongo or postgres (default: memory)
	Driver string `env:"STORE_DRIVER" default:"memory"`

	// MongoURI is the MongoDB connection string (required for mongo)
	MongoURI string `env:"MONGO_URI"`

	// MongoDatabase is the database name (default: partshole)
	MongoDatabase string `env:"MONGO_DATABASE" envAlt:"MONGO_DBNAME" default:"partshole"`

	// Collection names, one per entity.
	InvoicesCollection    string `env:"MONGO_INVOICES_COLLECTION" default:"invoices"`
	PartNumbersCollection string `env:"MONGO_PART_NUMBERS_COLLECTION" default:"part_numbers"`
	UsersCollection       string `env:"MONGO_USERS_COLLECTION" default:"users"`
	PartsCollection       string `env:"MONGO_PARTS_COLLECTION" default:"parts"`
	BinsCollection        string `env:"MONGO_BINS_COLLECTION" default:"bins"`

	// URL is the PostgreSQL connection string (required for postgres)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds connecting and pinging at startup (default: 10s)
	ConnectTimeout time.Duration `env:"STORE_CONNECT_TIMEOUT" default:"10s"`
}

// UploadConfig holds invoice import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of parallel imports (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single file import (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`

	// IgnoreLineErrors keeps importing past bad rows (default: true)
	IgnoreLineErrors bool `env:"UPLOAD_IGNORE_LINE_ERRORS" default:"true"`

	// MaxFiles caps the files accepted by one batch request (default: 50)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"50"`
}

// AllocationConfig holds part number allocation settings.
type AllocationConfig struct {
	// MaxRetries is how often a lost allocation race is retried (default: 5)
	MaxRetries int `env:"ALLOCATE_MAX_RETRIES" default:"5"`
}

// InboxConfig holds the watched folder settings. An empty Dir disables it.
type InboxConfig struct {
	// Dir is the directory swept for new invoice files
	Dir string `env:"INBOX_DIR"`

	// Schedule is a cron spec or @every descriptor (default: @every 5m)
	Schedule string `env:"INBOX_SCHEDULE" default:"@every 5m"`
}

// ArchiveConfig holds raw invoice archive settings.
type ArchiveConfig struct {
	// Driver is none, dir or s3 (default: none)
	Driver string `env:"ARCHIVE_DRIVER" default:"none"`

	// Dir is the archive root for the dir driver
	Dir string `env:"ARCHIVE_DIR"`

	// S3 settings for the s3 driver.
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envAlt:"AWS_REGION"`
	S3Prefix          string `env:"S3_PREFIX"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for import endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
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
