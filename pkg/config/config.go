package config

import "time"

// Config is the root configuration structure for Callisto.
// It contains all configuration sections for the API server, storage
// backend, quota arbitration, retention, cleanup scheduling, and telemetry.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address, timeouts, and shutdown behavior.
	Server ServerConfig `yaml:"server"`

	// Storage contains storage backend configuration.
	Storage StorageConfig `yaml:"storage"`

	// Quota contains per-user daily quota configuration.
	Quota QuotaConfig `yaml:"quota"`

	// Retention contains retention policy configuration including the
	// policy file location and archive directory.
	Retention RetentionConfig `yaml:"retention"`

	// Cleanup contains configuration for the batched cleanup scheduler.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// Telemetry contains observability configuration for logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8090").
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig contains configuration for the storage backend.
type StorageConfig struct {
	// Backend selects the storage implementation: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the sqlite backend. Ignored when
	// Backend is "memory".
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains settings for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: "data/callisto.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// QuotaConfig contains per-user daily quota configuration.
type QuotaConfig struct {
	// DailyLimit is the maximum number of admissions per user per day.
	// Default: 50
	DailyLimit int `yaml:"daily_limit"`

	// TimezoneOffsetMinutes is the offset from UTC, in minutes, of the
	// reference timezone used for day boundaries (e.g., 540 for UTC+9).
	// Default: 0 (UTC)
	TimezoneOffsetMinutes int `yaml:"timezone_offset_minutes"`

	// MaxReserveAmount is the largest amount a single reserve call may
	// request. Amounts outside 1..MaxReserveAmount are rejected as caller
	// errors.
	// Default: 10
	MaxReserveAmount int `yaml:"max_reserve_amount"`
}

// RetentionConfig contains retention catalog configuration.
type RetentionConfig struct {
	// PolicyFile is an optional YAML file defining retention policies.
	// When empty, built-in default policies are used.
	PolicyFile string `yaml:"policy_file"`

	// Watch enables hot-reloading of the policy file on change.
	// Default: false
	Watch bool `yaml:"watch"`

	// ArchivePath is the directory where records are archived before
	// deletion when a policy requires it.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// CleanupConfig contains configuration for the cleanup scheduler.
type CleanupConfig struct {
	// Schedule is a cron expression for scheduled cleanup passes.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`

	// BatchSize is the number of records processed per batch.
	// Default: 50
	BatchSize int `yaml:"batch_size"`

	// Parallel enables batch-level parallelism. When false, batches are
	// processed sequentially.
	// Default: true
	Parallel bool `yaml:"parallel"`

	// MaxConcurrentBatches bounds batch-level parallelism.
	// Default: 4
	MaxConcurrentBatches int `yaml:"max_concurrent_batches"`

	// Timeout is the wall-clock limit for a whole cleanup operation.
	// On timeout, in-flight batches are cooperatively cancelled.
	// Default: 10m
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`
}
