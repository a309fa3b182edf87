package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Storage defaults
	DefaultStorageBackend           = "memory"
	DefaultSQLitePath               = "data/callisto.db"
	DefaultSQLiteBusyTimeout        = 5 * time.Second
	DefaultSQLiteCheckpointInterval = 5 * time.Minute

	// Quota defaults
	DefaultQuotaDailyLimit       = 50
	DefaultQuotaTimezoneOffset   = 0
	DefaultQuotaMaxReserveAmount = 10

	// Retention defaults
	DefaultRetentionArchivePath = "data/archives/"

	// Cleanup defaults
	DefaultCleanupSchedule             = "0 3 * * *"
	DefaultCleanupBatchSize            = 50
	DefaultCleanupParallel             = true
	DefaultCleanupMaxConcurrentBatches = 4
	DefaultCleanupTimeout              = 10 * time.Minute

	// Telemetry defaults
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMetricsEnabled = true
)

// ApplyDefaults fills in default values for any configuration fields that
// are unset (zero-valued). It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Storage.SQLite.CheckpointInterval == 0 {
		cfg.Storage.SQLite.CheckpointInterval = DefaultSQLiteCheckpointInterval
	}

	// Quota defaults
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = DefaultQuotaDailyLimit
	}
	if cfg.Quota.MaxReserveAmount == 0 {
		cfg.Quota.MaxReserveAmount = DefaultQuotaMaxReserveAmount
	}

	// Retention defaults
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultRetentionArchivePath
	}

	// Cleanup defaults
	if cfg.Cleanup.Schedule == "" {
		cfg.Cleanup.Schedule = DefaultCleanupSchedule
	}
	if cfg.Cleanup.BatchSize == 0 {
		cfg.Cleanup.BatchSize = DefaultCleanupBatchSize
	}
	if cfg.Cleanup.MaxConcurrentBatches == 0 {
		cfg.Cleanup.MaxConcurrentBatches = DefaultCleanupMaxConcurrentBatches
	}
	if cfg.Cleanup.Timeout == 0 {
		cfg.Cleanup.Timeout = DefaultCleanupTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}

// NewDefaultConfig returns a configuration populated entirely with defaults.
// Boolean fields that default to true are set here because ApplyDefaults
// cannot distinguish "unset" from an explicit false.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Cleanup.Parallel = DefaultCleanupParallel
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}
