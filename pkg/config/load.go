package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	cfg.Cleanup.Parallel = DefaultCleanupParallel
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CALLISTO_SECTION_FIELD (e.g., CALLISTO_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format CALLISTO_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("CALLISTO_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("CALLISTO_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("CALLISTO_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("CALLISTO_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Storage overrides
	if val := os.Getenv("CALLISTO_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("CALLISTO_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}

	// Quota overrides
	if val := os.Getenv("CALLISTO_QUOTA_DAILY_LIMIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Quota.DailyLimit = i
		}
	}
	if val := os.Getenv("CALLISTO_QUOTA_TIMEZONE_OFFSET_MINUTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Quota.TimezoneOffsetMinutes = i
		}
	}

	// Retention overrides
	if val := os.Getenv("CALLISTO_RETENTION_POLICY_FILE"); val != "" {
		cfg.Retention.PolicyFile = val
	}
	if val := os.Getenv("CALLISTO_RETENTION_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.Watch = b
		}
	}
	if val := os.Getenv("CALLISTO_RETENTION_ARCHIVE_PATH"); val != "" {
		cfg.Retention.ArchivePath = val
	}

	// Cleanup overrides
	if val := os.Getenv("CALLISTO_CLEANUP_SCHEDULE"); val != "" {
		cfg.Cleanup.Schedule = val
	}
	if val := os.Getenv("CALLISTO_CLEANUP_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Cleanup.BatchSize = i
		}
	}
	if val := os.Getenv("CALLISTO_CLEANUP_PARALLEL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cleanup.Parallel = b
		}
	}
	if val := os.Getenv("CALLISTO_CLEANUP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cleanup.Timeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_TELEMETRY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
