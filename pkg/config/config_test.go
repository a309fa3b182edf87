package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewDefaultConfig verifies that the default configuration validates.
func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Quota.DailyLimit != DefaultQuotaDailyLimit {
		t.Errorf("DailyLimit = %d, want %d", cfg.Quota.DailyLimit, DefaultQuotaDailyLimit)
	}
	if !cfg.Cleanup.Parallel {
		t.Error("Cleanup.Parallel should default to true")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
}

// TestLoadConfig_File tests loading a configuration file with partial fields.
func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  listen_address: "0.0.0.0:9000"
quota:
  daily_limit: 10
  timezone_offset_minutes: 540
cleanup:
  schedule: "0 4 * * *"
  batch_size: 25
  timeout: 5m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("ListenAddress = %q, want 0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Quota.DailyLimit != 10 {
		t.Errorf("DailyLimit = %d, want 10", cfg.Quota.DailyLimit)
	}
	if cfg.Quota.TimezoneOffsetMinutes != 540 {
		t.Errorf("TimezoneOffsetMinutes = %d, want 540", cfg.Quota.TimezoneOffsetMinutes)
	}
	if cfg.Cleanup.Timeout != 5*time.Minute {
		t.Errorf("Cleanup.Timeout = %v, want 5m", cfg.Cleanup.Timeout)
	}

	// Unset fields fall back to defaults.
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want default %v", cfg.Server.ReadTimeout, DefaultReadTimeout)
	}
	if cfg.Cleanup.MaxConcurrentBatches != DefaultCleanupMaxConcurrentBatches {
		t.Errorf("MaxConcurrentBatches = %d, want default %d",
			cfg.Cleanup.MaxConcurrentBatches, DefaultCleanupMaxConcurrentBatches)
	}
}

// TestLoadConfig_EnvOverrides tests that environment variables win over the file.
func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
quota:
  daily_limit: 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	t.Setenv("CALLISTO_QUOTA_DAILY_LIMIT", "99")
	t.Setenv("CALLISTO_TELEMETRY_LOG_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}

	if cfg.Quota.DailyLimit != 99 {
		t.Errorf("DailyLimit = %d, want 99 (env override)", cfg.Quota.DailyLimit)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug (env override)", cfg.Telemetry.Logging.Level)
	}
}

// TestValidate_Errors tests that invalid configurations are rejected.
func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
		field  string
	}{
		{
			name:   "bad listen address",
			mutate: func(cfg *Config) { cfg.Server.ListenAddress = "not-an-address" },
			field:  "server.listen_address",
		},
		{
			name:   "unknown storage backend",
			mutate: func(cfg *Config) { cfg.Storage.Backend = "postgres" },
			field:  "storage.backend",
		},
		{
			name:   "zero daily limit",
			mutate: func(cfg *Config) { cfg.Quota.DailyLimit = -1 },
			field:  "quota.daily_limit",
		},
		{
			name:   "bad cron schedule",
			mutate: func(cfg *Config) { cfg.Cleanup.Schedule = "not a cron" },
			field:  "cleanup.schedule",
		},
		{
			name:   "unknown log level",
			mutate: func(cfg *Config) { cfg.Telemetry.Logging.Level = "loud" },
			field:  "telemetry.logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() should have failed")
			}

			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want ValidationError", err)
			}

			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.field, verr.Errors)
			}
		})
	}
}
