package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSingleton exercises the process-wide configuration in one sequence,
// since Initialize is once-per-process.
func TestSingleton(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	write(`
quota:
  daily_limit: 7
`)
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("GetConfig() returned nil after Initialize")
	}
	if cfg.Quota.DailyLimit != 7 {
		t.Errorf("DailyLimit = %d, want 7", cfg.Quota.DailyLimit)
	}

	// A second Initialize is a no-op even with a different file.
	write(`
quota:
  daily_limit: 21
`)
	if err := Initialize(path); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}
	if got := GetConfig().Quota.DailyLimit; got != 7 {
		t.Errorf("DailyLimit after second Initialize = %d, want 7", got)
	}

	// ReloadConfig swaps the instance.
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() failed: %v", err)
	}
	if got := GetConfig().Quota.DailyLimit; got != 21 {
		t.Errorf("DailyLimit after reload = %d, want 21", got)
	}

	// A reload that fails validation keeps the current instance.
	write(`
quota:
  daily_limit: -1
`)
	if err := ReloadConfig(path); err == nil {
		t.Fatal("ReloadConfig() should have rejected an invalid file")
	}
	if got := GetConfig().Quota.DailyLimit; got != 21 {
		t.Errorf("DailyLimit after failed reload = %d, want 21", got)
	}

	replacement := NewDefaultConfig()
	SetConfig(replacement)
	if GetConfig() != replacement {
		t.Error("SetConfig() did not replace the instance")
	}
}
