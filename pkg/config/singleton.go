package config

import (
	"fmt"
	"sync"
)

var (
	globalConfig *Config
	configMutex  sync.RWMutex
	initOnce     sync.Once
)

// Initialize loads the configuration from path with environment overrides
// and installs it as the process-wide instance. Only the first successful
// call has an effect; later calls return nil without reloading.
func Initialize(path string) error {
	var initErr error
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		configMutex.Lock()
		globalConfig = cfg
		configMutex.Unlock()
	})
	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration directly. Intended for
// tests; production code goes through Initialize.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from path and swaps the
// process-wide instance. The current configuration is kept when loading or
// validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("reloading configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("reloaded configuration invalid: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	configMutex.Unlock()
	return nil
}
