// Package config provides configuration loading, validation, and access for
// Callisto.
//
// Configuration is loaded from a YAML file, merged with built-in defaults,
// and optionally overridden by environment variables using the naming
// convention CALLISTO_SECTION_FIELD (e.g., CALLISTO_SERVER_LISTEN_ADDRESS).
//
// # Usage
//
// The CLI initializes the process-wide instance once at startup and reads
// it back wherever needed:
//
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Code that needs a standalone configuration, such as the validate command
// or tests, loads one directly:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
