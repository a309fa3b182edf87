// Callisto is a session lifecycle and data retention engine for
// privacy-sensitive analysis workloads.
//
// It manages session expiration policies, arbitrates per-user daily
// quotas, tracks governed artifacts against retention policies, and runs
// scheduled cleanup with secure deletion and audit trails.
//
// Usage:
//
//	# Start server with default configuration
//	callisto run
//
//	# Start with custom configuration file
//	callisto run --config /path/to/config.yaml
//
//	# Run a one-shot cleanup pass
//	callisto cleanup
//
//	# Validate a configuration file
//	callisto validate --config config.yaml
//
//	# Show version information
//	callisto version
package main

func main() {
	Execute()
}
