// Package metrics provides Prometheus metrics for the Callisto engine.
//
// Metrics cover quota admissions, session lifecycle transitions, and cleanup
// runs, and are exposed on the /metrics endpoint of the API server.
package metrics
