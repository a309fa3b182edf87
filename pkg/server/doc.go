// Package server provides the HTTP API for session lifecycle, quota
// arbitration, and cleanup administration.
package server
