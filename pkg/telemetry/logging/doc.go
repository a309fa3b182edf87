// Package logging configures structured logging for Callisto.
//
// Callisto logs through log/slog. This package builds the process-wide
// handler from configuration (level, format, writer) and installs it as the
// slog default, so components can obtain scoped loggers with
// slog.Default().With("component", ...).
package logging
