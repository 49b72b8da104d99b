// Package logger wraps log/slog for the worker: JSON output, level parsing
// from configuration, and carrying request-scoped loggers on a context.
package logger
