// Package logging provides structured logging utilities for emailagent.
//
// It centralizes attribute naming, handler setup and the redaction of
// correspondent addresses so that every package logs the same way.
//
// # Usage Patterns
//
// Build the process logger once from configuration:
//
//	logger := logging.New(logging.Options{Level: "info", Format: "text", Output: os.Stderr})
//	slog.SetDefault(logger)
//
// Scope a logger to a session or operation:
//
//	logger := logging.WithSession(slog.Default(), session.ID)
//	logger.Info("turn finished", logging.Status("responded"))
//
// # Security Considerations
//
// Email addresses are hashed with AnonymizeEmail before logging, and message
// bodies and attachment text are never logged.
package logging
