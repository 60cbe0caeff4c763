// Package logging defines the structured-logging interface used across the
// project and its slog-backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "listing bucket", "path", path, "primitive", name)
type Logger interface {
	// Debug logs request/response detail useful only when chasing a problem.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Redact shortens a secret to its first characters so it can appear in logs.
func Redact(secret string) string {
	const keep = 8
	if secret == "" {
		return "<empty>"
	}
	if len(secret) <= keep {
		return "***"
	}
	return secret[:keep] + "..."
}
