// Package logging provides structured logging configuration using log/slog.
//
// Loads carry a load ID in their context so that every log entry written
// while a feed is being ingested can be correlated, from the first row read
// to the final commit or rollback.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const ctxKeyLoadID contextKey = "load_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// With addSource set, each entry records the file and line that logged it.
//
// Logs are written to stderr so command output on stdout stays clean.
func Setup(level, format string, addSource bool) {
	SetupWriter(os.Stderr, level, format, addSource)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string, addSource bool) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: addSource,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithLoadID returns a context tagged with the given load ID.
func WithLoadID(ctx context.Context, loadID string) context.Context {
	return context.WithValue(ctx, ctxKeyLoadID, loadID)
}

// LoadIDFromContext returns the load ID stored in ctx, or "".
func LoadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyLoadID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger enriched with load context.
//
// When called with a context produced by WithLoadID, the returned logger
// includes load_id in all log entries.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if loadID := LoadIDFromContext(ctx); loadID != "" {
		logger = logger.With("load_id", loadID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	loadLogger := logging.WithFields(ctx,
//	    "collection", "users",
//	    "feed", path,
//	)
//	loadLogger.Info("load started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
