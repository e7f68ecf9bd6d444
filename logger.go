package vecstore

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vecstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithNamespace adds the namespace field to the logger.
func (l *Logger) WithNamespace(namespace string) *Logger {
	return &Logger{
		Logger: l.Logger.With("namespace", namespace),
	}
}

// LogUpsert logs an upsert batch. added is the number of identifiers that
// were new to the namespace.
func (l *Logger) LogUpsert(ctx context.Context, count, added int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "upsert completed",
			"count", count,
			"added", added,
			"replaced", count-added,
		)
	}
}

// LogQuery logs a query.
func (l *Logger) LogQuery(ctx context.Context, topK, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"top_k", topK,
			"results", results,
		)
	}
}

// LogFlush logs a snapshot write.
func (l *Logger) LogFlush(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"snapshot", name,
			"bytes", bytes,
		)
	}
}

// LogLoad logs the outcome of loading a snapshot on open.
func (l *Logger) LogLoad(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"snapshot", name,
			"count", count,
		)
	}
}

// LogInconsistency logs registry, index and metadata drift.
func (l *Logger) LogInconsistency(ctx context.Context, label uint32, detail string) {
	l.ErrorContext(ctx, "namespace state is inconsistent",
		"label", label,
		"detail", detail,
	)
}
