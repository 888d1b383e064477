package gribidx

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/gribidx/model"
)

// Logger wraps slog.Logger with index-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogOpen logs an index open.
func (l *Logger) LogOpen(ctx context.Context, dir, name string, kind string, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"dir", dir,
			"collection", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "index opened",
		"dir", dir,
		"collection", name,
		"kind", kind,
		"duration", d,
	)
}

// LogLookup logs a lookup. Known-missing and not-found results are expected
// outcomes and logged at debug level.
func (l *Logger) LogLookup(ctx context.Context, name string, group, variable int, c model.Coord, err error) {
	switch {
	case err == nil:
		l.DebugContext(ctx, "lookup completed",
			"collection", name,
			"group", group,
			"variable", variable,
			"coord", c.String(),
		)
	case errors.Is(err, ErrMissing), errors.Is(err, ErrNotFound) && !errors.Is(err, ErrFormat):
		l.DebugContext(ctx, "lookup unresolved",
			"collection", name,
			"group", group,
			"variable", variable,
			"coord", c.String(),
			"error", err,
		)
	default:
		l.ErrorContext(ctx, "lookup failed",
			"collection", name,
			"group", group,
			"variable", variable,
			"coord", c.String(),
			"error", err,
		)
	}
}

// LogPartitionOpen logs the lazy open of a partition.
func (l *Logger) LogPartitionOpen(ctx context.Context, name string, partno int, d time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "partition open failed",
			"collection", name,
			"partno", partno,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "partition opened",
		"collection", name,
		"partno", partno,
		"duration", d,
	)
}

// LogEviction logs an index leaving the cache.
func (l *Logger) LogEviction(ctx context.Context, dir, name string, refs int) {
	l.DebugContext(ctx, "index evicted",
		"dir", dir,
		"collection", name,
		"open_handles", refs,
	)
}
