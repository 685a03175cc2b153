package tagseek

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tagseek-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithUnit adds an input-unit field to the logger.
func (l *Logger) WithUnit(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("unit", name),
	}
}

// WithSample adds a sample field to the logger.
func (l *Logger) WithSample(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("sample", name),
	}
}

// WithDatabase adds a database path field to the logger.
func (l *Logger) WithDatabase(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("database", path),
	}
}

// LogSketch logs sketching one input unit.
func (l *Logger) LogSketch(ctx context.Context, unit string, tags int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unit sketch failed",
			"unit", unit,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "unit sketched",
			"unit", unit,
			"tags", tags,
		)
	}
}

// LogSketchBatch logs a batch sketching run.
func (l *Logger) LogSketchBatch(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "sketching completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "sketching completed",
			"count", count,
		)
	}
}

// LogBuild logs a database build.
func (l *Logger) LogBuild(ctx context.Context, path string, genomes, spilled int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "database build failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "database built",
			"path", path,
			"genomes", genomes,
			"spilled", spilled,
		)
	}
}

// LogQuery logs querying one sample against a database.
func (l *Logger) LogQuery(ctx context.Context, sample string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"sample", sample,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"sample", sample,
			"rows", rows,
		)
	}
}

// LogProfile logs profiling one sample against a database.
func (l *Logger) LogProfile(ctx context.Context, sample string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "profile failed",
			"sample", sample,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "profile completed",
			"sample", sample,
			"rows", rows,
		)
	}
}

// LogPersist logs writing a sketch file.
func (l *Logger) LogPersist(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sketch write failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sketch written",
			"path", path,
		)
	}
}

// LogMark logs a unique-tag marking pass.
func (l *Logger) LogMark(ctx context.Context, path string, unique, total int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "marking failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "database marked",
			"path", path,
			"unique_tags", unique,
			"total_tags", total,
		)
	}
}
