// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
// It writes to stderr so command output on stdout stays clean.
var GlobalLogger *Logger

var (
	logLevel     = new(slog.LevelVar)
	stderrWriter io.Writer = os.Stderr
)

func init() {
	logLevel.Set(slog.LevelWarn)
	SetOutput(stderrWriter)
}

// SetOutput redirects GlobalLogger to w, keeping the current level.
func SetOutput(w io.Writer) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// SetLevel accepts debug, info, warn or error. Unknown values leave the level unchanged.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key for the per-command correlation id.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// SyncLogger provides structured logging for optimistic mutations.
type SyncLogger struct {
	component string
	logger    *Logger
}

// NewSyncLogger creates a new SyncLogger for the given component.
func NewSyncLogger(component string) *SyncLogger {
	return &SyncLogger{
		component: component,
		logger:    GlobalLogger,
	}
}

func (l *SyncLogger) attrs(ctx context.Context, key, phase string, fields map[string]interface{}) []any {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("key", key),
		slog.String("phase", phase),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogApply logs an optimistic local change.
func (l *SyncLogger) LogApply(ctx context.Context, key string, fields map[string]interface{}) {
	l.logger.DebugContext(ctx, "optimistic apply", l.attrs(ctx, key, "apply", fields)...)
}

// LogConfirm logs a mutation the server accepted.
func (l *SyncLogger) LogConfirm(ctx context.Context, key string, fields map[string]interface{}) {
	l.logger.InfoContext(ctx, "mutation confirmed", l.attrs(ctx, key, "confirm", fields)...)
}

// LogRollback logs a mutation reverted after a remote failure.
func (l *SyncLogger) LogRollback(ctx context.Context, key string, err error) {
	attrs := l.attrs(ctx, key, "rollback", nil)
	attrs = append(attrs, slog.String("error", err.Error()))
	l.logger.WarnContext(ctx, "mutation rolled back", attrs...)
}

// LogSkip logs a mutation rejected because its key was busy.
func (l *SyncLogger) LogSkip(ctx context.Context, key string) {
	l.logger.DebugContext(ctx, "mutation skipped", l.attrs(ctx, key, "skip", nil)...)
}

// LogError logs a failure outside the mutation lifecycle.
func (l *SyncLogger) LogError(ctx context.Context, err error, operation string) {
	l.logger.ErrorContext(ctx, "sync error",
		slog.String("component", l.component),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
		slog.String("error", err.Error()),
	)
}
