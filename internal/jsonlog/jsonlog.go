// Package jsonlog is the service logger: slog with a text handler in development
// and JSON everywhere else, plus correlation IDs carried on the request context.
package jsonlog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) ToSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a level name to a Level. Unknown names mean LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

type contextKey string

const correlationIDKey = contextKey("correlation_id")

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation ID stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

type Logger struct {
	minLevel Level
	slogger  *slog.Logger
}

func New(out io.Writer, minLevel Level, env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: minLevel.ToSlogLevel(),
	}

	if env == "development" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &Logger{
		minLevel: minLevel,
		slogger:  slog.New(handler),
	}
}

// With returns a child logger that adds attrs to every entry.
func (l *Logger) With(attrs ...any) *Logger {
	return &Logger{
		minLevel: l.minLevel,
		slogger:  l.slogger.With(attrs...),
	}
}

func (l *Logger) Info(msg string, attrs ...any) {
	l.slogger.Info(msg, attrs...)
}

func (l *Logger) Error(msg string, attrs ...any) {
	l.slogger.Error(msg, attrs...)
}

func (l *Logger) Debug(msg string, attrs ...any) {
	l.slogger.Debug(msg, attrs...)
}

func (l *Logger) Warn(msg string, attrs ...any) {
	l.slogger.Warn(msg, attrs...)
}

// Write lets the logger back a *log.Logger, e.g. http.Server.ErrorLog.
// JSON lines keep their level and fields; anything else is logged as an error.
func (l *Logger) Write(message []byte) (int, error) {
	var entry map[string]any

	err := json.Unmarshal(message, &entry)
	if err != nil {
		l.Error(strings.TrimSpace(string(message)))
		return len(message), nil
	}

	level, _ := entry["level"].(string)
	msg, ok := entry["msg"].(string)
	if !ok {
		msg = "log entry"
	}

	delete(entry, "level")
	delete(entry, "msg")

	attrs := make([]any, 0, len(entry)*2)
	for key, value := range entry {
		attrs = append(attrs, key, value)
	}

	switch level {
	case "DEBUG":
		l.Debug(msg, attrs...)
	case "WARN":
		l.Warn(msg, attrs...)
	case "ERROR":
		l.Error(msg, attrs...)
	default:
		l.Info(msg, attrs...)
	}

	return len(message), nil
}

func withCorrelationID(ctx context.Context, attrs []any) []any {
	if corrID := CorrelationID(ctx); corrID != "" {
		attrs = append(attrs, "correlation_id", corrID)
	}
	return attrs
}

func (l *Logger) InfoWithContext(ctx context.Context, msg string, attrs ...any) {
	l.Info(msg, withCorrelationID(ctx, attrs)...)
}

func (l *Logger) ErrorWithContext(ctx context.Context, msg string, attrs ...any) {
	l.Error(msg, withCorrelationID(ctx, attrs)...)
}

func (l *Logger) DebugWithContext(ctx context.Context, msg string, attrs ...any) {
	l.Debug(msg, withCorrelationID(ctx, attrs)...)
}

func (l *Logger) WarnWithContext(ctx context.Context, msg string, attrs ...any) {
	l.Warn(msg, withCorrelationID(ctx, attrs)...)
}

func (l *Logger) PrintFatal(err error, properties map[string]string) {
	attrs := make([]any, 0, len(properties)*2+4)
	attrs = append(attrs, "error", err.Error(), "stack", string(debug.Stack()))

	for key, value := range properties {
		attrs = append(attrs, key, value)
	}

	l.Error("fatal error", attrs...)
	os.Exit(1)
}
