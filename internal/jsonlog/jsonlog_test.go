package jsonlog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contextKeyString string

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*Logger)
		level string
	}{
		{"debug", func(l *Logger) { l.Debug("field checked", "field", "email") }, "DEBUG"},
		{"info", func(l *Logger) { l.Info("field checked", "field", "email") }, "INFO"},
		{"warn", func(l *Logger) { l.Warn("field checked", "field", "email") }, "WARN"},
		{"error", func(l *Logger) { l.Error("field checked", "field", "email") }, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(&buf, LevelDebug, "production"))

			entry := decodeEntry(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "field checked", entry["msg"])
			assert.Equal(t, "email", entry["field"])
		})
	}
}

func TestLoggerMinimumLevel(t *testing.T) {
	tests := []struct {
		min     Level
		log     func(*Logger)
		written bool
	}{
		{LevelInfo, func(l *Logger) { l.Debug("x") }, false},
		{LevelInfo, func(l *Logger) { l.Info("x") }, true},
		{LevelWarn, func(l *Logger) { l.Info("x") }, false},
		{LevelWarn, func(l *Logger) { l.Warn("x") }, true},
		{LevelError, func(l *Logger) { l.Warn("x") }, false},
		{LevelError, func(l *Logger) { l.Error("x") }, true},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.log(New(&buf, tt.min, "production"))
		assert.Equal(t, tt.written, buf.Len() > 0, "min level %s", tt.min)
	}
}

func TestLoggerFormatByEnvironment(t *testing.T) {
	var text bytes.Buffer
	New(&text, LevelInfo, "development").Info("form validated", "valid", true)
	assert.Contains(t, text.String(), `level=INFO msg="form validated" valid=true`)

	var js bytes.Buffer
	New(&js, LevelInfo, "staging").Info("form validated", "valid", true)
	assert.Equal(t, true, decodeEntry(t, &js)["valid"])
}

func TestLoggerWrite(t *testing.T) {
	t.Run("json line keeps level and fields", func(t *testing.T) {
		var buf bytes.Buffer
		line := []byte(`{"level":"WARN","msg":"slow store","elapsed_ms":120}`)

		n, err := New(&buf, LevelInfo, "production").Write(line)
		require.NoError(t, err)
		assert.Equal(t, len(line), n)

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "slow store", entry["msg"])
		assert.Equal(t, float64(120), entry["elapsed_ms"])
	})

	t.Run("plain text is logged as error", func(t *testing.T) {
		var buf bytes.Buffer
		line := []byte("http: TLS handshake error\n")

		n, err := New(&buf, LevelInfo, "production").Write(line)
		require.NoError(t, err)
		assert.Equal(t, len(line), n)

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, "http: TLS handshake error", entry["msg"])
	})
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, "production").With("component", "statistics")

	logger.Warn("store unavailable")
	assert.Equal(t, "statistics", decodeEntry(t, &buf)["component"])
}

func TestLoggerWithContext(t *testing.T) {
	t.Run("correlation id attached", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithCorrelationID(context.Background(), "req-7")

		New(&buf, LevelInfo, "production").InfoWithContext(ctx, "HTTP request completed", "status", 200)

		entry := decodeEntry(t, &buf)
		assert.Equal(t, "req-7", entry["correlation_id"])
		assert.Equal(t, float64(200), entry["status"])
	})

	t.Run("no correlation id", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, LevelInfo, "production").ErrorWithContext(context.Background(), "server error")

		assert.NotContains(t, decodeEntry(t, &buf), "correlation_id")
	})
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationID(context.Background()))
	assert.Equal(t, "abc", CorrelationID(WithCorrelationID(context.Background(), "abc")))

	foreign := context.WithValue(context.Background(), contextKeyString("correlation_id"), "other")
	assert.Empty(t, CorrelationID(foreign), "keys from other packages are ignored")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}

	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), "ParseLevel(%q)", name)
	}

	assert.Equal(t, "INFO", Level(99).String())
}
