package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/civu/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func spanContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "civu", "lab", observability.ModeCLI))

	logger.InfoContext(spanContext(t), "fitted")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record[observability.AttrTraceID])
	assert.Equal(t, "0102030405060708", record[observability.AttrSpanID])
	assert.Equal(t, "civu", record[observability.AttrService])
	assert.Equal(t, "lab", record[observability.AttrEnv])
	assert.Equal(t, "cli", record[observability.AttrMode])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "civu", "", observability.ModeMCP))

	logger.InfoContext(context.Background(), "no span")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, observability.AttrTraceID)
	assert.NotContains(t, record, observability.AttrEnv)
	assert.Equal(t, "mcp", record[observability.AttrMode])
}

func TestTracingHandler_GroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "civu", "", observability.ModeCLI))

	logger.With(slog.String(observability.AttrRunID, "r1")).
		WithGroup("atd").
		InfoContext(context.Background(), "trace done", slog.String("key", "10V"))

	record := decodeRecord(t, &buf)
	assert.Equal(t, "civu", record[observability.AttrService])
	assert.Equal(t, "r1", record[observability.AttrRunID])

	group, ok := record["atd"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10V", group["key"])
}

func TestNewLogger_RespectsLevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelWarn
	cfg.LogOutput = &buf

	logger := observability.NewLogger(cfg)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "civu", record[observability.AttrService])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected slog.Level
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "WARN", expected: slog.LevelWarn},
		{input: " error ", expected: slog.LevelError},
		{input: "info", expected: slog.LevelInfo},
		{input: "verbose", expected: slog.LevelInfo},
		{input: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, observability.ParseLevel(tt.input), tt.input)
	}
}
