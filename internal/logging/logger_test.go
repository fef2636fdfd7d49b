package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(level LogLevel) (*ReefLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return logger, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_EmitsStructuredFields(t *testing.T) {
	logger, buf := jsonLogger(LevelInfo)

	logger.Info(context.Background(), "template compiled", "islands", 3, "cached", false)

	entry := lastEntry(t, buf)
	assert.Equal(t, "template compiled", entry["msg"])
	assert.Equal(t, float64(3), entry["islands"])
	assert.Equal(t, false, entry["cached"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := jsonLogger(LevelWarn)

	logger.Debug(context.Background(), "dropped")
	logger.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len(), "messages below the level are suppressed")

	logger.Warn(context.Background(), errors.New("boom"), "kept")
	assert.NotZero(t, buf.Len())
}

func TestLogger_WarnCarriesError(t *testing.T) {
	logger, buf := jsonLogger(LevelInfo)

	logger.Warn(context.Background(), errors.New("island i0 failed"), "hydration degraded")

	entry := lastEntry(t, buf)
	assert.Equal(t, "island i0 failed", entry["error"])
}

func TestLogger_WithComponent(t *testing.T) {
	logger, buf := jsonLogger(LevelInfo)

	logger.WithComponent("compiler").Info(context.Background(), "hello")

	entry := lastEntry(t, buf)
	assert.Equal(t, "compiler", entry["component"])
}

func TestLogger_WithFieldsAccumulate(t *testing.T) {
	logger, buf := jsonLogger(LevelInfo)

	logger.With("template", "home").With("pass", 2).Info(context.Background(), "x")

	entry := lastEntry(t, buf)
	assert.Equal(t, "home", entry["template"])
	assert.Equal(t, float64(2), entry["pass"])
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic or write anywhere.
	logger.Info(context.Background(), "ignored")
	logger.Error(context.Background(), errors.New("x"), "ignored")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}
