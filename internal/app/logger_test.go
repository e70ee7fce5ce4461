package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("debug", "json", &buf)

	logger.Debug("Checking handler output.", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "DEBUG", record["level"])
	assert.Equal(t, "Checking handler output.", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "text", &buf)

	logger.Warn("Something looks off.")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "Something looks off.")
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("verbose", "text", &buf)

	logger.Debug("Suppressed below info.")
	assert.Empty(t, buf.String())

	logger.Info("Visible at info.")
	assert.Contains(t, buf.String(), "Visible at info.")
}
