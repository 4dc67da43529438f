package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"), "unknown levels default to info")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{
		Level:   InfoLevel,
		Format:  JSONFormat,
		Output:  &buf,
		Service: "anomaly-detection",
		Version: "1.0.0",
	})

	log.Info("trained %d models", 3)

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "trained 3 models", entry.Message)
	assert.Equal(t, "anomaly-detection", entry.Service)
	assert.NotEmpty(t, entry.Timestamp)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: WarnLevel, Format: JSONFormat, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("visible")
	assert.NotZero(t, buf.Len())
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})

	log.WithField("component", "engine").Info("ready")

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.NotNil(t, entry.Fields)
	assert.Equal(t, "engine", entry.Fields["component"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: InfoLevel, Format: TextFormat, Output: &buf})

	log.WithField("component", "api").Info("listening")

	line := buf.String()
	assert.True(t, strings.Contains(line, "listening"))
	assert.True(t, strings.Contains(line, "component=api"))
}
