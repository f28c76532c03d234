package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel(""))
}

func TestSetup_JSONFormat(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup("info", "json", &buf)
	logger.Info("file parsed", "records", 3)
	logger.Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "file parsed", entry["msg"])
	assert.EqualValues(t, 3, entry["records"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetup_TextIsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup("warn", "", &buf).Warn("dropped line", "line", 7)

	assert.Contains(t, buf.String(), "msg=\"dropped line\"")
	assert.Contains(t, buf.String(), "line=7")
}
