package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWith_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWith(&buf, slog.LevelInfo, FormatJSON)

	logger.Debug("hidden")
	logger.Error("run failed", "error", errors.New("boom"), "workspace_id", "w")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run failed", entry["msg"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotContains(t, entry, "error")
}

func TestNewWith_Text(t *testing.T) {
	var buf bytes.Buffer
	NewWith(&buf, slog.LevelDebug, FormatText).Debug("hello", "error", "x")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "err=x")
}

func TestParse(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
