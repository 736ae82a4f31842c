package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestSetup_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "info", Format: "json", Output: buf})

	Info("listening on %s", ":8080")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "listening on :8080", entries[0]["message"])
	assert.NotEmpty(t, entries[0]["time"])
}

func TestSetup_LevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "warn", Format: "json", Output: buf})

	Debug("hidden")
	Info("hidden")
	Warn("shown %d", 1)
	Error("shown %d", 2)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestSetup_UnknownLevelDefaultsToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "verbose", Format: "json", Output: buf})

	Debug("hidden")
	Info("shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestWith_AddsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "debug", Format: "json", Output: buf})

	With("run", "abc").With("step", 2).Info("batch %d done", 2)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0]["run"])
	assert.EqualValues(t, 2, entries[0]["step"])
	assert.Equal(t, "batch 2 done", entries[0]["message"])
}

func TestSetup_ConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: "info", Format: "console", Output: buf})

	Info("hello")

	assert.Contains(t, buf.String(), "hello")
}
