package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, Debug, ParseLevel(" DEBUG "))
	assert.Equal(t, Warn, ParseLevel("warning"))
	assert.Equal(t, Info, ParseLevel(""))
	assert.Equal(t, Info, ParseLevel("nonsense"))
	assert.Equal(t, "error", Error.String())

	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("whatever"))
}

func TestNew_JSON_IncludesBaseAndCallFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatJSON, App: "ledger-test", Output: &buf})

	l.With(map[string]any{"component": "ledger", "": "dropped"}).
		Info("record upserted", map[string]any{"sequence": 7})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "record upserted", entry["message"])
	assert.Equal(t, "ledger-test", entry["app"])
	assert.Equal(t, "ledger", entry["component"])
	assert.EqualValues(t, 7, entry["sequence"])
	assert.NotContains(t, entry, "")
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Format: FormatJSON, Output: &buf})

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	l.Warn("shown", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatText, Output: &buf})

	l.Error("boom", map[string]any{"op": "grant"})

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "op=grant")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing", map[string]any{"a": 1})
	assert.NotNil(t, l.With(map[string]any{"b": 2}))
}
