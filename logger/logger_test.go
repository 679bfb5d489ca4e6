package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LogfmtWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Info("event created", "row", 2)

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="event created"`)
	assert.Contains(t, out, "row=2")
}

func TestNew_DebugLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer

	New(&quiet, false).Debug("hidden")
	New(&verbose, true).Debug("shown")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "shown")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, false)

	l.Error("submission failed", "row", 4)
	l.Warn("skipping row")

	var levels []string
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		levels = append(levels, entry["level"].(string))
	}
	assert.Equal(t, []string{"error", "warn"}, levels)
}

func TestDiscard(t *testing.T) {
	// Must not panic.
	Discard().Error("nothing to see")
}
