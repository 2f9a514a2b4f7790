package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "WARN")

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNew_DefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud")

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Info("shown")
	assert.NotZero(t, buf.Len())
}
