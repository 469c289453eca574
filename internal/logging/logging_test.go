package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLogger(output("json", &buf)), "pipeline")
	logger.Info().Msg("encoding")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "encoding", line["message"])
	assert.Equal(t, "pipeline", line["component"])
	assert.Contains(t, line, "time")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	w := output("console", &buf)
	_, ok := w.(zerolog.ConsoleWriter)
	assert.True(t, ok)
}

func TestNewLoggerMulti(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Warn().Msg("duration mismatch")

	assert.Contains(t, a.String(), "duration mismatch")
	assert.Contains(t, b.String(), "duration mismatch")
}
