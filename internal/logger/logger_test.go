package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "json", zerolog.InfoLevel)

	log.Debug().Msg("hidden")
	log.Info().Str("ticker", "AAPL").Msg("analyzed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "analyzed", entry["message"])
	assert.Equal(t, "AAPL", entry["ticker"])
	assert.Equal(t, "info", entry["level"])
}

func TestNew(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "vdflow.log")
	_, err = New(Config{Level: "debug", Format: "json", Output: path})
	assert.NoError(t, err)

	_, err = New(Config{})
	assert.NoError(t, err)
}
