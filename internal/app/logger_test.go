package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ace/internal/config"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})
	assert.Equal(t, logger.Handler(), slog.Default().Handler())
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, config.LogConfig{Level: tt.level, Format: "text"})

			logger.Log(context.TODO(), tt.want, "should appear")
			assert.NotZero(t, buf.Len())

			buf.Reset()
			logger.Log(context.TODO(), tt.want-1, "should be suppressed")
			assert.Zero(t, buf.Len())
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var textBuf, jsonBuf bytes.Buffer

	newLogger(&textBuf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")
	newLogger(&jsonBuf, config.LogConfig{Level: "info", Format: "json"}).Info("hello")

	assert.Contains(t, textBuf.String(), "source=")

	var m map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &m))
	assert.Equal(t, "hello", m["msg"])
	assert.NotContains(t, m, "source")
}
