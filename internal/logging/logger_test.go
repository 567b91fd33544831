package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mediawiper/internal/config"
)

func TestLogWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mediawiper.log")
	l, err := NewLogger(config.LoggingConfig{Level: "INFO", File: path}, false)
	require.NoError(t, err)

	l.Log("INFO", "файл удалён", "path", "/data/a.mp4")
	l.Log("DEBUG", "не попадёт в журнал")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"path":"/data/a.mp4"`)
	assert.NotContains(t, string(data), "не попадёт")
}

func TestLogLevelsMapToZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core), true)

	l.Log("DEBUG", "d")
	l.Log("warn", "w")
	l.Log("ERROR", "e")
	l.Log("something", "i")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[3].Level)
	assert.True(t, l.Verbose())
}

func TestNilAndNopLoggerAreSafe(t *testing.T) {
	var l *Logger
	l.Log("INFO", "ignored")
	assert.NoError(t, l.Close())

	NewNop().Log("ERROR", "ignored")
}
