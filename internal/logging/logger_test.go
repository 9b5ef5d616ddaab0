package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"salonbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	appCfg := config.AppConfig{
		Name:        "salonbook-test",
		Environment: "test",
		Version:     "1.0.0",
	}

	t.Run("DefaultStdout", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{}, appCfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("StderrDebug", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{Level: "DEBUG", Output: "stderr"}, appCfg)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	})

	t.Run("Console", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "warn", Format: "console"}, appCfg)
		require.NoError(t, err)
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	})

	t.Run("File", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "salon.log")
		logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "file", FilePath: logPath}, appCfg)
		require.NoError(t, err)
		require.NotNil(t, closer)

		logger.Info().Msg("booking created")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
		assert.Equal(t, "salonbook-test", entry["app"])
		assert.Equal(t, "booking created", entry["message"])
	})

	t.Run("FileMissingPath", func(t *testing.T) {
		_, _, err := New(config.LoggingConfig{Output: "file"}, appCfg)
		assert.Error(t, err)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "loud"}, appCfg)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	Component(&base, "availability").Info().Msg("ok")
	assert.Contains(t, buf.String(), `"component":"availability"`)

	assert.NotNil(t, Component(nil, "noop"))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+278****", MaskPhone("+27821234567"))
	assert.Equal(t, "****", MaskPhone("082"))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", RequestIDFrom(ctx))
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}
