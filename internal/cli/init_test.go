package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/config"
)

func TestSetupLogger(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "JSON"

	logger, err := SetupLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "chatty"
	_, err = SetupLogger(cfg)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REMOTE_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, logger, err := LoadAndValidateConfig()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.RemoteBackend)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))

	t.Setenv("PORT", "not-a-port")
	_, _, err = LoadAndValidateConfig()
	assert.ErrorContains(t, err, "invalid port")
}
