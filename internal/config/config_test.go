package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PROCIO_BUFFER_CAPACITY", "4096")
	t.Setenv("PROCIO_PIPE_CAPACITY", "128")
	t.Setenv("PROCIO_LOG_LEVEL", "debug")
	t.Setenv("PROCIO_LOG_DEV", "true")
	t.Setenv("PROCIO_METRICS_ADDR", "127.0.0.1:9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.BufferCapacity)
	assert.Equal(t, 128, cfg.PipeCapacity)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogDevelopment)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PROCIO_BUFFER_CAPACITY", "lots")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PROCIO_BUFFER_CAPACITY", "0")
	_, err = Load()
	assert.Error(t, err)

	assert.Equal(t, Default(), LoadOrDefault())
}
