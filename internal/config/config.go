// Package config loads procio settings from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name, so
// BUFFER_CAPACITY is read from PROCIO_BUFFER_CAPACITY.
const Prefix = "PROCIO"

// Config holds all procio configuration.
type Config struct {
	EngineConfig
	LogConfig
	MetricsConfig
}

// EngineConfig sizes the buffers the engine exchanges with adapters.
type EngineConfig struct {
	BufferCapacity int `envconfig:"BUFFER_CAPACITY" default:"65536"`
	PipeCapacity   int `envconfig:"PIPE_CAPACITY" default:"65536"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds the Prometheus listen address. Metrics are not
// served when it is empty.
type MetricsConfig struct {
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		EngineConfig: EngineConfig{
			BufferCapacity: 65536,
			PipeCapacity:   65536,
		},
		LogConfig: LogConfig{
			LogLevel: "info",
		},
	}
}

// Validate reports settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("invalid buffer capacity %d", c.BufferCapacity)
	}
	if c.PipeCapacity <= 0 {
		return fmt.Errorf("invalid pipe capacity %d", c.PipeCapacity)
	}
	return nil
}
