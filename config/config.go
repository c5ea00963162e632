// Package config loads lazyguildd's runtime configuration from the
// environment, grounded on ws_poc's ws/config.go (env.Parse + envDefault
// tags, a Validate pass, and structured logging of the result).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config is every knob lazyguildd's bootstrap needs. Collaborator
// implementations themselves (storage, presence, permissions) are not
// configured here — they're wired in cmd/lazyguildd, since the engine takes
// them as injected dependencies, not as config-driven constructors.
type Config struct {
	NatsURL             string        `env:"LAZYGUILD_NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NatsMaxReconnects   int           `env:"LAZYGUILD_NATS_MAX_RECONNECTS" envDefault:"10"`
	NatsReconnectWait   time.Duration `env:"LAZYGUILD_NATS_RECONNECT_WAIT" envDefault:"2s"`
	NatsReconnectJitter time.Duration `env:"LAZYGUILD_NATS_RECONNECT_JITTER" envDefault:"1s"`

	MetricsAddr string `env:"LAZYGUILD_METRICS_ADDR" envDefault:":9090"`

	DispatcherShards uint32 `env:"LAZYGUILD_DISPATCHER_SHARDS" envDefault:"16"`

	LogLevel  string `env:"LAZYGUILD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LAZYGUILD_LOG_FORMAT" envDefault:"json"`
}

// Load parses Config from the process environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the rest of the process can't act on.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LAZYGUILD_LOG_LEVEL must be one of debug,info,warn,error (got %q)", c.LogLevel)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LAZYGUILD_LOG_FORMAT must be one of json,console (got %q)", c.LogFormat)
	}

	if c.NatsURL == "" {
		return fmt.Errorf("LAZYGUILD_NATS_URL is required")
	}

	if c.DispatcherShards == 0 {
		return fmt.Errorf("LAZYGUILD_DISPATCHER_SHARDS must be non-zero")
	}

	return nil
}

// LogFields emits the loaded configuration as a structured log line.
func (c *Config) LogFields(logger zerolog.Logger) {
	logger.Info().
		Str("nats_url", c.NatsURL).
		Int("nats_max_reconnects", c.NatsMaxReconnects).
		Dur("nats_reconnect_wait", c.NatsReconnectWait).
		Str("metrics_addr", c.MetricsAddr).
		Uint32("dispatcher_shards", c.DispatcherShards).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("configuration loaded")
}
