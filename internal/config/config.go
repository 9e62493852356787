package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/iq180/internal/api"
	"github.com/mcoot/iq180/internal/services/conductor"
)

// ErrInvalidConfig is returned when parsed values are out of range
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the server configuration, read from IQ180_* environment variables
type Config struct {
	Host            string        `env:"IQ180_HOST"`
	Port            int           `env:"IQ180_PORT"             envDefault:"8080"`
	ReadTimeout     time.Duration `env:"IQ180_READ_TIMEOUT"     envDefault:"15s"`
	WriteTimeout    time.Duration `env:"IQ180_WRITE_TIMEOUT"    envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"IQ180_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Rounds       int           `env:"IQ180_ROUNDS"        envDefault:"3"`
	TurnDuration time.Duration `env:"IQ180_TURN_DURATION" envDefault:"60s"`
	TurnGap      time.Duration `env:"IQ180_TURN_GAP"      envDefault:"3s"`

	LogLevel slog.Level `env:"IQ180_LOG_LEVEL" envDefault:"INFO"`
}

// Load parses the environment and validates the result
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that env tags cannot express
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be at least 1, got %d", ErrInvalidConfig, c.Rounds)
	case c.TurnDuration <= 0:
		return fmt.Errorf("%w: turn duration must be positive", ErrInvalidConfig)
	case c.TurnGap < 0:
		return fmt.Errorf("%w: turn gap must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Server returns the HTTP server settings
func (c Config) Server() api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Host,
		Port:            c.Port,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

// Conductor returns the game pacing settings
func (c Config) Conductor() conductor.Config {
	return conductor.Config{
		Rounds:       c.Rounds,
		TurnDuration: c.TurnDuration,
		TurnGap:      c.TurnGap,
	}
}
