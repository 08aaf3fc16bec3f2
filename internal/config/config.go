// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	// DBPath is the SQLite file holding saved games, settings and events.
	DBPath string `env:"DIAGRAMLAB_DB" envDefault:"diagramlab.db"`

	Autosave         bool          `env:"DIAGRAMLAB_AUTOSAVE" envDefault:"true"`
	AutosaveInterval time.Duration `env:"DIAGRAMLAB_AUTOSAVE_INTERVAL" envDefault:"30s"`

	HistorySize      int `env:"DIAGRAMLAB_HISTORY_SIZE" envDefault:"50"`
	EventLogCapacity int `env:"DIAGRAMLAB_EVENT_LOG_CAPACITY" envDefault:"1000"`

	// TransitionDelay is how long a decided mode transition stays pending.
	TransitionDelay time.Duration `env:"DIAGRAMLAB_TRANSITION_DELAY" envDefault:"1500ms"`

	LogLevel slog.Level `env:"DIAGRAMLAB_LOG_LEVEL" envDefault:"INFO"`
}

// Load reads Config from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("DIAGRAMLAB_DB must not be empty"))
	}
	if c.Autosave && c.AutosaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("DIAGRAMLAB_AUTOSAVE_INTERVAL must be positive, got %s", c.AutosaveInterval))
	}
	if c.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("DIAGRAMLAB_HISTORY_SIZE must be at least 1, got %d", c.HistorySize))
	}
	if c.EventLogCapacity < 1 {
		errs = append(errs, fmt.Errorf("DIAGRAMLAB_EVENT_LOG_CAPACITY must be at least 1, got %d", c.EventLogCapacity))
	}
	if c.TransitionDelay < 0 {
		errs = append(errs, fmt.Errorf("DIAGRAMLAB_TRANSITION_DELAY must not be negative, got %s", c.TransitionDelay))
	}
	return errors.Join(errs...)
}
