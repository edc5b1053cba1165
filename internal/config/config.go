// Package config reads enki settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings the CLI uses as flag defaults.
type Config struct {
	// MaxDepth caps dependent nesting for events built by the CLI.
	MaxDepth int `env:"ENKI_MAX_DEPTH" envDefault:"64"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"ENKI_LOG_LEVEL" envDefault:"warn"`

	// Format is the output format, text or json.
	Format string `env:"ENKI_FORMAT" envDefault:"text"`

	// Journal is the default SQLite journal path. Empty disables
	// persistence.
	Journal string `env:"ENKI_JOURNAL"`
}

// Default returns the configuration of an empty environment.
func Default() Config {
	return Config{MaxDepth: 64, LogLevel: "warn", Format: "text"}
}

// Load parses the environment into a Config and validates it.
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

// Validate rejects values the CLI cannot use.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("ENKI_MAX_DEPTH must be positive, got %d", c.MaxDepth)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("ENKI_FORMAT must be text or json, got %q", c.Format)
	}
	return nil
}

// Level returns the slog level of LogLevel. Invalid levels map to warn.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("ENKI_LOG_LEVEL: unknown level %q", s)
	}
}
