// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads watchdeck configuration from a YAML file with
// environment variable overrides (WATCHDECK_*).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds everything the watchdeck binary needs to run.
type Config struct {
	// ServerURL is the base URL of the presence backend's REST API,
	// e.g. "https://chat.example.com/api/v2/watchdeck".
	ServerURL string `yaml:"server_url" env:"WATCHDECK_SERVER_URL"`

	// Token is the bearer token authenticating every request.
	Token string `yaml:"token" env:"WATCHDECK_TOKEN"`

	// StreamURL is the websocket endpoint of the event bus. When
	// empty it is derived from ServerURL.
	StreamURL string `yaml:"stream_url" env:"WATCHDECK_STREAM_URL"`

	// PollInterval is the fallback full re-sync cadence.
	PollInterval time.Duration `yaml:"poll_interval" env:"WATCHDECK_POLL_INTERVAL"`

	// DwellDelay is how long a drag hovers a collapsed folder before
	// it auto-expands.
	DwellDelay time.Duration `yaml:"dwell_delay" env:"WATCHDECK_DWELL_DELAY"`

	// LogFile receives structured logs. Empty disables file logging;
	// warnings still reach the panel's status bar.
	LogFile string `yaml:"log_file" env:"WATCHDECK_LOG_FILE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"WATCHDECK_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PollInterval: 5 * time.Minute,
		DwellDelay:   500 * time.Millisecond,
		LogLevel:     "warn",
	}
}

// DefaultPath returns the conventional config file location,
// ~/.config/watchdeck/config.yaml.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, "watchdeck", "config.yaml")
}

// Load reads configuration in precedence order: built-in defaults,
// then the YAML file at path (missing file is fine when path is the
// default location), then WATCHDECK_* environment variables.
func Load(path string) (Config, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// No config file at the default location; env vars and
			// flags may still supply everything.
		default:
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is complete enough to start.
func (config Config) Validate() error {
	if config.ServerURL == "" {
		return errors.New("server_url is required (or WATCHDECK_SERVER_URL)")
	}
	if config.Token == "" {
		return errors.New("token is required (or WATCHDECK_TOKEN)")
	}
	if config.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if config.DwellDelay <= 0 {
		return errors.New("dwell_delay must be positive")
	}
	if _, err := config.Level(); err != nil {
		return err
	}
	return nil
}

// EventStreamURL returns the websocket endpoint: StreamURL when set,
// otherwise ServerURL with the scheme switched to ws(s) and "/events"
// appended.
func (config Config) EventStreamURL() string {
	if config.StreamURL != "" {
		return config.StreamURL
	}
	derived := config.ServerURL
	switch {
	case strings.HasPrefix(derived, "https://"):
		derived = "wss://" + strings.TrimPrefix(derived, "https://")
	case strings.HasPrefix(derived, "http://"):
		derived = "ws://" + strings.TrimPrefix(derived, "http://")
	}
	return strings.TrimRight(derived, "/") + "/events"
}

// Level parses LogLevel into a slog.Level.
func (config Config) Level() (slog.Level, error) {
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", config.LogLevel)
	}
}
