// Copyright 2026 The Watchdeck Authors
// SPDX-License-Identifier: Apache-2.0

// Command watchdeck runs the watch-list presence panel: a terminal UI
// showing the online status of watched users, organized into folders
// and watched directory groups, with live updates over the backend's
// event stream.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/watchdeck/watchdeck/config"
	"github.com/watchdeck/watchdeck/panel"
	"github.com/watchdeck/watchdeck/platform"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "watchdeck:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		serverURL  string
		token      string
		logFile    string
		logLevel   string
	)
	flagSet := pflag.NewFlagSet("watchdeck", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file path (default: ~/.config/watchdeck/config.yaml)")
	flagSet.StringVar(&serverURL, "server-url", "", "backend REST base URL (overrides config)")
	flagSet.StringVar(&token, "token", "", "bearer token (overrides config)")
	flagSet.StringVar(&logFile, "log-file", "", "structured log destination (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn, or error (overrides config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	configuration, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		configuration.ServerURL = serverURL
	}
	if token != "" {
		configuration.Token = token
	}
	if logFile != "" {
		configuration.LogFile = logFile
	}
	if logLevel != "" {
		configuration.LogLevel = logLevel
	}
	if err := configuration.Validate(); err != nil {
		return err
	}
	level, err := configuration.Level()
	if err != nil {
		return err
	}

	// Logs go two places: the panel's status bar (warnings and up, so
	// degraded syncs are visible without leaving the UI) and, when
	// configured, a JSON log file at the configured level. Stderr is
	// owned by the TUI renderer and gets nothing.
	panelHandler := panel.NewLogHandler(slog.LevelWarn)
	handlers := []slog.Handler{panelHandler}
	if configuration.LogFile != "" {
		file, err := os.OpenFile(configuration.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer file.Close()
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	}
	logger := slog.New(teeHandler{handlers: handlers})
	slog.SetDefault(logger)

	client, err := platform.NewClient(platform.ClientConfig{
		BaseURL: configuration.ServerURL,
		Token:   configuration.Token,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	stream := platform.NewStream(platform.StreamConfig{
		URL:    configuration.EventStreamURL(),
		Token:  configuration.Token,
		Logger: logger,
	})
	defer stream.Close()

	engine := panel.NewEngine(client, logger)
	model := panel.NewModel(engine, panel.Options{
		StatusChanges: stream.StatusChanges(),
		Reconnects:    stream.Reconnects(),
		PollInterval:  configuration.PollInterval,
		DwellDelay:    configuration.DwellDelay,
		Logger:        logger,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())
	panelHandler.SetProgram(program)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running panel: %w", err)
	}
	return nil
}

// teeHandler fans one slog record out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func (tee teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range tee.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (tee teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range tee.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (tee teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make([]slog.Handler, len(tee.handlers))
	for index, handler := range tee.handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return teeHandler{handlers: derived}
}

func (tee teeHandler) WithGroup(name string) slog.Handler {
	derived := make([]slog.Handler, len(tee.handlers))
	for index, handler := range tee.handlers {
		derived[index] = handler.WithGroup(name)
	}
	return teeHandler{handlers: derived}
}
