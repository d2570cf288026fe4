// Package app contains the core application logic: configuration, logger
// construction, and the grid-load → graph-build → engine-run lifecycle,
// decoupled from any specific entrypoint like a CLI.
package app

import (
	"io"
	"log/slog"
)

// Defaults applied when neither the grid file nor the caller sets a value.
const (
	defaultWorkers = 5
	defaultLoops   = 1
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp constructs the application with its own isolated logger. Log
// records and observable output lines both go to outW.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	return &App{
		outW:   outW,
		logger: logger,
		config: config,
	}
}

// Logger returns the application's logger. This is primarily for testing.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
