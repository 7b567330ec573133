package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modmotion/internal/plugin"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	settings *Settings
	registry *plugin.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and plugin
// registry.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	settings, err := LoadSettings()
	if err != nil {
		// A failure to load ambient settings is a fatal startup error.
		panic(fmt.Errorf("failed to load settings: %w", err))
	}
	logger.Debug("Ambient settings loaded.", "output_dir", settings.OutputDir, "ffmpeg", settings.FFmpegBinary)

	reg := plugin.NewRegistry()
	plugin.RegisterBuiltins(reg)
	logger.Debug("Built-in plugins registered.", "names", reg.Names())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		settings: settings,
		registry: reg,
	}
}

// Registry returns the application's plugin registry. This is primarily for
// testing.
func (a *App) Registry() *plugin.Registry {
	return a.registry
}
