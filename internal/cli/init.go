// Package cli holds the startup steps shared by the server and worker binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneymanager/internal/config"
	applog "moneymanager/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT values.
func NewLogger(level, format, component string) (*applog.Logger, error) {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	cfg.Format = format
	cfg.Component = component
	return applog.New(cfg), err
}

// Bootstrap loads .env and configuration, installs the default logger and
// validates. It exits the process when the configuration is invalid.
func Bootstrap(component string, worker bool) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat, component)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", applog.FieldError, err)
	}

	validate := cfg.Validate
	if worker {
		validate = cfg.ValidateWorker
	}
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
