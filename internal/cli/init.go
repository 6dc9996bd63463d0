// Package cli provides common CLI initialization utilities shared by
// cmd/fintrack and cmd/recurring-worker.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

// Bootstrap loads the configuration (including .env), installs the default
// logger at the configured level and validates the configuration. It exits
// the process when validation fails.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.Level(), component)
	if err := cfg.Validate(); err != nil {
		logger.LogError(context.Background(), "Configuration validation failed", err,
			applog.ErrorTypeConfiguration, applog.OpValidate)
		os.Exit(1)
	}
	return cfg, logger
}

// SetupLogger creates a text logger for component and makes it the default.
func SetupLogger(level slog.Level, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// OpenBackend creates the configured store and event publisher. It exits the
// process when the store cannot be opened.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.LogError(ctx, "Invalid backend configuration", err, applog.ErrorTypeConfiguration, applog.OpStartup)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.LogError(ctx, "Failed to initialize backend", err, applog.ErrorTypeStorage, applog.OpStartup)
		os.Exit(1)
	}
	logger.Info("Backend initialized", "backend", bcfg.Type.String(), "amqp", res.AMQP != nil)
	return res
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Cleanup runs fn with a bounded context and logs its failure.
func Cleanup(logger *applog.Logger, timeout time.Duration, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.With("step", name).LogError(ctx, "Shutdown step failed", err, applog.ErrorTypeInternal, applog.OpShutdown)
		return
	}
	logger.Debug("Shutdown step complete", "step", name)
}
