package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentRecurring)
	logger.Info("Starting recurring-worker",
		"interval", cfg.RecurringCheckInterval,
		"backend", cfg.DataBackend)

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is not shared with the server; postings will be lost on exit")
	}

	loc, _ := cfg.Location() // checked by Validate

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.Cleanup(logger, shutdownTimeout, "backend", func(context.Context) error { return res.Cleanup() })

	opts := []services.Option{services.WithLocation(loc)}
	if res.AMQP != nil {
		opts = append(opts, services.WithPublisher(res.AMQP))
	}
	svc := services.NewFinanceService(res.Store, opts...)

	// The server may write the same store, so every check starts from a
	// fresh read.
	processor := services.NewRecurringProcessor(svc, true)

	if err := processor.Run(ctx, cfg.RecurringCheckInterval); err != nil {
		logger.LogError(context.Background(), "recurring-worker stopped with error", err, applog.ErrorTypeInternal, applog.OpShutdown)
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
