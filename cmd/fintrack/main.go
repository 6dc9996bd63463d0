package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/fx"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	rateCacheSize        = 64
	cacheCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	logger.Info("Starting fintrack", "port", cfg.Port, "backend", cfg.DataBackend)

	loc, _ := cfg.Location() // checked by Validate

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer cli.Cleanup(logger, shutdownTimeout, "backend", func(context.Context) error { return res.Cleanup() })

	rateCache := cache.NewLRUCache[core.ExchangeRate](rateCacheSize, cfg.FXCacheTTL)
	caches := cache.NewManager()
	caches.Register(rateCache)
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	rates := fx.NewRefresher(fx.NewFetcher(cfg.FXEndpoint, cfg.FXTimeout, loc), rateCache, loc)

	opts := []services.Option{services.WithRates(rates), services.WithLocation(loc)}
	if res.AMQP != nil {
		opts = append(opts, services.WithPublisher(res.AMQP))
	}
	svc := services.NewFinanceService(res.Store, opts...)
	if err := svc.Load(ctx); err != nil {
		logger.LogError(ctx, "Failed to load finance state", err, applog.ErrorTypeStorage, applog.OpStartup)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, loc,
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)))
	// a recurring-worker may write the same store; reloading on every tick
	// keeps reads from drifting far behind it
	processor := services.NewRecurringProcessor(svc, cfg.DataBackend != config.BackendMemory)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return processor.Run(gctx, cfg.RecurringCheckInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.Cleanup(logger, shutdownTimeout, "http", srv.Shutdown)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.LogError(context.Background(), "fintrack stopped with error", err, applog.ErrorTypeInternal, applog.OpShutdown)
		os.Exit(1)
	}
	logger.Info("fintrack shutdown complete")
}
