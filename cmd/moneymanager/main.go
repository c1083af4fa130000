package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneymanager/internal/backend"
	"moneymanager/internal/cli"
	apphttp "moneymanager/internal/http"
	applog "moneymanager/internal/log"
	"moneymanager/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	lookupCacheSize = 1000
	lookupCacheTTL  = time.Minute
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, false)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	svc := services.NewTransactionService(res.Repository, res.Publisher,
		services.WithLocation(cfg.Location()),
		services.WithLookupCache(lookupCacheSize, lookupCacheTTL))

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting moneymanager server",
			"port", cfg.Port,
			"backend", bcfg.Type,
			"timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
