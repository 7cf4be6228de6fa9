package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendtrack/internal/cli"
	apphttp "spendtrack/internal/http"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	breakdowns, cacheManager := cli.NewBreakdownCache(cfg)
	defer cacheManager.Stop()

	budgets := services.NewBudgetService(backend.Store, services.Options{
		Notifier: backend.Notifier,
		Cache:    breakdowns,
		Logger:   logger,
	})

	srv := apphttp.NewServer(":"+cfg.Port, budgets, apphttp.Options{
		DefaultUserID:      cfg.DefaultUserID,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              backend.Ping,
		Logger:             logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting spendtrack server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"alerts_enabled", backend.Notifier != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
