// Package cli holds the startup steps shared by cmd/spendtrack,
// cmd/alert-worker and cmd/breakdown.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendtrack/internal/backend"
	"spendtrack/internal/cache"
	"spendtrack/internal/config"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env (or the given files) for local development.
// Missing files are ignored and real environment variables always win.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store or exits the process.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// NewBreakdownCache returns the breakdown cache and a manager already
// cleaning it at half the TTL.
func NewBreakdownCache(cfg *config.Config) (*cache.LRUCache[core.Breakdown], *cache.Manager) {
	c := cache.NewLRUCache[core.Breakdown](cfg.CacheSize, cfg.CacheTTL)
	m := cache.NewManager()
	m.Register(c)
	interval := cfg.CacheTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	m.StartCleanup(interval)
	return c, m
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}
