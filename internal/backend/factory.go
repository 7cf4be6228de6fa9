package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendtrack/internal/amqp"
	"spendtrack/internal/ports"
	"spendtrack/internal/storage"
	"spendtrack/internal/storage/postgres"
	"spendtrack/internal/store/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With("component", "backend")}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	default:
		res = f.createMemoryBackend()
	}
	if err != nil {
		return nil, err
	}

	if config.SeedSample {
		if err := seedSample(ctx, res.Store); err != nil {
			_ = res.Cleanup()
			return nil, fmt.Errorf("seed sample data: %w", err)
		}
		f.logger.Info("Seeded sample data", "user_id", memory.SampleUserID, "period", memory.SamplePeriod.String())
	}

	f.attachNotifier(res, config)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.NewRepository(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &BackendResult{Store: repo, Ping: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{
		Store:   memory.New(),
		Ping:    func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}
}

// attachNotifier connects to AMQP when configured. A broker that is down
// only disables alerts, it never blocks startup.
func (f *DefaultFactory) attachNotifier(res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without alerts", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)

	res.Notifier = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		return errors.Join(client.Close(), storeCleanup())
	}
}

// seedSample loads the demo month. Budgets are upserted so reseeding is
// harmless; expenses are only added to an empty month.
func seedSample(ctx context.Context, store ports.Store) error {
	existing, err := store.ListExpenses(ctx, memory.SampleUserID, memory.SamplePeriod)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, e := range memory.SampleExpenses() {
			e.ID = ""
			if _, err := store.AddExpense(ctx, e); err != nil {
				return err
			}
		}
	}
	budgets := memory.SampleBudgets()
	for i := range budgets {
		budgets[i].ID = ""
	}
	_, err = store.UpsertBudgets(ctx, budgets)
	return err
}

