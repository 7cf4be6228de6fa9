package backend

import (
	"context"

	"spendtrack/internal/ports"
)

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// BackendResult is a ready store plus the optional alert notifier.
type BackendResult struct {
	Store    ports.Store
	Notifier ports.Notifier // nil when AMQP is not configured
	Ping     func(ctx context.Context) error
	Cleanup  CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresURL  string
	SeedSample   bool

	// AMQP is optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
