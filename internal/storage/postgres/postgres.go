// Package postgres stores expenses and budgets in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"spendtrack/internal/core"
	"spendtrack/internal/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ ports.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects to url, applies migrations and returns a ready repository.
func NewRepository(ctx context.Context, url string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	if err := RunMigrations(cfg.ConnConfig); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded schema over a dedicated database/sql connection.
func RunMigrations(connCfg *pgx.ConnConfig) error {
	db := stdlib.OpenDB(*connCfg)
	defer db.Close()
	return migrateUp(db)
}

func migrateUp(db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// AddExpense implements ports.ExpenseWriter
func (r *Repository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Date = dayOf(e.Date)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO expenses (id, user_id, amount_cents, category, description, spent_on)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Amount.Cents, e.Category, e.Description, e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to Postgres",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)
	return e, nil
}

// ListExpenses implements ports.ExpenseLister
func (r *Repository) ListExpenses(ctx context.Context, userID string, period core.Period) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount_cents, category, description, spent_on
		FROM expenses
		WHERE user_id = $1 AND spent_on >= $2 AND spent_on < $3
		ORDER BY spent_on, created_at, id`,
		userID, period.Start(), period.End())
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", period, err)
	}

	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		var (
			e     core.Expense
			cents int64
		)
		if err := row.Scan(&e.ID, &e.UserID, &cents, &e.Category, &e.Description, &e.Date); err != nil {
			return core.Expense{}, err
		}
		e.Amount = core.Money{Cents: cents}
		e.Date = dayOf(e.Date)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan expenses: %w", err)
	}
	return expenses, nil
}

// UpsertBudgets implements ports.BudgetWriter
func (r *Repository) UpsertBudgets(ctx context.Context, budgets []core.Budget) ([]core.Budget, error) {
	if err := core.CheckUniqueBudgets(budgets); err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	out := make([]core.Budget, 0, len(budgets))
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, b := range budgets {
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO budgets (id, user_id, year, month, category, amount_cents)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT ON CONSTRAINT budgets_user_period_category_key
				DO UPDATE SET amount_cents = EXCLUDED.amount_cents, updated_at = now()
				RETURNING id`,
				b.ID, b.UserID, b.Year, b.Month, b.Category, b.Amount.Cents).Scan(&b.ID)
			if err != nil {
				return fmt.Errorf("upsert budget %q: %w", b.Category, err)
			}
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListBudgets implements ports.BudgetLister
func (r *Repository) ListBudgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, year, month, category, amount_cents
		FROM budgets
		WHERE user_id = $1 AND year = $2 AND month = $3
		ORDER BY category`,
		userID, period.Year, period.Month)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", period, err)
	}

	budgets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Budget, error) {
		var (
			b     core.Budget
			cents int64
		)
		if err := row.Scan(&b.ID, &b.UserID, &b.Year, &b.Month, &b.Category, &cents); err != nil {
			return core.Budget{}, err
		}
		b.Amount = core.Money{Cents: cents}
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan budgets: %w", err)
	}
	return budgets, nil
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
