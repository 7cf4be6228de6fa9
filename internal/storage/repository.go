package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/core"
	"spendtrack/internal/ports"

	_ "modernc.org/sqlite"
)

// dateLayout is how expense days are stored; it sorts lexicographically.
const dateLayout = "2006-01-02"

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddExpense implements ports.ExpenseWriter
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Date = dayOf(e.Date)

	err := r.queries.CreateExpense(ctx, Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Description: e.Description,
		SpentOn:     e.Date.Format(dateLayout),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"spent_on", e.Date.Format(dateLayout))

	return e, nil
}

// ListExpenses implements ports.ExpenseLister
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string, period core.Period) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, userID,
		period.Start().Format(dateLayout), period.End().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", period, err)
	}

	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		day, err := time.Parse(dateLayout, row.SpentOn)
		if err != nil {
			return nil, fmt.Errorf("parse spent_on of expense %s: %w", row.ID, err)
		}
		expenses = append(expenses, core.Expense{
			ID:          row.ID,
			UserID:      row.UserID,
			Amount:      core.Money{Cents: row.AmountCents},
			Category:    row.Category,
			Description: row.Description,
			Date:        day,
		})
	}
	return expenses, nil
}

// UpsertBudgets implements ports.BudgetWriter. The whole batch is written in
// one transaction.
func (r *SQLiteRepository) UpsertBudgets(ctx context.Context, budgets []core.Budget) ([]core.Budget, error) {
	if err := core.CheckUniqueBudgets(budgets); err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin budget tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		id, err := q.UpsertBudget(ctx, Budget{
			ID:          b.ID,
			UserID:      b.UserID,
			Year:        int64(b.Year),
			Month:       int64(b.Month),
			Category:    b.Category,
			AmountCents: b.Amount.Cents,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert budget %q: %w", b.Category, err)
		}
		b.ID = id
		out = append(out, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit budget tx: %w", err)
	}

	slog.InfoContext(ctx, "Budgets saved to SQLite", "count", len(out))
	return out, nil
}

// ListBudgets implements ports.BudgetLister
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgetsForPeriod(ctx, userID, int64(period.Year), int64(period.Month))
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", period, err)
	}

	budgets := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		budgets = append(budgets, core.Budget{
			ID:       row.ID,
			UserID:   row.UserID,
			Year:     int(row.Year),
			Month:    int(row.Month),
			Category: row.Category,
			Amount:   core.Money{Cents: row.AmountCents},
		})
	}
	return budgets, nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
