package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          string
	UserID      string
	AmountCents int64
	Category    string
	Description string
	SpentOn     string
}

// Budget is a row of the budgets table.
type Budget struct {
	ID          string
	UserID      string
	Year        int64
	Month       int64
	Category    string
	AmountCents int64
}

const createExpense = `
INSERT INTO expenses (id, user_id, amount_cents, category, description, spent_on)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		e.ID, e.UserID, e.AmountCents, e.Category, e.Description, e.SpentOn)
	return err
}

const listExpensesBetween = `
SELECT id, user_id, amount_cents, category, description, spent_on
FROM expenses
WHERE user_id = ? AND spent_on >= ? AND spent_on < ?
ORDER BY spent_on, created_at, id`

// ListExpensesBetween returns rows with from <= spent_on < to.
func (q *Queries) ListExpensesBetween(ctx context.Context, userID, from, to string) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesBetween, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.AmountCents, &e.Category, &e.Description, &e.SpentOn); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const upsertBudget = `
INSERT INTO budgets (id, user_id, year, month, category, amount_cents)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, year, month, category)
DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP
RETURNING id`

// UpsertBudget inserts or updates a budget and returns the stored row's ID.
func (q *Queries) UpsertBudget(ctx context.Context, b Budget) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, upsertBudget,
		b.ID, b.UserID, b.Year, b.Month, b.Category, b.AmountCents).Scan(&id)
	return id, err
}

const listBudgetsForPeriod = `
SELECT id, user_id, year, month, category, amount_cents
FROM budgets
WHERE user_id = ? AND year = ? AND month = ?
ORDER BY category`

func (q *Queries) ListBudgetsForPeriod(ctx context.Context, userID string, year, month int64) ([]Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetsForPeriod, userID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Year, &b.Month, &b.Category, &b.AmountCents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
