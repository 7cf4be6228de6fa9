package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spendtrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_Expenses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	inputs := []core.Expense{
		{UserID: "u1", Amount: core.Money{Cents: 8450}, Category: "Food", Description: "Groceries", Date: time.Date(2025, 12, 1, 15, 30, 0, 0, time.UTC)},
		{UserID: "u1", Amount: core.Money{Cents: 1500}, Category: "Transport", Date: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
		{UserID: "u1", Amount: core.Money{Cents: 999}, Category: "Food", Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{UserID: "u2", Amount: core.Money{Cents: 100}, Category: "Food", Date: time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range inputs {
		saved, err := repo.AddExpense(ctx, e)
		if err != nil {
			t.Fatalf("add expense: %v", err)
		}
		if saved.ID == "" {
			t.Fatalf("expected generated ID")
		}
	}

	got, err := repo.ListExpenses(ctx, "u1", core.Period{Year: 2025, Month: 12})
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 December expenses for u1, got %d", len(got))
	}
	if got[0].Category != "Food" || got[0].Description != "Groceries" || got[0].Amount.Cents != 8450 {
		t.Fatalf("unexpected first expense: %+v", got[0])
	}
	if !got[0].Date.Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected day-truncated date, got %v", got[0].Date)
	}
}

func TestSQLiteRepository_BudgetUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dec := core.Period{Year: 2025, Month: 12}

	food := core.Budget{UserID: "u1", Year: 2025, Month: 12, Category: "Food", Amount: core.Money{Cents: 25000}}
	first, err := repo.UpsertBudgets(ctx, []core.Budget{food})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	food.Amount = core.Money{Cents: 30000}
	second, err := repo.UpsertBudgets(ctx, []core.Budget{food})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("expected stable ID across upserts, got %q and %q", first[0].ID, second[0].ID)
	}

	list, err := repo.ListBudgets(ctx, "u1", dec)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(list) != 1 || list[0].Amount.Cents != 30000 {
		t.Fatalf("expected one updated budget, got %+v", list)
	}

	if _, err := repo.UpsertBudgets(ctx, []core.Budget{food, food}); !errors.Is(err, core.ErrDuplicateBudget) {
		t.Fatalf("expected ErrDuplicateBudget, got %v", err)
	}
}
