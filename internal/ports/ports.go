package ports

import (
	"context"

	"spendtrack/internal/core"
)

// Ports for outbound adapters. Every read is scoped to an explicit user and
// period; stores never infer either from ambient state.
type (
	ExpenseWriter interface {
		// AddExpense stores e and returns it with its assigned ID.
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	ExpenseLister interface {
		// ListExpenses returns the user's expenses dated inside period, oldest first.
		ListExpenses(ctx context.Context, userID string, period core.Period) ([]core.Expense, error)
	}

	BudgetWriter interface {
		// UpsertBudgets creates or replaces budgets keyed by
		// (user, year, month, category). A batch repeating a key is rejected
		// with core.ErrDuplicateBudget.
		UpsertBudgets(ctx context.Context, budgets []core.Budget) ([]core.Budget, error)
	}

	BudgetLister interface {
		// ListBudgets returns the user's budgets for period, ordered by category.
		ListBudgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error)
	}

	// Store bundles every port a backend must provide.
	Store interface {
		ExpenseWriter
		ExpenseLister
		BudgetWriter
		BudgetLister
	}

	// Notifier publishes a budget alert when a category goes over budget.
	Notifier interface {
		NotifyOverBudget(ctx context.Context, alert core.BudgetAlert) error
	}
)
