package spending

import (
	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

// BuildBreakdown assembles the per-category view of a period: totals sorted by
// spend, budget status for each category, relative bar widths and the list of
// over-budget alerts.
func BuildBreakdown(userID string, period core.Period, expenses []core.Expense, budgets []core.Budget) core.Breakdown {
	totals := CategoryTotals(expenses)
	bd := core.Breakdown{
		UserID: userID,
		Period: period,
		Total:  TotalSpent(expenses),
		Empty:  len(totals) == 0,
		Rows:   make([]core.BreakdownRow, 0, len(totals)),
		Alerts: OverBudgetCategories(totals, budgets),
	}

	sorted := SortedTotals(totals)
	var maxSpent int64
	if len(sorted) > 0 {
		maxSpent = sorted[0].Amount.Cents
	}

	for _, ct := range sorted {
		row := core.BreakdownRow{
			Category: ct.Category,
			Spent:    ct.Amount,
			BarWidth: barWidth(ct.Amount.Cents, maxSpent),
		}
		if b, ok := FindBudget(budgets, ct.Category); ok {
			amount := b.Amount
			progress := BudgetProgress(ct.Amount, amount)
			row.Budget = &amount
			row.Progress = &progress
			row.Over = progress.IsOver
			if row.Over {
				row.OverBy = ct.Amount.Sub(amount)
			} else {
				row.Remaining = amount.Sub(ct.Amount)
			}
		}
		bd.Rows = append(bd.Rows, row)
	}
	return bd
}

func barWidth(spent, maxSpent int64) float64 {
	if maxSpent <= 0 {
		return 0
	}
	return decimal.NewFromInt(spent).
		Mul(hundred).
		DivRound(decimal.NewFromInt(maxSpent), progressScale).
		InexactFloat64()
}

// CategoryStatus is the budget position of a single category.
type CategoryStatus struct {
	Category string
	Spent    core.Money
	Budget   *core.Money
	Progress *core.Progress
}

// StatusFor computes the status of one category from the period's data.
func StatusFor(category string, expenses []core.Expense, budgets []core.Budget) CategoryStatus {
	st := CategoryStatus{Category: category}
	for _, e := range expenses {
		if e.Category == category {
			st.Spent = st.Spent.Add(e.Amount)
		}
	}
	if b, ok := FindBudget(budgets, category); ok {
		amount := b.Amount
		p := BudgetProgress(st.Spent, amount)
		st.Budget = &amount
		st.Progress = &p
	}
	return st
}

// IsOver reports whether the category has a budget and exceeds it.
func (s CategoryStatus) IsOver() bool {
	return s.Progress != nil && s.Progress.IsOver
}
