// Package spending aggregates expenses against budgets.
//
// Every function here is pure: inputs are never mutated and results depend
// only on the arguments. Amounts are integer cents, so totals are exact and
// can never be NaN, infinite or negative for valid input.
package spending

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

var (
	hundred = decimal.NewFromInt(100)
	// progressScale is the number of decimals kept in Progress.Percentage.
	progressScale int32 = 2
)

// CategoryTotals sums expense amounts per category. Categories without
// expenses are absent from the result; an empty input yields an empty map.
func CategoryTotals(expenses []core.Expense) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, e := range expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals
}

// TotalSpent sums every expense amount. Empty input yields zero.
func TotalSpent(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// FindBudget returns the first budget for category. The boolean is false when
// no budget is set, which is an expected state rather than an error.
func FindBudget(budgets []core.Budget, category string) (core.Budget, bool) {
	for _, b := range budgets {
		if b.Category == category {
			return b, true
		}
	}
	return core.Budget{}, false
}

// OverBudgetCategories lists categories whose total exceeds their budget,
// sorted by category name. Categories without a budget are never reported.
func OverBudgetCategories(totals map[string]core.Money, budgets []core.Budget) []core.OverBudget {
	over := make([]core.OverBudget, 0)
	for category, spent := range totals {
		b, ok := FindBudget(budgets, category)
		if !ok || spent.Cents <= b.Amount.Cents {
			continue
		}
		over = append(over, core.OverBudget{Category: category, Over: spent.Sub(b.Amount)})
	}
	sort.Slice(over, func(i, j int) bool { return over[i].Category < over[j].Category })
	return over
}

// BudgetProgress reports how much of budget has been spent.
//
// Percentage is spent/budget*100 capped at 100. A zero budget reports 100
// percent and is over as soon as anything has been spent.
func BudgetProgress(spent, budget core.Money) core.Progress {
	if budget.Cents <= 0 {
		return core.Progress{Percentage: 100, IsOver: spent.Cents > 0}
	}
	pct := decimal.NewFromInt(spent.Cents).
		Mul(hundred).
		DivRound(decimal.NewFromInt(budget.Cents), progressScale)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return core.Progress{
		Percentage: pct.InexactFloat64(),
		IsOver:     spent.Cents > budget.Cents,
	}
}

// SortedTotals orders category totals by amount, largest first. Ties are
// broken by category name so the order is reproducible.
func SortedTotals(totals map[string]core.Money) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(totals))
	for c, m := range totals {
		out = append(out, core.CategoryTotal{Category: c, Amount: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Categories returns the distinct categories found in expenses, sorted.
func Categories(expenses []core.Expense) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range expenses {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out
}
