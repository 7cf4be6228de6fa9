package spending

import (
	"strings"

	"spendtrack/internal/core"
)

// AllCategories is the category selector value that disables category filtering.
const AllCategories = "All"

// SearchQuery selects expenses by description text and category.
type SearchQuery struct {
	Text     string
	Category string
}

// Filter returns expenses whose description contains q.Text (case-insensitive)
// and whose category equals q.Category. Surrounding whitespace is trimmed from
// both fields first, so "coffee " matches "Coffee". An empty text or an
// empty/"All" category matches everything. Input order is preserved.
func Filter(expenses []core.Expense, q SearchQuery) []core.Expense {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	category := strings.TrimSpace(q.Category)
	matchAll := category == "" || category == AllCategories

	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if text != "" && !strings.Contains(strings.ToLower(e.Description), text) {
			continue
		}
		if !matchAll && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterPeriod keeps the expenses of userID that fall inside period.
func FilterPeriod(expenses []core.Expense, userID string, period core.Period) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.UserID == userID && period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// BudgetsFor keeps the budgets of userID for period.
func BudgetsFor(budgets []core.Budget, userID string, period core.Period) []core.Budget {
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.UserID == userID && b.Year == period.Year && b.Month == period.Month {
			out = append(out, b)
		}
	}
	return out
}
