package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/spending"
)

// AlertHeader and BreakdownHeader name the columns written by AlertRow and
// BreakdownRows.
var (
	AlertHeader     = []any{"Raised At", "User", "Month", "Category", "Spent", "Budget", "Over", "Expense"}
	BreakdownHeader = []any{"Month", "User", "Category", "Spent", "Budget", "Used", "Status"}
)

// AlertRow renders one alert. Amounts are plain numbers so the sheet can sum them.
func AlertRow(a core.BudgetAlert, raisedAt time.Time) []any {
	return []any{
		raisedAt.UTC().Format(time.RFC3339),
		a.UserID,
		a.Period.String(),
		a.Category,
		a.Spent.Float(),
		a.Budget.Float(),
		a.Over.Float(),
		a.ExpenseID,
	}
}

// BreakdownRows renders a breakdown as one row per category followed by a
// total row. Budget and Used stay blank when no budget is set.
func BreakdownRows(b core.Breakdown) [][]any {
	rows := make([][]any, 0, len(b.Rows)+1)
	month := b.Period.String()
	for _, r := range b.Rows {
		var budget, used any = "", ""
		if r.Budget != nil {
			budget = r.Budget.Float()
		}
		if r.Progress != nil {
			used = spending.FormatPercent(r.Progress.Percentage)
		}
		rows = append(rows, []any{month, b.UserID, r.Category, r.Spent.Float(), budget, used, spending.StatusLine(r)})
	}
	rows = append(rows, []any{month, b.UserID, "Total", b.Total.Float(), "", "", ""})
	return rows
}

// YearPrefixedName returns "<year> <base>" unless base already starts with a
// 4-digit year. Breakdowns go to one sheet per year.
func YearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
