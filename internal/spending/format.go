package spending

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	"spendtrack/internal/core"
)

// FormatAmount renders money as a dollar string with thousands separators,
// e.g. "$1,234.50".
func FormatAmount(m core.Money) string {
	sign := ""
	if m.Cents < 0 {
		sign = "-"
		m.Cents = -m.Cents
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", m.Float())
}

// FormatPercent rounds a percentage to a whole number, e.g. "97%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(p)))
}

// AlertLines renders over-budget categories as "Food: $12.50 over".
func AlertLines(over []core.OverBudget) []string {
	lines := make([]string, 0, len(over))
	for _, o := range over {
		lines = append(lines, fmt.Sprintf("%s: %s over", o.Category, FormatAmount(o.Over)))
	}
	return lines
}

// StatusLine describes a breakdown row the way the breakdown view does:
// "$12.50 over budget", "$87.50 remaining" or "No budget set".
func StatusLine(row core.BreakdownRow) string {
	switch {
	case row.Budget == nil:
		return "No budget set"
	case row.Over:
		return FormatAmount(row.OverBy) + " over budget"
	default:
		return FormatAmount(row.Remaining) + " remaining"
	}
}
