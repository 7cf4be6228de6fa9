package spending

import (
	"reflect"
	"testing"
	"time"

	"spendtrack/internal/core"
)

func TestBuildBreakdown(t *testing.T) {
	period := core.Period{Year: 2025, Month: 12}
	budgets := []core.Budget{
		budget("Food", 25000), budget("Transport", 10000),
		budget("Entertainment", 15000), budget("Subscription", 10000),
		budget("Shopping", 10000),
	}
	bd := BuildBreakdown("user-123", period, sampleExpenses(), budgets)

	if bd.Empty {
		t.Fatalf("expected non-empty breakdown")
	}
	if bd.Total.Cents != 63800 {
		t.Fatalf("total = %d, want 63800", bd.Total.Cents)
	}
	if len(bd.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(bd.Rows))
	}

	top := bd.Rows[0]
	if top.Category != "Shopping" || !top.Over || top.OverBy.Cents != 12075 || top.BarWidth != 100 {
		t.Fatalf("unexpected top row: %+v", top)
	}
	if top.Progress == nil || top.Progress.Percentage != 100 {
		t.Fatalf("expected capped progress on top row, got %+v", top.Progress)
	}

	food := bd.Rows[1]
	if food.Category != "Food" || food.Over || food.Remaining.Cents != 13275 {
		t.Fatalf("unexpected food row: %+v", food)
	}

	want := []core.OverBudget{{Category: "Shopping", Over: core.Money{Cents: 12075}}}
	if !reflect.DeepEqual(bd.Alerts, want) {
		t.Fatalf("alerts = %v, want %v", bd.Alerts, want)
	}
}

func TestBuildBreakdownNoBudget(t *testing.T) {
	bd := BuildBreakdown("u", core.Period{Year: 2025, Month: 12}, []core.Expense{exp("Gifts", 2000)}, nil)
	if len(bd.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(bd.Rows))
	}
	row := bd.Rows[0]
	if row.Budget != nil || row.Progress != nil || row.Over {
		t.Fatalf("expected no budget set, got %+v", row)
	}
	if StatusLine(row) != "No budget set" {
		t.Fatalf("status line = %q", StatusLine(row))
	}
	if len(bd.Alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", bd.Alerts)
	}
}

func TestBuildBreakdownEmpty(t *testing.T) {
	bd := BuildBreakdown("u", core.Period{Year: 2025, Month: 12}, nil, []core.Budget{budget("Food", 100)})
	if !bd.Empty || len(bd.Rows) != 0 || bd.Total.Cents != 0 {
		t.Fatalf("expected empty breakdown, got %+v", bd)
	}
}

func TestStatusFor(t *testing.T) {
	expenses := []core.Expense{exp("Food", 20000), exp("Food", 6000), exp("Transport", 100)}
	st := StatusFor("Food", expenses, []core.Budget{budget("Food", 25000)})
	if st.Spent.Cents != 26000 || !st.IsOver() {
		t.Fatalf("unexpected status: %+v", st)
	}

	miss := StatusFor("Transport", expenses, []core.Budget{budget("Food", 25000)})
	if miss.Budget != nil || miss.IsOver() {
		t.Fatalf("expected no budget set, got %+v", miss)
	}
}

func TestFilter(t *testing.T) {
	day := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	data := []core.Expense{
		{ID: "1", Description: "Coffee", Category: "Food", Amount: core.Money{Cents: 550}, Date: day},
		{ID: "2", Description: "Bus fare", Category: "Transport", Amount: core.Money{Cents: 325}, Date: day},
		{ID: "3", Description: "Textbook", Category: "Education", Amount: core.Money{Cents: 8999}, Date: day},
		{ID: "4", Description: "Groceries", Category: "Food", Amount: core.Money{Cents: 4275}, Date: day},
		{ID: "5", Description: "Gym", Category: "Health", Amount: core.Money{Cents: 2999}, Date: day},
	}
	ids := func(es []core.Expense) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	tests := []struct {
		name string
		q    SearchQuery
		want []string
	}{
		{"no filter", SearchQuery{}, []string{"1", "2", "3", "4", "5"}},
		{"all category", SearchQuery{Category: "All"}, []string{"1", "2", "3", "4", "5"}},
		{"text case insensitive", SearchQuery{Text: "COF"}, []string{"1"}},
		{"surrounding spaces ignored", SearchQuery{Text: " cof ", Category: " Food "}, []string{"1"}},
		{"category only", SearchQuery{Category: "Food"}, []string{"1", "4"}},
		{"text and category", SearchQuery{Text: "g", Category: "Food"}, []string{"4"}},
		{"no results", SearchQuery{Text: "rent"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(data, tt.q))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestFilterPeriod(t *testing.T) {
	dec := core.Period{Year: 2025, Month: 12}
	in := []core.Expense{
		{ID: "a", UserID: "u1", Date: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", UserID: "u1", Date: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)},
		{ID: "c", UserID: "u2", Date: time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)},
	}
	got := FilterPeriod(in, "u1", dec)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected filtered expenses: %+v", got)
	}

	budgets := []core.Budget{
		{UserID: "u1", Year: 2025, Month: 12, Category: "Food"},
		{UserID: "u1", Year: 2025, Month: 11, Category: "Food"},
		{UserID: "u2", Year: 2025, Month: 12, Category: "Food"},
	}
	if got := BudgetsFor(budgets, "u1", dec); len(got) != 1 || got[0].Month != 12 {
		t.Fatalf("unexpected budgets: %+v", got)
	}
}

func TestFormatting(t *testing.T) {
	if got := FormatAmount(core.Money{Cents: 11725}); got != "$117.25" {
		t.Errorf("FormatAmount = %q", got)
	}
	if got := FormatAmount(core.Money{Cents: 123450}); got != "$1,234.50" {
		t.Errorf("FormatAmount = %q", got)
	}
	if got := FormatPercent(97); got != "97%" {
		t.Errorf("FormatPercent = %q", got)
	}
	if got := FormatPercent(33.5); got != "34%" {
		t.Errorf("FormatPercent = %q", got)
	}
	lines := AlertLines([]core.OverBudget{{Category: "Shopping", Over: core.Money{Cents: 12075}}})
	if !reflect.DeepEqual(lines, []string{"Shopping: $120.75 over"}) {
		t.Errorf("AlertLines = %v", lines)
	}
}
