package core

// CategoryTotal is an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Amount   Money
}

// OverBudget is a category whose spend exceeds its budget, and by how much.
type OverBudget struct {
	Category string
	Over     Money
}

// Progress is the share of a budget already spent, capped at 100 for display.
type Progress struct {
	Percentage float64
	IsOver     bool
}

// BreakdownRow is one category line of a spending breakdown.
// Budget and Progress are nil when no budget is set for the category.
type BreakdownRow struct {
	Category  string
	Spent     Money
	Budget    *Money
	Progress  *Progress
	Over      bool
	OverBy    Money
	Remaining Money
	BarWidth  float64 // spent relative to the largest category, 0-100
}

// Breakdown summarizes spending for one user and period.
type Breakdown struct {
	UserID string
	Period Period
	Total  Money
	Empty  bool
	Rows   []BreakdownRow
	Alerts []OverBudget
}

// BudgetAlert is raised when an expense pushes a category over its budget.
type BudgetAlert struct {
	UserID    string
	Period    Period
	Category  string
	Spent     Money
	Budget    Money
	Over      Money
	ExpenseID string
}
