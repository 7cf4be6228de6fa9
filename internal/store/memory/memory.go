package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/core"
	"spendtrack/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// Store keeps expenses and budgets in process memory for the session.
type Store struct {
	mu       sync.Mutex
	expenses []core.Expense
	budgets  map[string]core.Budget // keyed by core.Budget.Key
}

func New() *Store {
	return &Store{budgets: make(map[string]core.Budget)}
}

// NewSeeded returns a store preloaded with the demo data set.
func NewSeeded() *Store {
	s := New()
	s.expenses = append(s.expenses, SampleExpenses()...)
	for _, b := range SampleBudgets() {
		s.budgets[b.Key()] = b
	}
	return s
}

// AddExpense stores the expense, assigning an ID when it has none.
func (s *Store) AddExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Date = e.Date.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = append(s.expenses, e)
	return e, nil
}

// ListExpenses returns a copy of the user's expenses inside period.
func (s *Store) ListExpenses(_ context.Context, userID string, period core.Period) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if e.UserID == userID && period.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UpsertBudgets replaces any budget sharing the same key.
func (s *Store) UpsertBudgets(_ context.Context, budgets []core.Budget) ([]core.Budget, error) {
	if err := core.CheckUniqueBudgets(budgets); err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if prev, ok := s.budgets[b.Key()]; ok {
			b.ID = prev.ID
		} else if b.ID == "" {
			b.ID = uuid.NewString()
		}
		s.budgets[b.Key()] = b
		out = append(out, b)
	}
	return out, nil
}

// ListBudgets returns the user's budgets for period ordered by category.
func (s *Store) ListBudgets(_ context.Context, userID string, period core.Period) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID && b.Year == period.Year && b.Month == period.Month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Demo data, dated December 2025 for user-123.
const (
	SampleUserID = "user-123"
	sampleYear   = 2025
	sampleMonth  = time.December
)

// SamplePeriod is the period the demo data falls in.
var SamplePeriod = core.Period{Year: sampleYear, Month: int(sampleMonth)}

func sampleDay(d int) time.Time {
	return time.Date(sampleYear, sampleMonth, d, 0, 0, 0, 0, time.UTC)
}

func SampleExpenses() []core.Expense {
	rows := []struct {
		id, desc, category string
		cents              int64
		day                int
	}{
		{"exp-1", "Groceries", "Food", 8450, 1},
		{"exp-2", "Bus pass top-up", "Transport", 1500, 2},
		{"exp-3", "Concert tickets", "Entertainment", 6300, 3},
		{"exp-4", "Streaming", "Subscription", 2600, 4},
		{"exp-5", "Coffee and lunch", "Food", 3275, 5},
		{"exp-6", "Bus fare", "Transport", 2500, 6},
		{"exp-7", "Winter jacket", "Shopping", 16900, 7},
		{"exp-8", "Music", "Subscription", 1750, 8},
		{"exp-9", "Cloud storage", "Subscription", 2350, 9},
		{"exp-10", "Gym", "Subscription", 3000, 10},
		{"exp-11", "Textbook", "Shopping", 5175, 11},
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Expense{
			ID:          r.id,
			UserID:      SampleUserID,
			Amount:      core.Money{Cents: r.cents},
			Category:    r.category,
			Description: r.desc,
			Date:        sampleDay(r.day),
		})
	}
	return out
}

func SampleBudgets() []core.Budget {
	rows := []struct {
		id, category string
		cents        int64
	}{
		{"budget-1", "Food", 25000},
		{"budget-2", "Transport", 10000},
		{"budget-3", "Entertainment", 15000},
		{"budget-4", "Subscription", 10000},
	}
	out := make([]core.Budget, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Budget{
			ID:       r.id,
			UserID:   SampleUserID,
			Year:     sampleYear,
			Month:    int(sampleMonth),
			Category: r.category,
			Amount:   core.Money{Cents: r.cents},
		})
	}
	return out
}
