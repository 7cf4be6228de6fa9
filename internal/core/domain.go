package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Period identifies one calendar month.
	Period struct {
		Year  int
		Month int // 1-12
	}

	Expense struct {
		ID          string
		UserID      string
		Amount      Money
		Category    string // matched case-sensitively against Budget.Category
		Description string
		Date        time.Time
	}

	// Budget is the spending ceiling for one category in one month.
	// At most one Budget exists per (UserID, Year, Month, Category).
	Budget struct {
		ID       string
		UserID   string
		Month    int
		Year     int
		Category string
		Amount   Money
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrEmptyCategory   = errors.New("empty category")
	ErrEmptyUser       = errors.New("empty user id")
	ErrDuplicateBudget = errors.New("duplicate budget for category and period")
	ErrDescription     = errors.New("description too long")
	ErrMissingDate     = errors.New("date cannot be zero")
)

const maxDescriptionLen = 200

// NewPeriod returns the period containing t.
func NewPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 {
		return ErrInvalidYear
	}
	return nil
}

// Contains reports whether t falls inside the period (UTC).
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == p.Year && int(t.Month()) == p.Month
}

// Start returns midnight UTC of the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Label renders the period the way the budget and breakdown views title it ("December 2025").
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", time.Month(p.Month).String(), p.Year)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUser
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Description) > maxDescriptionLen {
		return fmt.Errorf("%w (max %d characters)", ErrDescription, maxDescriptionLen)
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrEmptyUser
	}
	if err := b.Period().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Amount.Validate()
}

// Period returns the month the budget applies to.
func (b Budget) Period() Period {
	return Period{Year: b.Year, Month: b.Month}
}

// Key is the uniqueness key of a budget.
func (b Budget) Key() string {
	return fmt.Sprintf("%s|%04d-%02d|%s", b.UserID, b.Year, b.Month, b.Category)
}

// CheckUniqueBudgets rejects a batch that carries the same key twice.
func CheckUniqueBudgets(budgets []Budget) error {
	seen := make(map[string]struct{}, len(budgets))
	for _, b := range budgets {
		k := b.Key()
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%w: %q in %s", ErrDuplicateBudget, b.Category, b.Period())
		}
		seen[k] = struct{}{}
	}
	return nil
}

// IsValidation reports whether err was caused by bad input rather than by a
// failing dependency.
func IsValidation(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return true
	}
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidMonth, ErrInvalidYear, ErrEmptyCategory,
		ErrEmptyUser, ErrDescription, ErrMissingDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
