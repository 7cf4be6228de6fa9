package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendtrack/internal/core"
)

// BudgetAlertMessage is published when an expense pushes a category over its budget.
// Amounts travel as integer cents.
type BudgetAlertMessage struct {
	UserID      string    `json:"user_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Category    string    `json:"category"`
	SpentCents  int64     `json:"spent_cents"`
	BudgetCents int64     `json:"budget_cents"`
	OverCents   int64     `json:"over_cents"`
	ExpenseID   string    `json:"expense_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(a core.BudgetAlert) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:      a.UserID,
		Year:        a.Period.Year,
		Month:       a.Period.Month,
		Category:    a.Category,
		SpentCents:  a.Spent.Cents,
		BudgetCents: a.Budget.Cents,
		OverCents:   a.Over.Cents,
		ExpenseID:   a.ExpenseID,
		Timestamp:   time.Now().UTC(),
	}
}

// Alert converts the message back into the domain type.
func (m *BudgetAlertMessage) Alert() core.BudgetAlert {
	return core.BudgetAlert{
		UserID:    m.UserID,
		Period:    core.Period{Year: m.Year, Month: m.Month},
		Category:  m.Category,
		Spent:     core.Money{Cents: m.SpentCents},
		Budget:    core.Money{Cents: m.BudgetCents},
		Over:      core.Money{Cents: m.OverCents},
		ExpenseID: m.ExpenseID,
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON decodes and sanity-checks a message body.
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Category == "" {
		return nil, fmt.Errorf("budget alert missing user or category")
	}
	if err := (core.Period{Year: msg.Year, Month: msg.Month}).Validate(); err != nil {
		return nil, fmt.Errorf("budget alert: %w", err)
	}
	return &msg, nil
}
