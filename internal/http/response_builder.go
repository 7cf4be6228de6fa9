package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/spending"
)

type expenseJSON struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

type budgetJSON struct {
	Category    string `json:"category"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type statusJSON struct {
	Category string   `json:"category"`
	Spent    string   `json:"spent"`
	Budget   *string  `json:"budget"`
	Percent  *float64 `json:"percent"`
	Over     bool     `json:"over"`
}

type alertJSON struct {
	Category string `json:"category"`
	Spent    string `json:"spent"`
	Budget   string `json:"budget"`
	Over     string `json:"over"`
}

type createdExpenseJSON struct {
	Expense expenseJSON `json:"expense"`
	Status  statusJSON  `json:"status"`
	Alert   *alertJSON  `json:"alert,omitempty"`
}

type breakdownRowJSON struct {
	Category string  `json:"category"`
	Spent    string  `json:"spent"`
	Budget   *string `json:"budget"`
	Percent  *string `json:"percent"`
	Over     bool    `json:"over"`
	Status   string  `json:"status"`
	BarWidth float64 `json:"bar_width"`
}

type breakdownJSON struct {
	Period string             `json:"period"`
	Label  string             `json:"label"`
	Total  string             `json:"total"`
	Empty  bool               `json:"empty"`
	Rows   []breakdownRowJSON `json:"rows"`
	Alerts []string           `json:"alerts"`
}

type errorJSON struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount.String(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.Format(time.DateOnly),
	}
}

func toExpensesJSON(expenses []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

func toBudgetsJSON(budgets []core.Budget) []budgetJSON {
	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetJSON{
			Category:    b.Category,
			Year:        b.Year,
			Month:       b.Month,
			Amount:      b.Amount.String(),
			AmountCents: b.Amount.Cents,
		})
	}
	return out
}

func toCreatedJSON(res services.RecordResult) createdExpenseJSON {
	out := createdExpenseJSON{
		Expense: toExpenseJSON(res.Expense),
		Status: statusJSON{
			Category: res.Status.Category,
			Spent:    res.Status.Spent.String(),
			Over:     res.Status.IsOver(),
		},
	}
	if res.Status.Budget != nil {
		budget := res.Status.Budget.String()
		out.Status.Budget = &budget
	}
	if res.Status.Progress != nil {
		pct := res.Status.Progress.Percentage
		out.Status.Percent = &pct
	}
	if a := res.Alert; a != nil {
		out.Alert = &alertJSON{
			Category: a.Category,
			Spent:    a.Spent.String(),
			Budget:   a.Budget.String(),
			Over:     a.Over.String(),
		}
	}
	return out
}

func toBreakdownJSON(b core.Breakdown) breakdownJSON {
	out := breakdownJSON{
		Period: b.Period.String(),
		Label:  b.Period.Label(),
		Total:  spending.FormatAmount(b.Total),
		Empty:  b.Empty,
		Rows:   make([]breakdownRowJSON, 0, len(b.Rows)),
		Alerts: spending.AlertLines(b.Alerts),
	}
	for _, row := range b.Rows {
		r := breakdownRowJSON{
			Category: row.Category,
			Spent:    spending.FormatAmount(row.Spent),
			Over:     row.Over,
			Status:   spending.StatusLine(row),
			BarWidth: row.BarWidth,
		}
		if row.Budget != nil {
			budget := spending.FormatAmount(*row.Budget)
			r.Budget = &budget
		}
		if row.Progress != nil {
			pct := spending.FormatPercent(row.Progress.Percentage)
			r.Percent = &pct
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *core.ParseError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: pe.Error(), Field: pe.Field})
	case core.IsValidation(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorJSON{Error: err.Error()})
	case errors.Is(err, core.ErrDuplicateBudget):
		writeJSON(w, http.StatusConflict, errorJSON{Error: err.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}
