package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
	"spendtrack/internal/services"
	"spendtrack/internal/spending"
)

const maxBodyBytes = 1 << 16

// errBadRequest marks malformed bodies, as opposed to invalid values.
var errBadRequest = errors.New("malformed request")

// userID reads the X-User-ID header, falling back to the configured user.
func (s *Server) userID(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get(HeaderUserID)); id != "" {
		return id
	}
	return s.defaultUserID
}

// parsePeriod reads year and month from the query. Missing values default to
// the current month; present but invalid values are an error.
func (s *Server) parsePeriod(r *http.Request) (core.Period, error) {
	now := s.now()
	p := core.Period{Year: now.Year(), Month: int(now.Month())}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		p.Month = m
	}
	return p, p.Validate()
}

func parseSearchQuery(r *http.Request) spending.SearchQuery {
	q := r.URL.Query()
	return spending.SearchQuery{
		Text:     sanitizeInput(q.Get("q")),
		Category: sanitizeInput(q.Get("category")),
	}
}

// amountText accepts an amount as a JSON string ("12,50") or number (12.5).
// Numbers are rewritten in plain decimal form, so 1e2 arrives as "100";
// strings are passed on as typed, where exponent form is rejected.
type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = amountText(d.String())
	return nil
}

type expenseRequest struct {
	Amount      amountText `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

// parseExpenseRequest decodes a JSON body or a form post into a NewExpense.
func parseExpenseRequest(r *http.Request, userID string) (services.NewExpense, error) {
	var req expenseRequest
	if isJSON(r) {
		if err := decodeJSON(r, &req); err != nil {
			return services.NewExpense{}, err
		}
	} else {
		r.Body = io.NopCloser(io.LimitReader(r.Body, maxBodyBytes))
		if err := r.ParseForm(); err != nil {
			return services.NewExpense{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		req = expenseRequest{
			Amount:      amountText(r.PostForm.Get("amount")),
			Category:    r.PostForm.Get("category"),
			Description: r.PostForm.Get("description"),
			Date:        r.PostForm.Get("date"),
		}
	}

	in := services.NewExpense{
		UserID:      userID,
		Amount:      string(req.Amount),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if d := strings.TrimSpace(req.Date); d != "" {
		t, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return services.NewExpense{}, &core.ParseError{Field: "date", Input: d, Err: err}
		}
		in.Date = t
	}
	return in, nil
}

// parseBudgetsRequest decodes {"Food": "250.00", ...}. Values may be strings
// or numbers. Keys are passed through untrimmed so the service can reject
// categories that only differ by surrounding whitespace.
func parseBudgetsRequest(r *http.Request) (map[string]string, error) {
	var raw map[string]amountText
	if err := decodeJSON(r, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for category, amount := range raw {
		out[category] = string(amount)
	}
	return out, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
