package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/store/memory"
)

var testNow = time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, ready func(context.Context) error) *Server {
	t.Helper()
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	svc := services.NewBudgetService(memory.NewSeeded(), services.Options{
		Cache:  cache.NewLRUCache[core.Breakdown](16, time.Minute),
		Logger: logger,
		Now:    func() time.Time { return testNow },
	})
	srv := NewServer(":0", svc, Options{
		DefaultUserID:      memory.SampleUserID,
		RateLimitPerMinute: 100,
		Ready:              ready,
		Logger:             logger,
		Now:                func() time.Time { return testNow },
	})
	t.Cleanup(srv.limiter.Stop)
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Error("middleware headers missing")
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ready" {
		t.Fatalf("readyz = %d %q", rr.Code, rr.Body.String())
	}

	down := newTestServer(t, func(context.Context) error { return errors.New("db down") })
	if rr := do(t, down, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend = %d", rr.Code)
	}
}

func TestCreateExpense_JSONCrossingBudget(t *testing.T) {
	srv := newTestServer(t, nil)
	body := `{"amount":"5","category":"Subscription","description":"News","date":"2025-12-20"}`
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := do(t, srv, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[createdExpenseJSON](t, rr)
	if got.Expense.AmountCents != 500 || got.Expense.Date != "2025-12-20" || got.Expense.UserID != memory.SampleUserID {
		t.Errorf("unexpected expense %+v", got.Expense)
	}
	if got.Alert == nil || got.Alert.Over != "2.00" || !got.Status.Over {
		t.Errorf("expected over-budget alert, got %+v / %+v", got.Alert, got.Status)
	}
}

func TestCreateExpense_FormAndNumericJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	form := url.Values{"amount": {"12,50"}, "category": {"Food"}, "description": {"Lunch"}}
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(HeaderUserID, "alice")
	rr := do(t, srv, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("form status = %d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[createdExpenseJSON](t, rr)
	if got.Expense.AmountCents != 1250 || got.Expense.UserID != "alice" || got.Expense.Date != "2025-12-15" {
		t.Errorf("unexpected expense %+v", got.Expense)
	}
	if got.Status.Budget != nil || got.Alert != nil {
		t.Error("alice has no budgets")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"amount":3.5,"category":"Food"}`))
	req.Header.Set("Content-Type", "application/json")
	if rr := do(t, srv, req); rr.Code != http.StatusCreated {
		t.Fatalf("numeric amount status = %d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"amount":1e2,"category":"Food"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, "alice")
	rr = do(t, srv, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("exponent amount status = %d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[createdExpenseJSON](t, rr); got.Expense.AmountCents != 10000 {
		t.Errorf("1e2 stored as %d cents, want 10000", got.Expense.AmountCents)
	}
}

func TestCreateExpense_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantField string
	}{
		{"non-numeric amount", `{"amount":"abc","category":"Food"}`, http.StatusUnprocessableEntity, "amount"},
		{"negative amount", `{"amount":"-1","category":"Food"}`, http.StatusUnprocessableEntity, "amount"},
		{"blank category", `{"amount":"1","category":"  "}`, http.StatusUnprocessableEntity, ""},
		{"bad date", `{"amount":"1","category":"Food","date":"15/12/2025"}`, http.StatusUnprocessableEntity, "date"},
		{"malformed json", `{"amount":`, http.StatusBadRequest, ""},
		{"unknown field", `{"amount":"1","category":"Food","tip":2}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := do(t, srv, req)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if got := decode[errorJSON](t, rr); got.Field != tt.wantField || got.Error == "" {
				t.Errorf("error body = %+v, want field %q", got, tt.wantField)
			}
		})
	}
}

func TestListExpensesAndCategories(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/expenses?year=2025&month=12&q=BUS", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	list := decode[struct {
		Period   string        `json:"period"`
		Expenses []expenseJSON `json:"expenses"`
	}](t, rr)
	if list.Period != "2025-12" || len(list.Expenses) != 2 {
		t.Errorf("search bus = %+v", list)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/expenses?category=Subscription", nil))
	list = decode[struct {
		Period   string        `json:"period"`
		Expenses []expenseJSON `json:"expenses"`
	}](t, rr)
	if len(list.Expenses) != 4 {
		t.Errorf("default period should be the current month, got %d Subscription expenses", len(list.Expenses))
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/categories?year=2025&month=12", nil))
	cats := decode[struct {
		Categories []string `json:"categories"`
	}](t, rr)
	if len(cats.Categories) != 5 {
		t.Errorf("categories = %v", cats.Categories)
	}

	for _, q := range []string{"month=13", "month=x", "year=abc"} {
		if rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/expenses?"+q, nil)); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", q, rr.Code)
		}
	}
}

func TestBudgets(t *testing.T) {
	srv := newTestServer(t, nil)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/budgets?year=2026&month=1", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(t, srv, req)
	}

	if rr := put(`{"Food":"300","Fun":25.5,"Transport":""}`); rr.Code != http.StatusNoContent {
		t.Fatalf("PUT status = %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := put(`{"Food":"lots"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid amount status = %d", rr.Code)
	}
	if rr := put(`{"Food":"1"," Food ":"2"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", rr.Code)
	}

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/budgets?year=2026&month=1", nil))
	got := decode[struct {
		Budgets []budgetJSON `json:"budgets"`
	}](t, rr)
	if len(got.Budgets) != 2 || got.Budgets[0].Category != "Food" || got.Budgets[0].AmountCents != 30000 || got.Budgets[1].Amount != "25.50" {
		t.Errorf("budgets = %+v", got.Budgets)
	}
}

func TestBreakdown(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/breakdown?year=2025&month=12", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	b := decode[breakdownJSON](t, rr)
	if b.Total != "$538.00" || b.Empty || len(b.Rows) != 5 {
		t.Fatalf("unexpected breakdown %+v", b)
	}
	first := b.Rows[0]
	if first.Category != "Shopping" || first.Budget != nil || first.Status != "No budget set" || first.BarWidth != 100 {
		t.Errorf("first row = %+v", first)
	}
	if len(b.Alerts) != 0 {
		t.Errorf("alerts = %v", b.Alerts)
	}

	rr = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/breakdown?year=2026&month=2", nil))
	if b := decode[breakdownJSON](t, rr); !b.Empty || len(b.Rows) != 0 {
		t.Errorf("expected empty breakdown, got %+v", b)
	}
}

func TestWriteRateLimit(t *testing.T) {
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	svc := services.NewBudgetService(memory.New(), services.Options{Logger: logger})
	srv := NewServer(":0", svc, Options{DefaultUserID: "u", RateLimitPerMinute: 1, Logger: logger})
	t.Cleanup(srv.limiter.Stop)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"amount":"1","category":"Food"}`))
		req.Header.Set("Content-Type", "application/json")
		return do(t, srv, req).Code
	}
	if code := post(); code != http.StatusCreated {
		t.Fatalf("first post = %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second post = %d, want 429", code)
	}
	if rr := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/breakdown", nil)); rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, got %d", rr.Code)
	}
}

func TestShutdown(t *testing.T) {
	srv := newTestServer(t, nil)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
