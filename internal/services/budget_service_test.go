package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/spending"
	"spendtrack/internal/store/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []core.BudgetAlert
	err    error
}

func (n *recordingNotifier) NotifyOverBudget(_ context.Context, a core.BudgetAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return n.err
}

// gatedStore holds the first ListExpenses call until release is closed.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   memory.NewSeeded(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *gatedStore) ListExpenses(ctx context.Context, userID string, p core.Period) ([]core.Expense, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.ListExpenses(ctx, userID, p)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// countingStore counts list calls so cache hits can be observed.
type countingStore struct {
	*memory.Store
	expenseLists int
	failLists    error
}

func (s *countingStore) ListExpenses(ctx context.Context, userID string, p core.Period) ([]core.Expense, error) {
	s.expenseLists++
	if s.failLists != nil {
		return nil, s.failLists
	}
	return s.Store.ListExpenses(ctx, userID, p)
}

var dec2025 = memory.SamplePeriod

func newService(t *testing.T) (*BudgetService, *countingStore, *recordingNotifier) {
	t.Helper()
	store := &countingStore{Store: memory.NewSeeded()}
	notifier := &recordingNotifier{}
	svc := NewBudgetService(store, Options{
		Notifier: notifier,
		Cache:    cache.NewLRUCache[core.Breakdown](16, time.Minute),
		Now:      func() time.Time { return time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC) },
	})
	return svc, store, notifier
}

func TestRecordExpense_CrossingBudgetAlertsOnce(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	// Subscription sits at 97.00 of 100.00 in the sample data.
	res, err := svc.RecordExpense(ctx, NewExpense{
		UserID: memory.SampleUserID, Amount: "5", Category: "Subscription", Description: "News",
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if res.Alert == nil {
		t.Fatal("expected an alert when crossing the budget")
	}
	if res.Alert.Over.Cents != 200 || res.Alert.Spent.Cents != 10200 || res.Alert.ExpenseID != res.Expense.ID {
		t.Errorf("unexpected alert %+v", *res.Alert)
	}
	if !res.Status.IsOver() {
		t.Error("status should be over budget")
	}

	res, err = svc.RecordExpense(ctx, NewExpense{
		UserID: memory.SampleUserID, Amount: "1.00", Category: "Subscription",
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if res.Alert != nil {
		t.Error("already over budget, no second alert expected")
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("notifier got %d alerts, want 1", len(notifier.alerts))
	}
}

func TestRecordExpense_NoBudgetNeverAlerts(t *testing.T) {
	svc, _, notifier := newService(t)

	res, err := svc.RecordExpense(context.Background(), NewExpense{
		UserID: memory.SampleUserID, Amount: "500", Category: "Shopping",
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if res.Alert != nil || len(notifier.alerts) != 0 {
		t.Error("category without a budget must not alert")
	}
	if res.Status.Budget != nil {
		t.Error("Shopping has no budget set")
	}
	if !res.Expense.Date.Equal(time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("zero date should default to now, got %v", res.Expense.Date)
	}
}

func TestRecordExpense_NotifierFailureDoesNotFail(t *testing.T) {
	svc, _, notifier := newService(t)
	notifier.err = errors.New("broker down")

	res, err := svc.RecordExpense(context.Background(), NewExpense{
		UserID: memory.SampleUserID, Amount: "200", Category: "Transport",
	})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if res.Alert == nil || res.Expense.ID == "" {
		t.Fatal("expense should be saved and alert reported")
	}
}

func TestRecordExpense_Invalid(t *testing.T) {
	svc, _, _ := newService(t)
	tests := []struct {
		name string
		in   NewExpense
	}{
		{"non-numeric amount", NewExpense{UserID: "u", Amount: "abc", Category: "Food"}},
		{"negative amount", NewExpense{UserID: "u", Amount: "-3", Category: "Food"}},
		{"empty amount", NewExpense{UserID: "u", Amount: " ", Category: "Food"}},
		{"blank category", NewExpense{UserID: "u", Amount: "3", Category: "  "}},
		{"no user", NewExpense{Amount: "3", Category: "Food"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordExpense(context.Background(), tt.in)
			if !core.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	_, err := svc.RecordExpense(context.Background(), NewExpense{UserID: "u", Amount: "12..5", Category: "Food"})
	var pe *core.ParseError
	if !errors.As(err, &pe) || pe.Field != "amount" {
		t.Errorf("expected ParseError on amount, got %v", err)
	}
}

func TestBreakdown_CachedAndInvalidated(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	b, err := svc.Breakdown(ctx, memory.SampleUserID, dec2025)
	if err != nil {
		t.Fatalf("Breakdown() error = %v", err)
	}
	if b.Total.Cents != 53800 || b.Empty {
		t.Errorf("total = %d, want 53800", b.Total.Cents)
	}
	if b.Rows[0].Category != "Shopping" || b.Rows[0].Budget != nil {
		t.Errorf("largest row should be Shopping without budget, got %+v", b.Rows[0])
	}
	if len(b.Alerts) != 0 {
		t.Errorf("no budgeted category is over in the sample, got %+v", b.Alerts)
	}

	if _, err := svc.Breakdown(ctx, memory.SampleUserID, dec2025); err != nil {
		t.Fatal(err)
	}
	if store.expenseLists != 1 {
		t.Fatalf("second breakdown should hit the cache, lists = %d", store.expenseLists)
	}

	if _, err := svc.SetBudgets(ctx, memory.SampleUserID, dec2025, map[string]string{"Shopping": "100"}); err != nil {
		t.Fatal(err)
	}
	b, err = svc.Breakdown(ctx, memory.SampleUserID, dec2025)
	if err != nil {
		t.Fatal(err)
	}
	if store.expenseLists != 2 {
		t.Fatalf("budget change should invalidate the cache, lists = %d", store.expenseLists)
	}
	want := core.OverBudget{Category: "Shopping", Over: core.Money{Cents: 12075}}
	if len(b.Alerts) != 1 || b.Alerts[0] != want {
		t.Errorf("alerts = %+v, want [%+v]", b.Alerts, want)
	}
}

func TestBreakdown_EmptyPeriodAndErrors(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	b, err := svc.Breakdown(ctx, memory.SampleUserID, core.Period{Year: 2026, Month: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !b.Empty || b.Total.Cents != 0 || len(b.Rows) != 0 {
		t.Errorf("expected empty breakdown, got %+v", b)
	}

	if _, err := svc.Breakdown(ctx, "u", core.Period{Year: 2025, Month: 13}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}

	store.failLists = errors.New("db down")
	if _, err := svc.Breakdown(ctx, "other-user", dec2025); err == nil || core.IsValidation(err) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestSetBudgets(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	saved, err := svc.SetBudgets(ctx, "u1", dec2025, map[string]string{
		"Food":      "250.00",
		"Transport": "",
		"Fun":       "$1,5",
	})
	if err != nil {
		t.Fatalf("SetBudgets() error = %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("blank amounts are skipped, saved %d", len(saved))
	}

	budgets, err := svc.Budgets(ctx, "u1", dec2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(budgets) != 2 || budgets[0].Category != "Food" || budgets[1].Amount.Cents != 150 {
		t.Errorf("unexpected budgets %+v", budgets)
	}

	if _, err := svc.SetBudgets(ctx, "u1", dec2025, map[string]string{"Food": "lots"}); !core.IsValidation(err) {
		t.Errorf("expected parse error, got %v", err)
	}
	if _, err := svc.SetBudgets(ctx, "u1", dec2025, map[string]string{"Food": "1", " Food ": "2"}); !errors.Is(err, core.ErrDuplicateBudget) {
		t.Errorf("expected duplicate error, got %v", err)
	}
}

func TestSearchAndCategories(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	got, err := svc.Search(ctx, memory.SampleUserID, dec2025, spending.SearchQuery{Text: "bus", Category: spending.AllCategories})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("search for bus = %d results, want 2", len(got))
	}

	got, err = svc.Search(ctx, memory.SampleUserID, dec2025, spending.SearchQuery{Category: "Subscription"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("Subscription = %d results, want 4", len(got))
	}

	cats, err := svc.Categories(ctx, memory.SampleUserID, dec2025)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 5 {
		t.Errorf("categories = %v, want 5 entries", cats)
	}
}

func TestBreakdown_LoadInFlightDoesNotCacheStaleData(t *testing.T) {
	store := newGatedStore()
	svc := NewBudgetService(store, Options{
		Cache: cache.NewLRUCache[core.Breakdown](16, time.Minute),
		Now:   func() time.Time { return time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC) },
	})
	ctx := context.Background()

	loaded := make(chan core.Breakdown, 1)
	go func() {
		b, err := svc.Breakdown(ctx, memory.SampleUserID, dec2025)
		if err != nil {
			t.Errorf("Breakdown() error = %v", err)
		}
		loaded <- b
	}()
	<-store.entered

	recorded := make(chan error, 1)
	go func() {
		_, err := svc.RecordExpense(ctx, NewExpense{UserID: memory.SampleUserID, Amount: "10", Category: "Food"})
		recorded <- err
	}()
	// The write must queue behind the load rather than slip past it.
	key := cacheKey(memory.SampleUserID, dec2025)
	waitFor(t, "write to queue behind the load", func() bool { return svc.locks.refs(key) == 2 })
	close(store.release)

	if b := <-loaded; b.Total.Cents != 53800 {
		t.Errorf("in-flight total = %d, want 53800", b.Total.Cents)
	}
	if err := <-recorded; err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}

	b, err := svc.Breakdown(ctx, memory.SampleUserID, dec2025)
	if err != nil {
		t.Fatal(err)
	}
	if b.Total.Cents != 54800 {
		t.Errorf("breakdown after write total = %d, want 54800", b.Total.Cents)
	}
	if n := svc.locks.size(); n != 0 {
		t.Errorf("period locks left behind: %d", n)
	}
}

func TestRecordExpense_ConcurrentWritesCrossBudgetOnce(t *testing.T) {
	svc, _, notifier := newService(t)
	ctx := context.Background()

	// Subscription sits at 97.00 of 100.00; together the writes reach 101.00.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordExpense(ctx, NewExpense{UserID: memory.SampleUserID, Amount: "2", Category: "Subscription"}); err != nil {
				t.Errorf("RecordExpense() error = %v", err)
			}
		}()
	}
	wg.Wait()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts published = %d, want 1", len(notifier.alerts))
	}
	if a := notifier.alerts[0]; a.Over.Cents != 100 || a.Spent.Cents != 10100 {
		t.Errorf("alert = %+v, want over by 100 cents", a)
	}
}
