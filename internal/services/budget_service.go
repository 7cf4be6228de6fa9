package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/ports"
	"spendtrack/internal/spending"
)

// NewExpense is an expense as submitted by a client. Amount is the raw text
// the user typed and is parsed here, never coerced.
type NewExpense struct {
	UserID      string
	Amount      string
	Category    string
	Description string
	Date        time.Time // zero means today
}

// RecordResult is the stored expense plus the category's position after it.
type RecordResult struct {
	Expense core.Expense
	Status  spending.CategoryStatus
	Alert   *core.BudgetAlert
}

type Options struct {
	Notifier ports.Notifier              // optional
	Cache    cache.Cache[core.Breakdown] // optional
	Logger   *log.Logger
	Now      func() time.Time
}

// BudgetService records expenses and budgets and serves breakdowns for a
// given user and month. Writes and breakdown loads for the same user and
// month are serialized, so alerts see every earlier write and the cache never
// keeps a breakdown older than the last invalidation.
type BudgetService struct {
	store    ports.Store
	notifier ports.Notifier
	cache    cache.Cache[core.Breakdown]
	locks    *periodLocks
	logger   *log.Logger
	now      func() time.Time
}

func NewBudgetService(store ports.Store, opts Options) *BudgetService {
	s := &BudgetService{
		store:    store,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		locks:    newPeriodLocks(),
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RecordExpense parses and stores an expense. When the expense takes its
// category from within budget to over budget, an alert is returned and sent
// to the notifier; a failing notifier does not fail the call.
func (s *BudgetService) RecordExpense(ctx context.Context, in NewExpense) (RecordResult, error) {
	amount, err := core.ParseAmount("amount", in.Amount)
	if err != nil {
		return RecordResult{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	e := core.Expense{
		UserID:      strings.TrimSpace(in.UserID),
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        date.UTC(),
	}
	if err := e.Validate(); err != nil {
		return RecordResult{}, err
	}

	period := core.NewPeriod(e.Date)
	unlock := s.locks.lock(cacheKey(e.UserID, period))
	defer unlock()

	expenses, budgets, err := s.load(ctx, e.UserID, period)
	if err != nil {
		return RecordResult{}, err
	}
	before := spending.StatusFor(e.Category, expenses, budgets)

	saved, err := s.store.AddExpense(ctx, e)
	if err != nil {
		return RecordResult{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidate(e.UserID, period)

	after := spending.StatusFor(e.Category, append(expenses, saved), budgets)
	res := RecordResult{Expense: saved, Status: after}

	fields := log.NewFields().
		WithOperation(log.OpRecordExpense).
		WithScope(saved.UserID, period.String()).
		WithExpense(saved.ID, saved.Category, saved.Amount.Cents)
	s.logger.InfoContext(ctx, "Expense recorded", fields.ToSlice()...)

	if after.IsOver() && !before.IsOver() {
		alert := core.BudgetAlert{
			UserID:    saved.UserID,
			Period:    period,
			Category:  saved.Category,
			Spent:     after.Spent,
			Budget:    *after.Budget,
			Over:      after.Spent.Sub(*after.Budget),
			ExpenseID: saved.ID,
		}
		res.Alert = &alert
		s.notify(ctx, alert)
	}
	return res, nil
}

func (s *BudgetService) notify(ctx context.Context, alert core.BudgetAlert) {
	s.logger.WarnContext(ctx, "Category went over budget",
		log.FieldUserID, alert.UserID,
		log.FieldCategory, alert.Category,
		log.FieldOverCents, alert.Over.Cents)
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOverBudget(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish budget alert",
			log.FieldOperation, log.OpNotify,
			log.FieldCategory, alert.Category,
			log.FieldError, err)
	}
}

// SetBudgets parses amounts keyed by category and upserts them for the
// period. Blank amounts are skipped, which leaves any existing budget alone.
func (s *BudgetService) SetBudgets(ctx context.Context, userID string, period core.Period, amounts map[string]string) ([]core.Budget, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(amounts))
	for c := range amounts {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	budgets := make([]core.Budget, 0, len(categories))
	for _, c := range categories {
		raw := strings.TrimSpace(amounts[c])
		if raw == "" {
			continue
		}
		category := strings.TrimSpace(c)
		amount, err := core.ParseAmount(category, raw)
		if err != nil {
			return nil, err
		}
		b := core.Budget{UserID: userID, Year: period.Year, Month: period.Month, Category: category, Amount: amount}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if len(budgets) == 0 {
		return nil, nil
	}
	if err := core.CheckUniqueBudgets(budgets); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(cacheKey(userID, period))
	defer unlock()

	saved, err := s.store.UpsertBudgets(ctx, budgets)
	if err != nil {
		return nil, fmt.Errorf("save budgets: %w", err)
	}
	s.invalidate(userID, period)

	s.logger.InfoContext(ctx, "Budgets saved",
		log.NewFields().
			WithOperation(log.OpSetBudgets).
			WithScope(userID, period.String()).
			ToSlice()...)
	return saved, nil
}

// Budgets lists the budgets set for the period.
func (s *BudgetService) Budgets(ctx context.Context, userID string, period core.Period) ([]core.Budget, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	budgets, err := s.store.ListBudgets(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return spending.BudgetsFor(budgets, userID, period), nil
}

// Breakdown returns the spending breakdown for the period, served from cache
// when possible.
func (s *BudgetService) Breakdown(ctx context.Context, userID string, period core.Period) (core.Breakdown, error) {
	if err := period.Validate(); err != nil {
		return core.Breakdown{}, err
	}
	key := cacheKey(userID, period) + "breakdown"
	if b, ok := s.cached(ctx, key); ok {
		return b, nil
	}

	unlock := s.locks.lock(cacheKey(userID, period))
	defer unlock()
	// A concurrent load may have filled the entry while we waited.
	if b, ok := s.cached(ctx, key); ok {
		return b, nil
	}

	expenses, budgets, err := s.load(ctx, userID, period)
	if err != nil {
		return core.Breakdown{}, err
	}
	b := spending.BuildBreakdown(userID, period, expenses, budgets)
	if s.cache != nil {
		s.cache.Set(key, b)
	}
	return b, nil
}

func (s *BudgetService) cached(ctx context.Context, key string) (core.Breakdown, bool) {
	if s.cache == nil {
		return core.Breakdown{}, false
	}
	b, ok := s.cache.Get(key)
	if ok {
		s.logger.DebugContext(ctx, "Breakdown cache hit", "key", key)
	}
	return b, ok
}

// Search lists the period's expenses matching q.
func (s *BudgetService) Search(ctx context.Context, userID string, period core.Period, q spending.SearchQuery) ([]core.Expense, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return spending.Filter(spending.FilterPeriod(expenses, userID, period), q), nil
}

// Categories lists the distinct categories spent on in the period.
func (s *BudgetService) Categories(ctx context.Context, userID string, period core.Period) ([]string, error) {
	expenses, err := s.Search(ctx, userID, period, spending.SearchQuery{})
	if err != nil {
		return nil, err
	}
	return spending.Categories(expenses), nil
}

// load fetches the period's expenses and budgets concurrently.
func (s *BudgetService) load(ctx context.Context, userID string, period core.Period) ([]core.Expense, []core.Budget, error) {
	var (
		expenses []core.Expense
		budgets  []core.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if expenses, err = s.store.ListExpenses(gctx, userID, period); err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if budgets, err = s.store.ListBudgets(gctx, userID, period); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return spending.FilterPeriod(expenses, userID, period), spending.BudgetsFor(budgets, userID, period), nil
}

func (s *BudgetService) invalidate(userID string, period core.Period) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(cacheKey(userID, period))
}

func cacheKey(userID string, period core.Period) string {
	return userID + "|" + period.String() + "|"
}
