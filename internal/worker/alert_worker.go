package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/sheets"
)

// AlertSource delivers budget alerts to a handler until ctx ends.
type AlertSource interface {
	ConsumeBudgetAlerts(ctx context.Context, handler func(context.Context, core.BudgetAlert) error) error
}

// BreakdownSource computes the current breakdown for a user and period.
type BreakdownSource interface {
	Breakdown(ctx context.Context, userID string, period core.Period) (core.Breakdown, error)
}

// AlertWorker records every budget alert it receives and, when a breakdown
// source is set, exports a fresh breakdown of the affected month next to it.
type AlertWorker struct {
	exporter   sheets.Exporter
	breakdowns BreakdownSource // optional
	logger     *log.Logger
	retryDelay time.Duration
}

func NewAlertWorker(exporter sheets.Exporter, breakdowns BreakdownSource, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AlertWorker{
		exporter:   exporter,
		breakdowns: breakdowns,
		logger:     logger.WithComponent(log.ComponentWorker),
		retryDelay: 5 * time.Second,
	}
}

// HandleAlert exports one alert. A returned error makes the broker redeliver
// it, so errors are only returned before the alert row is written; a failed
// breakdown export after that point is logged instead of retried.
func (w *AlertWorker) HandleAlert(ctx context.Context, a core.BudgetAlert) error {
	fields := log.NewFields().
		WithOperation(log.OpExport).
		WithScope(a.UserID, a.Period.String())
	w.logger.InfoContext(ctx, "Processing budget alert",
		append(fields.ToSlice(), log.FieldCategory, a.Category, log.FieldOverCents, a.Over.Cents)...)

	if w.exporter == nil {
		return nil
	}

	var (
		b       core.Breakdown
		haveOne bool
	)
	if w.breakdowns != nil {
		var err error
		if b, err = w.breakdowns.Breakdown(ctx, a.UserID, a.Period); err != nil {
			return fmt.Errorf("load breakdown: %w", err)
		}
		haveOne = true
	}

	ref, err := w.exporter.ExportAlert(ctx, a)
	if err != nil {
		return fmt.Errorf("export alert: %w", err)
	}
	w.logger.InfoContext(ctx, "Budget alert exported", append(fields.ToSlice(), "ref", ref)...)

	if haveOne {
		if _, err := w.exporter.ExportBreakdown(ctx, b); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export breakdown after alert",
				append(fields.WithError(err).ToSlice(), log.FieldCategory, a.Category)...)
		}
	}
	return nil
}

// Run consumes alerts until ctx is cancelled, restarting the consumer after
// transient failures.
func (w *AlertWorker) Run(ctx context.Context, src AlertSource) error {
	for {
		err := src.ConsumeBudgetAlerts(ctx, w.HandleAlert)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil
		}
		w.logger.ErrorContext(ctx, "Alert consumer stopped, restarting",
			log.FieldError, err,
			"retry_in", w.retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}
