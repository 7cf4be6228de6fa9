package http

import (
	"context"
	"net/http"
	"time"

	"spendtrack/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := parseExpenseRequest(r, s.userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.budgets.RecordExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreatedJSON(res))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.budgets.Search(r.Context(), s.userID(r), period, parseSearchQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":   period.String(),
		"expenses": toExpensesJSON(expenses),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, err := s.budgets.Categories(r.Context(), s.userID(r), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":     period.String(),
		"categories": categories,
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	budgets, err := s.budgets.Budgets(r.Context(), s.userID(r), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":  period.String(),
		"budgets": toBudgetsJSON(budgets),
	})
}

func (s *Server) handleSetBudgets(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amounts, err := parseBudgetsRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.budgets.SetBudgets(r.Context(), s.userID(r), period, amounts); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	period, err := s.parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.budgets.Breakdown(r.Context(), s.userID(r), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownJSON(b))
}
