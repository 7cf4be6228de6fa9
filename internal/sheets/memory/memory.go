// Package memory is an in-process sheets.Exporter. It keeps rows in memory
// and can dump them as CSV-ish lines for local runs without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

var _ sheets.Exporter = (*Exporter)(nil)

type Exporter struct {
	mu        sync.Mutex
	now       func() time.Time
	alerts    [][]any
	breakdown [][]any
}

func New() *Exporter {
	return &Exporter{now: time.Now}
}

// ExportAlert appends the alert row and returns a synthetic reference.
func (e *Exporter) ExportAlert(_ context.Context, a core.BudgetAlert) (string, error) {
	if a.UserID == "" || a.Category == "" {
		return "", fmt.Errorf("alert needs a user and a category")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, sheets.AlertRow(a, e.now()))
	return fmt.Sprintf("mem:alerts:%d", len(e.alerts)), nil
}

// ExportBreakdown appends every breakdown row; the reference spans them.
func (e *Exporter) ExportBreakdown(_ context.Context, b core.Breakdown) (string, error) {
	rows := sheets.BreakdownRows(b)
	e.mu.Lock()
	defer e.mu.Unlock()
	first := len(e.breakdown) + 1
	e.breakdown = append(e.breakdown, rows...)
	return fmt.Sprintf("mem:breakdown:%d-%d", first, len(e.breakdown)), nil
}

func (e *Exporter) Alerts() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.alerts...)
}

func (e *Exporter) BreakdownRows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.breakdown...)
}

// WriteTo writes the breakdown rows tab-separated, header first.
func (e *Exporter) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, row := range append([][]any{sheets.BreakdownHeader}, e.BreakdownRows()...) {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		n, err := fmt.Fprintln(w, strings.Join(cells, "\t"))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
