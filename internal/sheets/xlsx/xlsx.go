// Package xlsx appends budget alerts and breakdowns to a local Excel
// workbook, for setups without a Google spreadsheet.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

const defaultSheet = "Sheet1"

type Exporter struct {
	path           string
	alertsSheet    string
	breakdownSheet string
	now            func() time.Time

	// The workbook is rewritten on every export; one writer at a time.
	mu sync.Mutex
}

var _ sheets.Exporter = (*Exporter)(nil)

func New(path, alertsSheet, breakdownSheet string) (*Exporter, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return nil, fmt.Errorf("workbook path %q must end in .xlsx", path)
	}
	if strings.TrimSpace(alertsSheet) == "" {
		alertsSheet = "Alerts"
	}
	if strings.TrimSpace(breakdownSheet) == "" {
		breakdownSheet = "Breakdown"
	}
	return &Exporter{
		path:           path,
		alertsSheet:    alertsSheet,
		breakdownSheet: breakdownSheet,
		now:            time.Now,
	}, nil
}

func (e *Exporter) ExportAlert(ctx context.Context, a core.BudgetAlert) (string, error) {
	if a.UserID == "" || a.Category == "" {
		return "", errors.New("alert needs a user and a category")
	}
	return e.appendRows(ctx, e.alertsSheet, sheets.AlertHeader, [][]any{sheets.AlertRow(a, e.now())})
}

func (e *Exporter) ExportBreakdown(ctx context.Context, b core.Breakdown) (string, error) {
	if err := b.Period.Validate(); err != nil {
		return "", err
	}
	sheet := sheets.YearPrefixedName(e.breakdownSheet, b.Period.Year)
	return e.appendRows(ctx, sheet, sheets.BreakdownHeader, sheets.BreakdownRows(b))
}

// appendRows writes rows below the last used row of sheet, adding the sheet
// and its header when missing. The returned ref is "<sheet>!A<first>:A<last>".
func (e *Exporter) appendRows(ctx context.Context, sheet string, header []any, rows [][]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fresh, err := e.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return "", fmt.Errorf("look up sheet %s: %w", sheet, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if fresh && sheet != defaultSheet {
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return "", fmt.Errorf("drop default sheet: %w", err)
			}
		}
	}

	existing, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sheet, err)
	}
	next := len(existing) + 1
	if next == 1 {
		if err := setRow(f, sheet, 1, header); err != nil {
			return "", err
		}
		next = 2
	}

	first := next
	for _, row := range rows {
		if err := setRow(f, sheet, next, row); err != nil {
			return "", err
		}
		next++
	}

	if err := f.SaveAs(e.path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	ref := fmt.Sprintf("%s!A%d:A%d", sheet, first, next-1)
	slog.InfoContext(ctx, "Rows appended to workbook",
		"component", "sheets",
		"path", e.path,
		"sheet", sheet,
		"rows", len(rows),
		"ref", ref)
	return ref, nil
}

func (e *Exporter) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(e.path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	if dir := filepath.Dir(e.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("create workbook directory: %w", err)
		}
	}
	return excelize.NewFile(), true, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	return nil
}
