// Package sheets exports budget alerts and monthly breakdowns as spreadsheet rows.
package sheets

import (
	"context"

	"spendtrack/internal/core"
)

// Ports for outbound exporters. Each call appends rows and returns a
// reference to where they landed.
type (
	AlertExporter interface {
		ExportAlert(ctx context.Context, a core.BudgetAlert) (rowRef string, err error)
	}

	BreakdownExporter interface {
		ExportBreakdown(ctx context.Context, b core.Breakdown) (rowRef string, err error)
	}

	Exporter interface {
		AlertExporter
		BreakdownExporter
	}
)
