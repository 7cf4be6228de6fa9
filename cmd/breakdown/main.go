// Command breakdown prints a month's spending by category.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"spendtrack/internal/cli"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/sheets"
	gsheet "spendtrack/internal/sheets/google"
	"spendtrack/internal/sheets/xlsx"
	"spendtrack/internal/spending"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentBreakdown)
	cfg := cli.LoadAndValidateConfig(logger)

	now := time.Now()
	user := flag.String("user", cfg.DefaultUserID, "user whose expenses are summarized")
	year := flag.Int("year", now.Year(), "year")
	month := flag.Int("month", int(now.Month()), "month (1-12)")
	export := flag.Bool("export", false, "also append the breakdown to Google Sheets")
	workbook := flag.String("xlsx", cfg.ExportXLSXPath, "also append the breakdown to this .xlsx workbook")
	flag.Parse()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	svc := services.NewBudgetService(backend.Store, services.Options{Logger: logger})
	b, err := svc.Breakdown(ctx, *user, core.Period{Year: *year, Month: *month})
	if err != nil {
		logger.Error("Failed to build breakdown", log.FieldError, err)
		os.Exit(1)
	}
	if err := render(os.Stdout, b); err != nil {
		logger.Error("Failed to print breakdown", log.FieldError, err)
		os.Exit(1)
	}

	if *export {
		if err := exportBreakdown(ctx, cfg.SheetsEnabled(), func(ctx context.Context) (sheets.BreakdownExporter, error) {
			return gsheet.New(ctx, gsheet.Config{
				SpreadsheetID:   cfg.GoogleSpreadsheetID,
				AlertsSheet:     cfg.GoogleAlertsSheet,
				BreakdownSheet:  cfg.GoogleBreakdownSheet,
				CredentialsJSON: cfg.GoogleCredentialsJSON,
				CredentialsFile: cfg.GoogleCredentialsFile,
			})
		}, b, logger); err != nil {
			logger.Error("Export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
			os.Exit(1)
		}
	}
	if *workbook != "" {
		if err := exportBreakdown(ctx, true, func(context.Context) (sheets.BreakdownExporter, error) {
			return xlsx.New(*workbook, cfg.GoogleAlertsSheet, cfg.GoogleBreakdownSheet)
		}, b, logger); err != nil {
			logger.Error("Workbook export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
			os.Exit(1)
		}
	}
}

func exportBreakdown(ctx context.Context, enabled bool, open func(context.Context) (sheets.BreakdownExporter, error), b core.Breakdown, logger *log.Logger) error {
	if !enabled {
		return fmt.Errorf("google sheets export requested but GOOGLE_SPREADSHEET_ID is not set")
	}
	exporter, err := open(ctx)
	if err != nil {
		return err
	}
	ref, err := exporter.ExportBreakdown(ctx, b)
	if err != nil {
		return err
	}
	logger.Info("Breakdown exported", log.FieldOperation, log.OpExport, "ref", ref)
	return nil
}

// render writes the breakdown the way the dashboard lists it: one line per
// category, largest first, followed by the total and any over-budget alerts.
func render(w io.Writer, b core.Breakdown) error {
	fmt.Fprintf(w, "%s\n\n", b.Period.Label())
	if b.Empty {
		_, err := fmt.Fprintln(w, "No expenses recorded for this month.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSPENT\tBUDGET\tUSED\tSTATUS")
	for _, row := range b.Rows {
		budget, used := "-", "-"
		if row.Budget != nil {
			budget = spending.FormatAmount(*row.Budget)
		}
		if row.Progress != nil {
			used = spending.FormatPercent(row.Progress.Percentage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Category, spending.FormatAmount(row.Spent), budget, used, spending.StatusLine(row))
	}
	fmt.Fprintf(tw, "Total\t%s\t\t\t\n", spending.FormatAmount(b.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	if lines := spending.AlertLines(b.Alerts); len(lines) > 0 {
		fmt.Fprintln(w, "\nOver budget:")
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
	return nil
}
