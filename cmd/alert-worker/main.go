package main

import (
	"errors"
	"os"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cli"
	"spendtrack/internal/config"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/sheets"
	gsheet "spendtrack/internal/sheets/google"
	sheetsmem "spendtrack/internal/sheets/memory"
	"spendtrack/internal/sheets/xlsx"
	"spendtrack/internal/worker"
)

// checkBackend refuses stores the worker cannot share with the server.
// The memory store lives inside one process, so a worker opening its own
// copy would export seeded sample data instead of the user's spending.
func checkBackend(cfg *config.Config) error {
	if cfg.DataBackend == "memory" {
		return errors.New("alert worker needs a shared data backend (sqlite or postgres), not memory")
	}
	return nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the alert worker", "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if err := checkBackend(cfg); err != nil {
		logger.Error("Unsupported data backend for the alert worker", log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var exporter sheets.Exporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			AlertsSheet:     cfg.GoogleAlertsSheet,
			BreakdownSheet:  cfg.GoogleBreakdownSheet,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Exporting alerts to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else if cfg.ExportXLSXPath != "" {
		workbook, err := xlsx.New(cfg.ExportXLSXPath, cfg.GoogleAlertsSheet, cfg.GoogleBreakdownSheet)
		if err != nil {
			logger.Error("Failed to initialize workbook export", log.FieldError, err)
			os.Exit(1)
		}
		exporter = workbook
		logger.Info("Exporting alerts to a local workbook", "path", cfg.ExportXLSXPath)
	} else {
		mem := sheetsmem.New()
		exporter = mem
		defer func() {
			_, _ = mem.WriteTo(os.Stdout)
		}()
		logger.Info("No export target configured, alerts are kept in memory")
	}

	// The worker reads breakdowns from the same store the server writes to.
	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	budgets := services.NewBudgetService(backend.Store, services.Options{Logger: logger})

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewAlertWorker(exporter, budgets, logger)
	logger.Info("Starting alert worker", log.FieldOperation, log.OpStartup, "queue", cfg.AMQPQueue)
	if err := w.Run(ctx, client); err != nil {
		logger.Error("Alert worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Alert worker stopped", log.FieldOperation, log.OpShutdown)
}
