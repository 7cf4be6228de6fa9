// Package google appends budget alerts and breakdowns to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

var _ sheets.Exporter = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	AlertsSheet     string
	BreakdownSheet  string // prefixed with the breakdown's year, e.g. "2025 Breakdown"
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	alertsSheet    string
	breakdownSheet string
	now            func() time.Time

	mu         sync.Mutex
	headerDone map[string]bool
}

// New builds a client authenticated with the configured service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg)
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	alerts := strings.TrimSpace(cfg.AlertsSheet)
	if alerts == "" {
		alerts = "Alerts"
	}
	breakdown := strings.TrimSpace(cfg.BreakdownSheet)
	if breakdown == "" {
		breakdown = "Breakdown"
	}
	return &Client{
		svc:            svc,
		spreadsheetID:  cfg.SpreadsheetID,
		alertsSheet:    alerts,
		breakdownSheet: breakdown,
		now:            time.Now,
		headerDone:     make(map[string]bool),
	}, nil
}

// newSheetsService prefers inline JSON credentials over a credentials file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"component", "sheets",
		"credentials_size", len(credentialsJSON))

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// ExportAlert implements sheets.AlertExporter
func (c *Client) ExportAlert(ctx context.Context, a core.BudgetAlert) (string, error) {
	if a.UserID == "" || a.Category == "" {
		return "", errors.New("alert needs a user and a category")
	}
	if err := c.ensureHeader(ctx, c.alertsSheet, sheets.AlertHeader); err != nil {
		return "", err
	}
	return c.append(ctx, c.alertsSheet, [][]any{sheets.AlertRow(a, c.now())})
}

// ExportBreakdown implements sheets.BreakdownExporter
func (c *Client) ExportBreakdown(ctx context.Context, b core.Breakdown) (string, error) {
	if err := b.Period.Validate(); err != nil {
		return "", err
	}
	sheet := sheets.YearPrefixedName(c.breakdownSheet, b.Period.Year)
	if err := c.ensureHeader(ctx, sheet, sheets.BreakdownHeader); err != nil {
		return "", err
	}
	return c.append(ctx, sheet, sheets.BreakdownRows(b))
}

func (c *Client) append(ctx context.Context, sheet string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:H", sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Rows appended to sheet",
		"component", "sheets",
		"sheet", sheet,
		"rows", len(rows),
		"ref", ref)
	return ref, nil
}

// ensureHeader writes header into row 1 when the sheet is empty. It checks
// each sheet once per client.
func (c *Client) ensureHeader(ctx context.Context, sheet string, header []any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	done := c.headerDone[sheet]
	c.mu.Unlock()
	if done {
		return nil
	}

	rng := fmt.Sprintf("%s!A1:H1", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
	}

	c.mu.Lock()
	c.headerDone[sheet] = true
	c.mu.Unlock()
	return nil
}
