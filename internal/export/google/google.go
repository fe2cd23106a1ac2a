package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"scrapops/internal/core"
	ports "scrapops/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	receiptsSheet     string
	summarySheet      string
}

// Ensure interface conformance
var (
	_ ports.RecordExporter  = (*Client)(nil)
	_ ports.SummaryExporter = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
// Optional sheet names: GOOGLE_TRANSACTIONS_SHEET_NAME (default "Transactions"),
// GOOGLE_RECEIPTS_SHEET_NAME (default "Receipts"),
// GOOGLE_SUMMARY_SHEET_NAME (default "Summary").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	transactions := strings.TrimSpace(os.Getenv("GOOGLE_TRANSACTIONS_SHEET_NAME"))
	if transactions == "" {
		transactions = "Transactions"
	}
	receipts := strings.TrimSpace(os.Getenv("GOOGLE_RECEIPTS_SHEET_NAME"))
	if receipts == "" {
		receipts = "Receipts"
	}
	summary := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summary == "" {
		summary = "Summary"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:               svc,
		spreadsheetID:     spreadsheetID,
		transactionsSheet: transactions,
		receiptsSheet:     receipts,
		summarySheet:      summary,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) AppendTransaction(ctx context.Context, t core.CashFlowTransaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		t.ID,
		t.AccountID,
		t.Date.Format("2006-01-02"),
		string(t.Type),
		t.Debit.Float(),
		t.Credit.Float(),
		t.Balance.Float(),
		t.TransferRef,
		t.Reference.PaidTo,
		t.Reference.ReceivedFrom,
		t.Reference.DocumentNo,
		t.Reference.Description,
	}
	return c.appendRow(ctx, c.transactionsSheet, row)
}

func (c *Client) AppendReceipt(ctx context.Context, r core.Receipt) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	// One row per line so the sheet stays filterable by material.
	rows := make([][]any, 0, len(r.Lines))
	for _, ln := range r.Lines {
		rows = append(rows, []any{
			r.Number,
			string(r.Type),
			r.Date.Format("2006-01-02"),
			r.PaymentMethod,
			ln.Description,
			ln.Quantity,
			ln.UnitPrice.Float(),
			ln.Amount.Float(),
			float64(ln.VATRateBps) / 10000.0,
			ln.VATAmount.Float(),
			r.Total.Float(),
		})
	}
	return c.appendRows(ctx, c.receiptsSheet, rows)
}

func (c *Client) WriteSummary(ctx context.Context, s core.FinancialSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		s.GeneratedAt.Format("2006-01-02 15:04:05"),
		s.TotalBankBalance.Float(),
		s.CashBalance.Float(),
		s.TotalPayable.Float(),
		s.TotalReceivable.Float(),
		s.InventoryValue.Float(),
		s.Difference.Float(),
		s.LowStockCount,
	}
	return c.appendRow(ctx, c.summarySheet, row)
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []any) error {
	return c.appendRows(ctx, sheet, [][]any{row})
}

func (c *Client) appendRows(ctx context.Context, sheet string, rows [][]any) error {
	rng := fmt.Sprintf("%s!A:A", sheet)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	return nil
}
