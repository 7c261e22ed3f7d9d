package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Ezzerof/expense-tracker/internal/core"
	ports "github.com/Ezzerof/expense-tracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports month ledgers to a Google Spreadsheet. Each exported day is
// one row: [month tag, date, weekday, income, expenses, savings]. The tag in
// column A identifies the user and month so a re-export overwrites the same
// block instead of appending duplicates.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.LedgerWriter = (*Client)(nil)

// Config carries the settings needed to reach the spreadsheet. Exactly one
// of CredentialsJSON or CredentialsFile must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// monthTag is the column-A marker for one user's month block.
func monthTag(userID int64, year, month int) string {
	return fmt.Sprintf("u%d:%04d-%02d", userID, year, month)
}

// ledgerRows builds one sheet row per day of the projection.
func ledgerRows(userID int64, ledger core.MonthLedger) [][]any {
	tag := monthTag(userID, ledger.Year, ledger.Month)
	rows := make([][]any, 0, len(ledger.Days))
	for _, d := range ledger.Days {
		rows = append(rows, []any{
			tag,
			d.Date.ISO(),
			d.Weekday,
			d.Income.String(),
			d.Expenses.String(),
			d.Savings.String(),
		})
	}
	return rows
}

// findTagRow returns the 1-based row of the first cell in colA equal to tag,
// or 0 when the tag does not appear.
func findTagRow(colA [][]any, tag string) int {
	for i, row := range colA {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == tag {
			return i + 1
		}
	}
	return 0
}

func (c *Client) WriteMonth(ctx context.Context, userID int64, ledger core.MonthLedger) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rows := ledgerRows(userID, ledger)
	if len(rows) == 0 {
		return fmt.Errorf("empty ledger for %04d-%02d", ledger.Year, ledger.Month)
	}

	// Locate the month's existing block, or the next free row. A month's
	// block length never changes, so overwriting in place is safe.
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}

	tag := monthTag(userID, ledger.Year, ledger.Month)
	startRow := findTagRow(resp.Values, tag)
	replaced := startRow != 0
	if !replaced {
		startRow = len(resp.Values) + 1
	}

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.sheetName, startRow, startRow+len(rows)-1)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Exported month ledger",
		"user_id", userID,
		"year", ledger.Year,
		"month", ledger.Month,
		"rows", len(rows),
		"replaced", replaced)
	return nil
}
