package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"renda/internal/core"
	ports "renda/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSummarySheet = "Resumo"
	defaultRowsSheet    = "Transações Válidas"
)

// Client exports verifications to a Google spreadsheet. Each verification
// becomes one row on the summary sheet and one row per valid transaction on
// the listing sheet, all tagged with the verification ID in column A so a
// re-export can replace them in place.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
	rowsSheet     string
}

var _ ports.VerificationExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_SUMMARY_SHEET_NAME, GOOGLE_ROWS_SHEET_NAME.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	summarySheet := strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"))
	if summarySheet == "" {
		summarySheet = defaultSummarySheet
	}
	rowsSheet := strings.TrimSpace(os.Getenv("GOOGLE_ROWS_SHEET_NAME"))
	if rowsSheet == "" {
		rowsSheet = defaultRowsSheet
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summarySheet:  summarySheet,
		rowsSheet:     rowsSheet,
	}, nil
}

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

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ExportVerification(ctx context.Context, summary core.SummaryRecord, rows []core.ExportRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if summary.VerificationID == "" {
		return errors.New("missing verification id")
	}

	// Replace-in-place: clear any rows from a previous export first.
	if err := c.RemoveVerification(ctx, summary.VerificationID); err != nil {
		return fmt.Errorf("clear previous export: %w", err)
	}

	summaryRow := []any{
		summary.VerificationID,
		summary.ClientName,
		summary.CreatedAt.Format("02/01/2006 15:04"),
		fmt.Sprintf("%s a %s", summary.PeriodStart, summary.PeriodEnd),
		summary.TotalIncome.Reais(),
		summary.AverageIncome.Reais(),
	}
	for _, m := range summary.Months {
		summaryRow = append(summaryRow, m.Total.Reais())
	}
	if err := c.appendRows(ctx, c.summarySheet, [][]any{summaryRow}); err != nil {
		return fmt.Errorf("append summary: %w", err)
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			summary.VerificationID,
			r.Date.Format("02/01/2006"),
			r.Description,
			r.Sender,
			r.Bank,
			r.Amount.Reais(),
			r.Month,
		})
	}
	if len(values) > 0 {
		if err := c.appendRows(ctx, c.rowsSheet, values); err != nil {
			return fmt.Errorf("append transactions: %w", err)
		}
	}

	slog.InfoContext(ctx, "Exported verification to spreadsheet",
		"id", summary.VerificationID,
		"client", summary.ClientName,
		"rows", len(values))
	return nil
}

func (c *Client) RemoveVerification(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	for _, sheet := range []string{c.summarySheet, c.rowsSheet} {
		if err := c.deleteRowsWithID(ctx, sheet, id); err != nil {
			return fmt.Errorf("remove from %s: %w", sheet, err)
		}
	}
	return nil
}

func (c *Client) appendRows(ctx context.Context, sheet string, values [][]any) error {
	rng := fmt.Sprintf("%s!A:Z", sheet)
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

// deleteRowsWithID removes every row whose column A equals id. Rows are
// deleted bottom-up so earlier indexes stay valid.
func (c *Client) deleteRowsWithID(ctx context.Context, sheet, id string) error {
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}

	var matches []int64
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			matches = append(matches, int64(i))
		}
	}
	if len(matches) == 0 {
		return nil
	}

	requests := make([]*gsheet.Request, 0, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		requests = append(requests, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: matches[i],
					EndIndex:   matches[i] + 1,
				},
			},
		})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, name string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", name)
}
