// Package sheets keeps the expense list in a Google Sheets worksheet, one
// expense per row: ID, Date, Description, Category, Amount. Row 1 is a header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
	ports "expenseview/internal/remote"
)

var _ ports.Source = (*Client)(nil)

// DefaultSheetName is the worksheet used when none is configured.
const DefaultSheetName = "Expenses"

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

// New creates a Sheets client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	credentials, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg, logger,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options, for example a
// custom endpoint and HTTP client.
func NewWithOptions(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(applog.ComponentRemote),
	}, nil
}

func readCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Sheet returns the worksheet name in use.
func (c *Client) Sheet() string { return c.sheet }

// ListExpenses reads every data row in sheet order.
func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rng := fmt.Sprintf("%s!A2:E", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, &core.FetchError{Status: apiStatus(err), Err: fmt.Errorf("read %s: %w", rng, err)}
	}

	out := make([]core.Expense, 0, len(resp.Values))
	for i, row := range resp.Values {
		e, ok := parseRow(row)
		if !ok {
			c.logger.DebugContext(ctx, "Skipping unreadable row", "row", i+2)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// CreateExpense appends a row and returns the stored expense. A non-finite
// amount is written as zero.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	amount := e.Amount
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	created := core.Expense{
		ID:          uuid.NewString(),
		Date:        e.Date,
		Description: e.Description,
		Category:    e.Category,
		Amount:      amount,
	}

	rng := fmt.Sprintf("%s!A:E", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{{created.ID, created.Date, created.Description, created.Category, created.Amount}}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Expense{}, &core.SubmitError{Status: apiStatus(err), Err: fmt.Errorf("append to %s: %w", c.sheet, err)}
	}

	c.logger.InfoContext(ctx, "Expense appended to sheet",
		applog.FieldExpenseID, created.ID,
		applog.FieldExpenseDesc, created.Description,
		"sheet", c.sheet)
	return created, nil
}

func apiStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// parseRow reads ID, Date, Description, Category, Amount. Rows without an ID
// or with an unparseable amount are skipped.
func parseRow(row []any) (core.Expense, bool) {
	cols := make([]string, 5)
	for i := 0; i < len(row) && i < len(cols); i++ {
		cols[i] = strings.TrimSpace(fmt.Sprint(row[i]))
	}
	if cols[0] == "" {
		return core.Expense{}, false
	}
	amount, ok := parseAmount(cols[4])
	if !ok {
		return core.Expense{}, false
	}
	return core.Expense{
		ID:          cols[0],
		Date:        cols[1],
		Description: cols[2],
		Category:    cols[3],
		Amount:      amount,
	}, true
}

// parseAmount accepts a decimal comma as well as a point.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
