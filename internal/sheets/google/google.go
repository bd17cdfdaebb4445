package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/sheets"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string // base name; the row's year is prefixed, e.g. "2024 Transactions"
	ServiceAccountJSON string
	ServiceAccountFile string

	// OAuth user credentials take precedence over the service account when a
	// client is set.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// Client appends transaction rows to a Google Sheets spreadsheet, one tab per year.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	mu      sync.Mutex
	headers map[string]bool // tabs known to carry the header row

	// Transactions known to be in the sheet, keyed by month and id. Rows are
	// never removed by the mirror, so a hit saves a full column read.
	mirrored *cache.LRU[string, struct{}]
}

const (
	mirroredCacheSize = 4096
	mirroredCacheTTL  = time.Hour
)

var _ sheets.RowWriter = (*Client)(nil)

func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Transactions"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
		logger:        logger,
		headers:       make(map[string]bool),
		mirrored:      cache.NewLRU[string, struct{}](mirroredCacheSize, mirroredCacheTTL),
	}, nil
}

// newSheetsService builds the Sheets service from an OAuth client and token when
// configured, otherwise from service account credentials: inline JSON first, then
// a file, then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	if cfg.usesOAuth() {
		conf, err := OAuthConfig(cfg)
		if err != nil {
			return nil, err
		}
		tok, err := loadToken(cfg)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Creating Google Sheets service with OAuth user token",
			"scope", gsheet.SpreadsheetsScope)
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(conf.TokenSource(ctx, tok)))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	credentialsJSON, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Creating Google Sheets service with Service Account",
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

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendRow appends row to the tab of the row's year, writing the header first
// when the tab is empty.
func (c *Client) AppendRow(ctx context.Context, row sheets.TransactionRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet, err := c.sheetFor(row.MonthKey)
	if err != nil {
		return "", err
	}
	if err := c.ensureHeader(ctx, sheet); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:H", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row to %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.remember(row.MonthKey, row.TransactionID)
	c.logger.DebugContext(ctx, "Appended transaction row",
		log.FieldTxID, row.TransactionID,
		"range", ref)
	return ref, nil
}

// HasTransaction scans the id column of the month's tab.
func (c *Client) HasTransaction(ctx context.Context, month core.MonthKey, id int64) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	sheet, err := c.sheetFor(month)
	if err != nil {
		return false, err
	}
	if c.known(month, id) {
		return true, nil
	}
	rng := sheet + "!A:B"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	found := containsTransaction(resp.Values, month, id)
	if found {
		c.remember(month, id)
	}
	return found, nil
}

func mirroredKey(month core.MonthKey, id int64) string {
	return string(month) + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) known(month core.MonthKey, id int64) bool {
	if c.mirrored == nil {
		return false
	}
	_, ok := c.mirrored.Get(mirroredKey(month, id))
	return ok
}

func (c *Client) remember(month core.MonthKey, id int64) {
	if c.mirrored != nil {
		c.mirrored.Set(mirroredKey(month, id), struct{}{})
	}
}

func (c *Client) ensureHeader(ctx context.Context, sheet string) error {
	c.mu.Lock()
	known := c.headers[sheet]
	c.mu.Unlock()
	if known {
		return nil
	}

	rng := sheet + "!A1:H1"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{sheets.Header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header to %s: %w", sheet, err)
		}
	}

	c.mu.Lock()
	c.headers[sheet] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) sheetFor(month core.MonthKey) (string, error) {
	m, err := core.ParseMonthKey(string(month))
	if err != nil {
		return "", err
	}
	return yearPrefixedName(c.sheetBase, m.Year()), nil
}

// containsTransaction looks for a row whose id and month columns match.
func containsTransaction(values [][]any, month core.MonthKey, id int64) bool {
	want := strconv.FormatInt(id, 10)
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 2 {
			continue
		}
		if cols[0] == want && cols[1] == string(month) {
			return true
		}
	}
	return false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
