package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"moneymanager/internal/core"
	ports "moneymanager/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	// ID column cache. Each entry is the value of column A for that row,
	// header included, so index i is sheet row i+1.
	mu                 sync.Mutex
	cachedIDs          []string
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
	sheetID            *int64
}

var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth, first match wins: GOOGLE_OAUTH_CLIENT_JSON/FILE with
// GOOGLE_OAUTH_TOKEN_JSON/FILE, then GOOGLE_SERVICE_ACCOUNT_JSON/FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Transactions"), APP_TIMEZONE.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	loc := time.Local
	if tz := strings.TrimSpace(os.Getenv("APP_TIMEZONE")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		loc:                loc,
		cacheValidDuration: 2 * time.Minute,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	clientJSON, err := readSecret("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if len(clientJSON) > 0 {
		return newOAuthService(ctx, clientJSON)
	}
	return newServiceAccountService(ctx)
}

func newOAuthService(ctx context.Context, clientJSON []byte) (*gsheet.Service, error) {
	cfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readSecret("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing OAuth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, see cmd/oauth-init)")
	}
	tok, err := parseToken(tokenJSON)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// The pooled client carries the refreshed token through oauth2.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := cfg.Client(ctx, tok)

	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token")
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func newServiceAccountService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := readSecret("GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE")
	if err != nil {
		return nil, err
	}
	if len(credentialsJSON) == 0 {
		if path := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); path != "" {
			credentialsJSON, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read service account file: %w", err)
			}
		}
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing Google credentials (set GOOGLE_OAUTH_CLIENT_* with GOOGLE_OAUTH_TOKEN_*, or GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// readSecret returns the inline value of jsonKey or the contents of the file
// named by fileKey. Both unset yields nil.
func readSecret(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	if path := strings.TrimSpace(os.Getenv(fileKey)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileKey, err)
		}
		return b, nil
	}
	return nil, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Upsert writes t to the row holding its ID, or to the first free row.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction without id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.idColumn(ctx)
	if err != nil {
		return "", err
	}

	if len(ids) == 0 {
		if err := c.writeRow(ctx, 1, headerRow()); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		ids = []string{headerRow()[0].(string)}
	}

	row := findRow(ids, t.ID)
	if row == 0 {
		row = len(ids) + 1
	}
	if err := c.writeRow(ctx, row, rowValues(t, c.loc)); err != nil {
		c.InvalidateRowCache()
		return "", err
	}

	c.mu.Lock()
	if row > len(ids) {
		ids = append(ids, t.ID)
	}
	c.cachedIDs = ids
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row), nil
}

// Delete removes the row holding id. A missing row is not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.InvalidateRowCache()
	ids, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		slog.InfoContext(ctx, "Transaction row not found in sheet, nothing to delete", "id", id)
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row, c.sheetName, err)
	}
	c.InvalidateRowCache()
	return nil
}

// Rows reads every mirrored transaction. Rows that do not parse are skipped.
func (c *Client) Rows(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", quoteSheet(c.sheetName), lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.Transaction
	for _, row := range resp.Values {
		if t, ok := parseRow(toStrings(row), c.loc); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// InvalidateRowCache forces the next write to re-read the ID column.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedIDs = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) idColumn(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		ids := append([]string(nil), c.cachedIDs...)
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", quoteSheet(c.sheetName))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column of %s: %w", c.sheetName, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}

	c.mu.Lock()
	c.cachedIDs = ids
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return append([]string(nil), ids...), nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", quoteSheet(c.sheetName), row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.sheetID != nil {
		id := *c.sheetID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.mu.Lock()
			c.sheetID = &id
			c.mu.Unlock()
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}
