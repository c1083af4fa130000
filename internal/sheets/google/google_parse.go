package google

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneymanager/internal/core"

	"golang.org/x/oauth2"
)

// Sheet layout, one transaction per row after the header.
const (
	lastColumn = "I"
	dateLayout = "2006-01-02 15:04:05"
)

func headerRow() []any {
	return []any{"ID", "Date", "Type", "Category", "Division", "Amount", "Description", "From", "To"}
}

func rowValues(t core.Transaction, loc *time.Location) []any {
	date := t.CreatedAt
	if loc != nil {
		date = date.In(loc)
	}
	return []any{
		t.ID,
		date.Format(dateLayout),
		string(t.Type),
		t.Category,
		string(t.Division),
		core.Float(t.Amount),
		t.Description,
		t.FromAccount,
		t.ToAccount,
	}
}

// parseRow converts a sheet row back into a transaction. The header and rows
// with an unknown type or unparsable amount are rejected.
func parseRow(cols []string, loc *time.Location) (core.Transaction, bool) {
	if len(cols) < 6 || cols[0] == "" {
		return core.Transaction{}, false
	}
	typ, err := core.ParseTransactionType(cols[2])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseAmount(cols[5])
	if err != nil {
		return core.Transaction{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	created, err := time.ParseInLocation(dateLayout, cols[1], loc)
	if err != nil {
		return core.Transaction{}, false
	}
	t := core.Transaction{
		ID:              cols[0],
		Type:            typ,
		Amount:          amount,
		Category:        cols[3],
		Division:        core.Division(strings.ToLower(cols[4])),
		Description:     safeGet(cols, 6),
		FromAccount:     safeGet(cols, 7),
		ToAccount:       safeGet(cols, 8),
		CreatedAt:       created,
		TransactionDate: created,
	}
	return t, true
}

// findRow returns the 1-based sheet row holding id, or 0. Row 1 is the header.
func findRow(ids []string, id string) int {
	for i := 1; i < len(ids); i++ {
		if ids[i] == id {
			return i + 1
		}
	}
	return 0
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func parseToken(b []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token has neither access nor refresh token")
	}
	return &tok, nil
}
