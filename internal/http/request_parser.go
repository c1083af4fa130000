// Package http exposes the transaction service as a JSON API.
//
// This file turns query strings and request bodies into domain values.
// Anything that fails here is the caller's fault and maps to 400, except
// domain validation, which the service reports and maps to 422.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// badRequestError marks malformed input: bad JSON, missing or unparsable
// query parameters.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// dateRange holds the whole-day bounds requested by start and end.
type dateRange struct {
	Start time.Time
	End   time.Time
}

// parseDateRange reads start and end (YYYY-MM-DD) in loc.
func parseDateRange(query url.Values, loc *time.Location) (dateRange, error) {
	start, err := parseDateParam(query, "start", loc)
	if err != nil {
		return dateRange{}, err
	}
	end, err := parseDateParam(query, "end", loc)
	if err != nil {
		return dateRange{}, err
	}
	if end.Before(start) {
		return dateRange{}, badRequest("end date %s is before start date %s", end.Format(dateLayout), start.Format(dateLayout))
	}
	return dateRange{Start: start, End: end}, nil
}

func parseDateParam(query url.Values, name string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return time.Time{}, badRequest("missing %s date", name)
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, badRequest("invalid %s date %q: expected YYYY-MM-DD", name, v)
	}
	return t, nil
}

// parseRangeFilter reads the date range plus the optional category and
// division used by /range.
func parseRangeFilter(query url.Values, loc *time.Location) (dateRange, core.TransactionFilter, error) {
	dr, err := parseDateRange(query, loc)
	if err != nil {
		return dateRange{}, core.TransactionFilter{}, err
	}
	f := core.NewDayFilter(dr.Start, dr.End, loc)
	f.Category = sanitizeInput(query.Get("category"))
	if v := strings.TrimSpace(query.Get("division")); v != "" {
		d, err := core.ParseDivision(v)
		if err != nil {
			return dateRange{}, core.TransactionFilter{}, badRequest("invalid division %q", v)
		}
		f.Division = d
	}
	return dr, f, nil
}

// decodeJSON reads exactly one JSON value from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body too large")
		}
		return badRequest("cannot read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

// amountField accepts a JSON number or a numeric string.
type amountField struct {
	raw string
	set bool
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	a.set = true
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &a.raw)
	}
	a.raw = string(b)
	return nil
}

// transactionRequest is the body of POST /api/transactions. Client supplied
// id and timestamps have no field here and are dropped by the decoder.
type transactionRequest struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Division    string      `json:"division"`
	Description string      `json:"description"`
	FromAccount string      `json:"fromAccount"`
	ToAccount   string      `json:"toAccount"`
}

func (req transactionRequest) toDraft() (core.Transaction, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	division, err := parseOptionalDivision(req.Division)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.NewTransaction(typ, amount, sanitizeInput(req.Category), division, sanitizeInput(req.Description))
	t.FromAccount = sanitizeInput(req.FromAccount)
	t.ToAccount = sanitizeInput(req.ToAccount)
	return t, nil
}

// patchRequest is the body of PUT /api/transactions/{id}. Fields outside the
// mutable set are ignored.
type patchRequest struct {
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Division    string      `json:"division"`
	Description string      `json:"description"`
}

func (req patchRequest) toPatch() (core.TransactionPatch, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.TransactionPatch{}, err
	}
	division, err := parseOptionalDivision(req.Division)
	if err != nil {
		return core.TransactionPatch{}, err
	}
	return core.TransactionPatch{
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Division:    division,
		Description: sanitizeInput(req.Description),
	}, nil
}

// accountRequest is the body of POST /api/transactions/transferAccounts.
type accountRequest struct {
	FromAccountID   string      `json:"fromAccountId"`
	ToAccountID     string      `json:"toAccountId"`
	Amount          amountField `json:"amount"`
	Description     string      `json:"description"`
	TransactionDate string      `json:"transactionDate"`
}

func (req accountRequest) toAccount(loc *time.Location) (core.Account, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Account{}, err
	}
	var date time.Time
	if v := strings.TrimSpace(req.TransactionDate); v != "" {
		if date, err = parseTimestamp(v, loc); err != nil {
			return core.Account{}, err
		}
	}
	return core.NewAccount(sanitizeInput(req.FromAccountID), sanitizeInput(req.ToAccountID), amount, sanitizeInput(req.Description), date), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	dateLayout,
}

// parseTimestamp accepts RFC 3339, a zone-less local date-time or a plain
// date. Zone-less values are read in loc.
func parseTimestamp(v string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, badRequest("invalid transactionDate %q", v)
}

func parseAmount(a amountField) (decimal.Decimal, error) {
	if !a.set {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return core.ParseAmount(a.raw)
}

func parseOptionalDivision(v string) (core.Division, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil
	}
	return core.ParseDivision(v)
}

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
