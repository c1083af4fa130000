package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneymanager/internal/core"
	applog "moneymanager/internal/log"
	"moneymanager/internal/report"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// transactionResponse is the wire form of core.Transaction.
type transactionResponse struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Amount          json.Number `json:"amount"`
	Category        string      `json:"category"`
	Division        string      `json:"division,omitempty"`
	Description     string      `json:"description"`
	FromAccount     string      `json:"fromAccount,omitempty"`
	ToAccount       string      `json:"toAccount,omitempty"`
	TransactionDate string      `json:"transactionDate"`
	CreatedAt       string      `json:"createdAt"`
}

type accountResponse struct {
	ID              string      `json:"id"`
	FromAccountID   string      `json:"fromAccountId"`
	ToAccountID     string      `json:"toAccountId"`
	Amount          json.Number `json:"amount"`
	Description     string      `json:"description"`
	TransactionDate *string     `json:"transactionDate"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func amountJSON(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func formatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timestampLayout)
}

func newTransactionResponse(t core.Transaction, loc *time.Location) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          amountJSON(t.Amount),
		Category:        t.Category,
		Division:        string(t.Division),
		Description:     t.Description,
		FromAccount:     t.FromAccount,
		ToAccount:       t.ToAccount,
		TransactionDate: formatTimestamp(t.TransactionDate, loc),
		CreatedAt:       formatTimestamp(t.CreatedAt, loc),
	}
}

// newTransactionList never returns nil so an empty range renders as [].
func newTransactionList(txs []core.Transaction, loc *time.Location) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t, loc))
	}
	return out
}

func newAccountResponse(a core.Account, loc *time.Location) accountResponse {
	resp := accountResponse{
		ID:            a.ID,
		FromAccountID: a.FromAccountID,
		ToAccountID:   a.ToAccountID,
		Amount:        amountJSON(a.Amount),
		Description:   a.Description,
	}
	if !a.TransactionDate.IsZero() {
		s := formatTimestamp(a.TransactionDate, loc)
		resp.TransactionDate = &s
	}
	return resp
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to encode response", applog.FieldError, err)
	}
}

// statusFor maps domain and request errors to a status code and a message
// that is safe to show to clients.
func statusFor(err error) (int, string) {
	var br *badRequestError
	var ve *core.ValidationError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.Error()
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Error()
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "transaction not found"
	case errors.Is(err, core.ErrEditWindowExpired):
		return http.StatusForbidden, "edit window expired: transactions can only be changed within 12 hours of creation"
	case errors.Is(err, core.ErrMissingCategory):
		return http.StatusConflict, "a transaction in this range has no category"
	case errors.Is(err, report.ErrGenerationFailed):
		return http.StatusInternalServerError, "report generation failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError logs server-side failures and writes the mapped JSON error.
func writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	logger := applog.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", applog.FieldOperation, op, applog.FieldError, err)
	} else {
		logger.DebugContext(ctx, "Request rejected", applog.FieldOperation, op, applog.FieldStatusCode, status, applog.FieldError, err)
	}
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}
