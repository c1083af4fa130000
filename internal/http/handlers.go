package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"moneymanager/internal/core"
	applog "moneymanager/internal/log"
	"moneymanager/internal/report"
)

const readinessTimeout = 5 * time.Second

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}

	saved, err := s.svc.AddTransaction(ctx, draft)
	if err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithTransaction(saved.ID, string(saved.Type), saved.Amount, saved.Category)
	applog.FromContext(ctx).InfoContext(ctx, "Transaction created", fields.ToSlice()...)

	w.Header().Set("Location", "/api/transactions/"+saved.ID)
	writeJSON(ctx, w, http.StatusCreated, newTransactionResponse(saved, s.loc))
}

func (s *Server) handleAddTransferAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}
	draft, err := req.toAccount(s.loc)
	if err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}

	saved, err := s.svc.AddTransferAccount(ctx, draft)
	if err != nil {
		writeError(ctx, w, applog.OpCreate, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Transfer account recorded",
		"account_id", saved.ID,
		applog.FieldAmount, saved.Amount.String())
	writeJSON(ctx, w, http.StatusCreated, newAccountResponse(saved, s.loc))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.svc.GetTransaction(ctx, r.PathValue("id"))
	if err != nil {
		writeError(ctx, w, applog.OpRead, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, newTransactionResponse(t, s.loc))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, applog.OpUpdate, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(ctx, w, applog.OpUpdate, err)
		return
	}

	updated, err := s.svc.UpdateTransaction(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(ctx, w, applog.OpUpdate, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Transaction updated",
		applog.FieldTransactionID, updated.ID,
		applog.FieldAmount, updated.Amount.String())
	writeJSON(ctx, w, http.StatusOK, newTransactionResponse(updated, s.loc))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := s.svc.DeleteTransaction(ctx, id); err != nil {
		writeError(ctx, w, applog.OpDelete, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	writeJSON(ctx, w, http.StatusOK, messageResponse{Message: "Transaction deleted successfully"})
}

// handleRange lists transactions in the range. category and division, when
// given, narrow the same query.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dr, filter, err := parseRangeFilter(r.URL.Query(), s.loc)
	if err != nil {
		writeError(ctx, w, applog.OpList, err)
		return
	}

	var txs []core.Transaction
	if filter.Category != "" || filter.Division != "" {
		txs, err = s.svc.FindTransactions(ctx, filter)
	} else {
		txs, err = s.svc.GetTransactionsBetween(ctx, dr.Start, dr.End)
	}
	if err != nil {
		writeError(ctx, w, applog.OpList, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, newTransactionList(txs, s.loc))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dr, err := parseDateRange(r.URL.Query(), s.loc)
	if err != nil {
		writeError(ctx, w, applog.OpSummary, err)
		return
	}
	summary, err := s.svc.GetSummary(ctx, dr.Start, dr.End)
	if err != nil {
		writeError(ctx, w, applog.OpSummary, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dr, err := parseDateRange(r.URL.Query(), s.loc)
	if err != nil {
		writeError(ctx, w, applog.OpSummary, err)
		return
	}
	totals, err := s.svc.CategorySummary(ctx, dr.Start, dr.End)
	if err != nil {
		writeError(ctx, w, applog.OpSummary, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, totals)
}

func (s *Server) handleExcelReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dr, err := parseDateRange(r.URL.Query(), s.loc)
	if err != nil {
		writeError(ctx, w, applog.OpReport, err)
		return
	}
	data, err := s.svc.GenerateExcelReport(ctx, dr.Start, dr.End)
	if err != nil {
		writeError(ctx, w, applog.OpReport, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "Report generated",
		applog.FieldStart, dr.Start.Format(dateLayout),
		applog.FieldEnd, dr.End.Format(dateLayout),
		"bytes", len(data))

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"storage": "ok"}
	if err := s.svc.Ping(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(r.Context(), w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
