package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/sheets"
	"moneymanager/internal/storage"
)

// SyncWorker mirrors transactions from storage into the spreadsheet ledger.
type SyncWorker struct {
	txs       storage.TransactionRepository
	tracker   storage.SyncTracker // nil when the backend does not track sync state
	ledger    sheets.LedgerWriter
	batchSize int
}

func NewSyncWorker(txs storage.TransactionRepository, tracker storage.SyncTracker, ledger sheets.LedgerWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		txs:       txs,
		tracker:   tracker,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches an AMQP message by operation. A returned error
// requeues the delivery.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Operation {
	case amqp.OperationDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return w.HandleSyncMessage(ctx, msg)
	}
}

// HandleSyncMessage loads the current transaction and writes it to the ledger.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "timestamp", msg.Timestamp)

	t, err := w.txs.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before we got here; the delete message will follow or has
		// already been handled.
		slog.WarnContext(ctx, "Transaction no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToSheets(ctx, t); err != nil {
		return fmt.Errorf("sync transaction to sheets: %w", err)
	}
	return nil
}

func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if err := w.ledger.Delete(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete transaction from Google Sheets",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete transaction from sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully deleted transaction from Google Sheets", "id", msg.ID)
	return nil
}

// StartupSyncCheck mirrors transactions left pending while the worker was
// down. Backends without sync tracking are skipped.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.tracker == nil {
		slog.InfoContext(ctx, "Storage backend does not track sync state, skipping startup check")
		return nil
	}

	ids, err := w.tracker.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...", "count", len(ids))

	successCount, errorCount := 0, 0
	for _, id := range ids {
		t, err := w.txs.GetTransaction(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync", "id", id, "error", err)
			errorCount++
			continue
		}
		if err := w.syncToSheets(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup", "id", id, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(ids),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncToSheets(ctx context.Context, t core.Transaction) error {
	ref, err := w.ledger.Upsert(ctx, t)
	if err != nil {
		return fmt.Errorf("upsert to sheets: %w", err)
	}

	if w.tracker != nil {
		if err := w.tracker.MarkSynced(ctx, t.ID); err != nil {
			// The row is written; only the bookkeeping failed.
			slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", t.ID,
		"sheets_ref", ref,
		"type", t.Type,
		"amount", t.Amount.String())
	return nil
}
