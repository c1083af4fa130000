package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/sheets/memory"
	"moneymanager/internal/storage"
	storemem "moneymanager/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type fakeTracker struct {
	pending []string
	synced  []string
}

func (f *fakeTracker) PendingSync(_ context.Context, limit int) ([]string, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeTracker) MarkSynced(_ context.Context, id string) error {
	f.synced = append(f.synced, id)
	return nil
}

func (f *fakeTracker) MarkSyncError(context.Context, string) error { return nil }

var _ storage.SyncTracker = (*fakeTracker)(nil)

type brokenLedger struct{}

func (brokenLedger) Upsert(context.Context, core.Transaction) (string, error) {
	return "", errors.New("rate limited")
}

func (brokenLedger) Delete(context.Context, string) error { return errors.New("rate limited") }

func seed(t *testing.T, repo *storemem.Store, category string) core.Transaction {
	t.Helper()
	now := time.Now()
	tx := core.NewTransaction(core.Expense, decimal.NewFromInt(10), category, core.Personal, "")
	saved, err := repo.InsertTransaction(context.Background(), tx.WithTimestamps(now, now))
	if err != nil {
		t.Fatal(err)
	}
	return saved
}

func TestHandleMessage_SyncThenDelete(t *testing.T) {
	ctx := context.Background()
	repo := storemem.New()
	ledger := memory.New()
	tracker := &fakeTracker{}
	w := NewSyncWorker(repo, tracker, ledger, 10)

	tx := seed(t, repo, "Food")

	if err := w.HandleMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID)); err != nil {
		t.Fatalf("sync: %v", err)
	}
	rows, _ := ledger.Rows(ctx)
	if len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if len(tracker.synced) != 1 {
		t.Fatalf("expected transaction marked synced, got %v", tracker.synced)
	}

	// A second sync after an update replaces the row.
	tx.Category = "Fuel"
	if _, err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID)); err != nil {
		t.Fatalf("resync: %v", err)
	}
	rows, _ = ledger.Rows(ctx)
	if len(rows) != 1 || rows[0].Category != "Fuel" {
		t.Fatalf("row not replaced: %+v", rows)
	}

	if err := w.HandleMessage(ctx, amqp.NewTransactionDeleteMessage(tx.ID)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ = ledger.Rows(ctx)
	if len(rows) != 0 {
		t.Fatalf("row not deleted: %+v", rows)
	}
}

func TestHandleSyncMessage_MissingTransaction(t *testing.T) {
	w := NewSyncWorker(storemem.New(), nil, memory.New(), 10)
	if err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage("gone")); err != nil {
		t.Fatalf("missing transaction should be skipped, got %v", err)
	}
}

func TestHandleMessage_LedgerFailureRequeues(t *testing.T) {
	repo := storemem.New()
	tx := seed(t, repo, "Food")
	w := NewSyncWorker(repo, nil, brokenLedger{}, 10)

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID)); err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	if err := w.HandleMessage(context.Background(), amqp.NewTransactionDeleteMessage(tx.ID)); err == nil {
		t.Fatal("expected delete error")
	}
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	repo := storemem.New()
	ledger := memory.New()

	a := seed(t, repo, "Food")
	b := seed(t, repo, "Fuel")
	tracker := &fakeTracker{pending: []string{a.ID, "vanished", b.ID}}

	w := NewSyncWorker(repo, tracker, ledger, 1)
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	rows, _ := ledger.Rows(ctx)
	if len(rows) != 2 {
		t.Fatalf("expected 2 mirrored rows, got %+v", rows)
	}
	if len(tracker.synced) != 2 {
		t.Fatalf("expected 2 synced marks, got %v", tracker.synced)
	}

	if err := NewSyncWorker(repo, nil, ledger, 0).StartupSyncCheck(ctx); err != nil {
		t.Fatalf("no tracker should be a no-op: %v", err)
	}
}
