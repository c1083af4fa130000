package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/sheets/memory"
	"moneymanager/internal/storage"
	storemem "moneymanager/internal/storage/memory"
)

type fakeTracker struct {
	pending []string
	synced  []string
	errored []string
}

func (f *fakeTracker) PendingSync(_ context.Context, limit int) ([]string, error) {
	if len(f.pending) < limit {
		return append([]string(nil), f.pending...), nil
	}
	return append([]string(nil), f.pending[:limit]...), nil
}

func (f *fakeTracker) MarkSynced(_ context.Context, id string) error {
	f.synced = append(f.synced, id)
	f.remove(id)
	return nil
}

func (f *fakeTracker) MarkSyncError(_ context.Context, id string) error {
	f.errored = append(f.errored, id)
	f.remove(id)
	return nil
}

func (f *fakeTracker) remove(id string) {
	for i, v := range f.pending {
		if v == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

type failingLedger struct{}

func (failingLedger) Upsert(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingLedger) Delete(context.Context, string) error { return nil }

var _ storage.SyncTracker = (*fakeTracker)(nil)

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
}

func TestSyncProcessor_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	repo := storemem.New()
	ledger := memory.New()

	saved, err := repo.InsertTransaction(ctx, draft(core.Expense, "10", "Food"))
	if err != nil {
		t.Fatal(err)
	}
	tracker := &fakeTracker{pending: []string{saved.ID, "deleted-meanwhile"}}

	p := NewSyncProcessor(repo, tracker, ledger, DefaultSyncProcessorConfig())
	if n := p.ProcessBatch(ctx); n != 2 {
		t.Fatalf("expected 2 handled items, got %d", n)
	}

	rows, _ := ledger.Rows(ctx)
	if len(rows) != 1 || rows[0].ID != saved.ID {
		t.Fatalf("unexpected ledger rows: %+v", rows)
	}
	if len(tracker.synced) != 1 || tracker.synced[0] != saved.ID {
		t.Fatalf("expected %s marked synced, got %v", saved.ID, tracker.synced)
	}
}

func TestSyncProcessor_MarksErrorAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	repo := storemem.New()
	saved, _ := repo.InsertTransaction(ctx, draft(core.Expense, "10", "Food"))
	tracker := &fakeTracker{pending: []string{saved.ID}}

	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 2
	p := NewSyncProcessor(repo, tracker, failingLedger{}, config)

	p.ProcessBatch(ctx)
	if len(tracker.errored) != 0 {
		t.Fatalf("should not give up after one attempt: %v", tracker.errored)
	}
	p.ProcessBatch(ctx)
	if len(tracker.errored) != 1 || tracker.errored[0] != saved.ID {
		t.Fatalf("expected sync error after max retries, got %v", tracker.errored)
	}
}

func TestSyncProcessor_Run(t *testing.T) {
	ctx := context.Background()
	repo := storemem.New()
	ledger := memory.New()
	saved, _ := repo.InsertTransaction(ctx, draft(core.Income, "50", "Salary"))

	config := DefaultSyncProcessorConfig()
	config.PollInterval = time.Hour
	p := NewSyncProcessor(repo, &fakeTracker{pending: []string{saved.ID}}, ledger, config)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rows, _ := ledger.Rows(ctx)
		if len(rows) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first sweep did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Run(runCtx); !errors.Is(err, ErrProcessorRunning) {
		t.Fatalf("second Run = %v, want ErrProcessorRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
