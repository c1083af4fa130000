package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/sheets"
	"moneymanager/internal/storage"
)

// ErrProcessorRunning is returned by Run when the loop is already active.
var ErrProcessorRunning = errors.New("sync processor already running")

// SyncProcessorConfig tunes the pending-row sweep.
type SyncProcessorConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxRetries failed upserts mark a transaction as a sync error.
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor sweeps transactions still marked pending and mirrors them to
// the ledger. It catches anything whose AMQP message was lost or never sent.
type SyncProcessor struct {
	txs     storage.TransactionRepository
	tracker storage.SyncTracker
	ledger  sheets.LedgerWriter
	config  SyncProcessorConfig

	// attempts is only touched from the Run goroutine or a direct ProcessBatch
	// caller, never both.
	attempts map[string]int
	running  atomic.Bool
}

func NewSyncProcessor(
	txs storage.TransactionRepository,
	tracker storage.SyncTracker,
	ledger sheets.LedgerWriter,
	config SyncProcessorConfig,
) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		txs:      txs,
		tracker:  tracker,
		ledger:   ledger,
		config:   config,
		attempts: make(map[string]int),
	}
}

// Run sweeps once immediately and then every PollInterval until ctx ends.
// It always returns a non-nil error: ctx.Err() on shutdown.
func (p *SyncProcessor) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrProcessorRunning
	}
	defer p.running.Store(false)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	for {
		p.ProcessBatch(ctx)
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Sync processor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessBatch mirrors one batch of pending transactions and returns how many
// were synced.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	ids, err := p.tracker.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load pending sync batch", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	slog.DebugContext(ctx, "Processing sync batch", "count", len(ids))

	synced := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return synced
		}
		if err := p.syncOne(ctx, id); err != nil {
			p.handleFailure(ctx, id, err)
			continue
		}
		delete(p.attempts, id)
		synced++
	}
	return synced
}

func (p *SyncProcessor) syncOne(ctx context.Context, id string) error {
	t, err := p.txs.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between listing and loading.
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %s: %w", id, err)
	}

	ref, err := p.ledger.Upsert(ctx, t)
	if err != nil {
		return fmt.Errorf("upsert to ledger: %w", err)
	}
	if err := p.tracker.MarkSynced(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to mark transaction as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Synced transaction to Google Sheets", "id", id, "sheets_ref", ref)
	return nil
}

func (p *SyncProcessor) handleFailure(ctx context.Context, id string, processErr error) {
	p.attempts[id]++
	attempt := p.attempts[id]
	slog.WarnContext(ctx, "Sync processing failed", "id", id, "attempt", attempt, "error", processErr)

	if attempt < p.config.MaxRetries {
		return
	}
	delete(p.attempts, id)
	if err := p.tracker.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark transaction sync error", "id", id, "error", err)
	}
	slog.ErrorContext(ctx, "Sync failed permanently after max retries", "id", id, "attempts", attempt)
}
