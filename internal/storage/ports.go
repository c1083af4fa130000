package storage

import (
	"context"

	"moneymanager/internal/core"
)

// Ports implemented by every storage backend.
type (
	// TransactionRepository persists transactions. Lookups of unknown ids
	// return an error wrapping core.ErrNotFound.
	TransactionRepository interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		// FindTransactions is the single range query; optional filter fields
		// narrow it further.
		FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	}

	AccountRepository interface {
		InsertAccount(ctx context.Context, a core.Account) (core.Account, error)
	}

	// SyncTracker records which transactions have been mirrored to the
	// spreadsheet. Only shared backends implement it.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]string, error)
		MarkSynced(ctx context.Context, id string) error
		MarkSyncError(ctx context.Context, id string) error
	}

	Repository interface {
		TransactionRepository
		AccountRepository
		Ping(ctx context.Context) error
		Close() error
	}
)

// Sync states stored alongside each transaction.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)
