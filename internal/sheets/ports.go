package sheets

import (
	"context"

	"moneymanager/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	// LedgerWriter keeps one row per transaction, keyed by transaction ID.
	LedgerWriter interface {
		// Upsert writes t, replacing the existing row for t.ID if present.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Delete removes the row for id. Missing rows are not an error.
		Delete(ctx context.Context, id string) error
	}

	// LedgerReader lists the mirrored rows.
	LedgerReader interface {
		Rows(ctx context.Context) ([]core.Transaction, error)
	}
)
