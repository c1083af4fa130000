//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"moneymanager/internal/core"

	"github.com/shopspring/decimal"
)

// Integration tests require real Google Sheets credentials.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LedgerFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	id := "it-" + time.Now().Format("20060102150405")
	tx := core.NewTransaction(core.Expense, decimal.RequireFromString("12.34"), "Food", core.Personal, "Integration Test")
	tx.ID = id
	tx = tx.WithTimestamps(time.Now(), time.Now())

	ref, err := client.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	t.Logf("Wrote row %s", ref)

	tx.Category = "Fuel"
	ref2, err := client.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("Failed to update row: %v", err)
	}
	if ref2 != ref {
		t.Errorf("update should reuse the row: %s vs %s", ref, ref2)
	}

	rows, err := client.Rows(ctx)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.ID == id {
			found = r.Category == "Fuel"
		}
	}
	if !found {
		t.Errorf("updated row %s not found", id)
	}

	if err := client.Delete(ctx, id); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
}
