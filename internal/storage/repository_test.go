package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneymanager/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "money.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTx(typ core.TransactionType, amount, category string, div core.Division, at time.Time) core.Transaction {
	tx := core.NewTransaction(typ, decimal.RequireFromString(amount), category, div, "note")
	return tx.WithTimestamps(at, at)
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 10, 30, 0, 123000000, time.UTC)

	saved, err := repo.InsertTransaction(ctx, sampleTx(core.Expense, "12.34", "Fuel", core.Office, at))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected id to be assigned")
	}

	got, err := repo.GetTransaction(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Type != core.Expense || got.Category != "Fuel" || got.Division != core.Office || got.Description != "note" {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("amount = %s", got.Amount)
	}
	if !got.CreatedAt.Equal(at) || !got.TransactionDate.Equal(at) {
		t.Fatalf("timestamps = %v / %v", got.CreatedAt, got.TransactionDate)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	tx := sampleTx(core.Income, "1", "Salary", core.Personal, time.Now())
	tx.ID = "missing"
	if _, err := repo.UpdateTransaction(ctx, tx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_UpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	saved, err := repo.InsertTransaction(ctx, sampleTx(core.Expense, "10", "Food", core.Personal, at))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	patched := saved.WithPatch(core.TransactionPatch{
		Amount:   decimal.RequireFromString("15.50"),
		Category: "Fuel",
		Division: core.Office,
	})
	if _, err := repo.UpdateTransaction(ctx, patched); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetTransaction(ctx, saved.ID)
	if got.Category != "Fuel" || got.Division != core.Office || got.Description != "" || !got.Amount.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(at) {
		t.Fatalf("created at changed: %v", got.CreatedAt)
	}

	if err := repo.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected deleted transaction to be gone, got %v", err)
	}
}

func TestSQLiteRepository_FindTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := func(d, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC) }

	fixtures := []core.Transaction{
		sampleTx(core.Income, "1000", "Salary", core.Personal, day(1, 0)),
		sampleTx(core.Expense, "200", "Food", core.Personal, day(2, 12)),
		sampleTx(core.Expense, "50", "Fuel", core.Office, day(3, 23)),
		sampleTx(core.Expense, "70", "Food", core.Office, day(4, 1)),
	}
	for _, tx := range fixtures {
		if _, err := repo.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter core.TransactionFilter
		want   []string
	}{
		{"range only", core.NewDayFilter(start, end, time.UTC), []string{"Salary", "Food", "Fuel"}},
		{"category", withCategory(core.NewDayFilter(start, end.AddDate(0, 0, 1), time.UTC), "Food"), []string{"Food", "Food"}},
		{"division", withDivision(core.NewDayFilter(start, end.AddDate(0, 0, 1), time.UTC), core.Office), []string{"Fuel", "Food"}},
		{"empty window", core.NewDayFilter(start.AddDate(0, 1, 0), end.AddDate(0, 1, 0), time.UTC), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.FindTransactions(ctx, tc.filter)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d results, got %d", len(tc.want), len(got))
			}
			for i, tx := range got {
				if tx.Category != tc.want[i] {
					t.Fatalf("result %d: expected %s, got %s", i, tc.want[i], tx.Category)
				}
			}
		})
	}
}

func TestSQLiteRepository_InsertAccount(t *testing.T) {
	repo := newTestRepo(t)
	acc := core.NewAccount("checking", "savings", decimal.RequireFromString("25"), "", time.Time{})
	saved, err := repo.InsertAccount(context.Background(), acc)
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected account id")
	}
}

func TestSQLiteRepository_SyncTracking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	a, _ := repo.InsertTransaction(ctx, sampleTx(core.Expense, "1", "Food", core.Personal, time.Now()))
	b, _ := repo.InsertTransaction(ctx, sampleTx(core.Expense, "2", "Food", core.Personal, time.Now().Add(time.Second)))

	ids, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Fatalf("unexpected pending ids: %v", ids)
	}

	if err := repo.MarkSynced(ctx, a.ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, b.ID); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	ids, _ = repo.PendingSync(ctx, 10)
	if len(ids) != 0 {
		t.Fatalf("expected no pending ids, got %v", ids)
	}
	if err := repo.MarkSynced(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func withCategory(f core.TransactionFilter, c string) core.TransactionFilter {
	f.Category = c
	return f
}

func withDivision(f core.TransactionFilter, d core.Division) core.TransactionFilter {
	f.Division = d
	return f
}

func TestMigrateSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for i := 0; i < 2; i++ {
		v, err := MigrateSchema(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if v != 1 {
			t.Fatalf("run %d: version %d, want 1", i, v)
		}
	}
}
