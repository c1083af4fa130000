package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type fakePublisher struct {
	mu      sync.Mutex
	synced  []string
	deleted []string
	err     error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.synced = append(p.synced, id)
	return p.err
}

func (p *fakePublisher) PublishTransactionDelete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return p.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newService(t *testing.T, pub EventPublisher) (*TransactionService, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)}
	return NewTransactionService(memory.New(), pub, WithLocation(time.UTC), WithClock(c.now)), c
}

func draft(typ core.TransactionType, amount, category string) core.Transaction {
	return core.NewTransaction(typ, decimal.RequireFromString(amount), category, core.Personal, "")
}

func TestAddTransaction_StampsTimestamps(t *testing.T) {
	pub := &fakePublisher{}
	svc, c := newService(t, pub)
	ctx := context.Background()

	d := draft(core.Expense, "12.50", "Food")
	d = d.WithTimestamps(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))

	saved, err := svc.AddTransaction(ctx, d)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected id")
	}
	if !saved.CreatedAt.Equal(c.t) || !saved.TransactionDate.Equal(c.t) {
		t.Fatalf("client timestamps not replaced: %v / %v", saved.CreatedAt, saved.TransactionDate)
	}

	got, err := svc.GetTransaction(ctx, saved.ID)
	if err != nil || got.Category != "Food" || !got.Amount.Equal(d.Amount) {
		t.Fatalf("round trip failed: %+v err=%v", got, err)
	}
	if len(pub.synced) != 1 || pub.synced[0] != saved.ID {
		t.Fatalf("expected one sync message, got %v", pub.synced)
	}
}

func TestAddTransaction_Validation(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		tx   core.Transaction
	}{
		{"zero amount", core.NewTransaction(core.Expense, decimal.Zero, "Food", core.Personal, "")},
		{"blank category", draft(core.Income, "10", "  ")},
		{"unknown type", draft("bonus", "10", "Food")},
		{"missing division", core.NewTransaction(core.Expense, decimal.NewFromInt(1), "Food", "", "")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddTransaction(ctx, tc.tx); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAddTransaction_PublishFailureDoesNotFail(t *testing.T) {
	svc, _ := newService(t, &fakePublisher{err: errors.New("broker down")})
	if _, err := svc.AddTransaction(context.Background(), draft(core.Income, "1", "Salary")); err != nil {
		t.Fatalf("publish failure should be swallowed: %v", err)
	}
}

func TestUpdateTransaction_EditWindow(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"fresh", time.Minute, nil},
		{"boundary", 12 * time.Hour, nil},
		{"expired", 13 * time.Hour, core.ErrEditWindowExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc, c := newService(t, pub)
			ctx := context.Background()

			saved, err := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
			if err != nil {
				t.Fatal(err)
			}
			c.advance(tc.elapsed)

			patch := core.TransactionPatch{Amount: decimal.NewFromInt(20), Category: "Fuel", Division: core.Office, Description: "fixed"}
			updated, err := svc.UpdateTransaction(ctx, saved.ID, patch)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			stored, _ := svc.GetTransaction(ctx, saved.ID)
			if tc.wantErr != nil {
				if stored.Category != "Food" || !stored.Amount.Equal(decimal.NewFromInt(10)) {
					t.Fatalf("expired update must not change storage: %+v", stored)
				}
				return
			}
			if updated.Category != "Fuel" || stored.Division != core.Office || stored.Description != "fixed" {
				t.Fatalf("update not applied: %+v", stored)
			}
			if !stored.CreatedAt.Equal(saved.CreatedAt) || stored.Type != core.Expense {
				t.Fatalf("immutable fields changed: %+v", stored)
			}
			if len(pub.synced) != 2 {
				t.Fatalf("expected sync on add and update, got %v", pub.synced)
			}
		})
	}
}

func TestUpdateTransaction_Errors(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	if _, err := svc.UpdateTransaction(ctx, "missing", core.TransactionPatch{Amount: decimal.NewFromInt(1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	saved, _ := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
	_, err := svc.UpdateTransaction(ctx, saved.ID, core.TransactionPatch{Amount: decimal.NewFromInt(-1), Category: "Food", Division: core.Personal})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	pub := &fakePublisher{}
	svc, c := newService(t, pub)
	ctx := context.Background()

	if err := svc.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	fresh, _ := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
	if err := svc.DeleteTransaction(ctx, fresh.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetTransaction(ctx, fresh.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
	if len(pub.deleted) != 1 || pub.deleted[0] != fresh.ID {
		t.Fatalf("expected delete message, got %v", pub.deleted)
	}

	old, _ := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
	c.advance(13 * time.Hour)
	if err := svc.DeleteTransaction(ctx, old.ID); !errors.Is(err, core.ErrEditWindowExpired) {
		t.Fatalf("expected ErrEditWindowExpired, got %v", err)
	}
	if _, err := svc.GetTransaction(ctx, old.ID); err != nil {
		t.Fatalf("expired delete must keep the transaction: %v", err)
	}
}

func TestSummaries(t *testing.T) {
	svc, c := newService(t, nil)
	ctx := context.Background()

	for _, d := range []core.Transaction{
		draft(core.Income, "1000", "Salary"),
		draft(core.Expense, "200", "Food"),
		draft(core.Expense, "50", "Fuel"),
	} {
		if _, err := svc.AddTransaction(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	c.advance(48 * time.Hour)
	if _, err := svc.AddTransaction(ctx, draft(core.Expense, "999", "Food")); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	sum, err := svc.GetSummary(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.TotalIncome.Equal(decimal.NewFromInt(1000)) || !sum.TotalExpense.Equal(decimal.NewFromInt(250)) || !sum.Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	cats, err := svc.CategorySummary(ctx, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 3 || cats[0].Name != "Salary" || cats[1].Name != "Food" || cats[2].Name != "Fuel" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	all, _ := svc.GetTransactionsBetween(ctx, day, day.AddDate(0, 0, 2))
	if len(all) != 4 {
		t.Fatalf("expected 4 transactions across three days, got %d", len(all))
	}

	f := core.NewDayFilter(day, day.AddDate(0, 0, 2), time.UTC)
	f.Category = "Food"
	food, _ := svc.FindTransactions(ctx, f)
	if len(food) != 2 {
		t.Fatalf("expected 2 food transactions, got %d", len(food))
	}
}

func TestGenerateExcelReport(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	if _, err := svc.AddTransaction(ctx, draft(core.Expense, "5", "Food")); err != nil {
		t.Fatal(err)
	}
	out, err := svc.GenerateExcelReport(ctx, day, day)
	if err != nil || len(out) == 0 {
		t.Fatalf("unexpected report: %d bytes err=%v", len(out), err)
	}

	if _, err := svc.AddTransaction(ctx, core.NewTransaction(core.Transfer, decimal.NewFromInt(3), "Savings", core.Personal, "")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GenerateExcelReport(ctx, day, day); err != nil {
		t.Fatalf("report with transfer: %v", err)
	}
}

func TestTransactionsWithoutCategoryNeverReachGrouping(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	salary, err := svc.AddTransaction(ctx, draft(core.Income, "1000", "Salary"))
	if err != nil {
		t.Fatal(err)
	}

	transfer := core.NewTransaction(core.Transfer, decimal.NewFromInt(50), "", core.Personal, "")
	transfer.FromAccount, transfer.ToAccount = "a", "b"
	if _, err := svc.AddTransaction(ctx, transfer); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory for transfer, got %v", err)
	}

	blank := core.TransactionPatch{Amount: decimal.NewFromInt(900), Category: "  ", Division: core.Personal}
	if _, err := svc.UpdateTransaction(ctx, salary.ID, blank); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for blank category patch, got %v", err)
	}
	if stored, _ := svc.GetTransaction(ctx, salary.ID); stored.Category != "Salary" || !stored.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("rejected patch changed storage: %+v", stored)
	}

	totals, err := svc.CategorySummary(ctx, day, day)
	if err != nil {
		t.Fatalf("category summary: %v", err)
	}
	if len(totals) != 1 || totals[0].Name != "Salary" {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestEditWindowComparesAtStoredPrecision(t *testing.T) {
	svc, c := newService(t, nil)
	ctx := context.Background()
	c.t = c.t.Add(900 * time.Microsecond)

	saved, err := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
	if err != nil {
		t.Fatal(err)
	}
	c.advance(12 * time.Hour)

	patch := core.TransactionPatch{Amount: decimal.NewFromInt(11), Category: "Food", Division: core.Personal}
	if _, err := svc.UpdateTransaction(ctx, saved.ID, patch); err != nil {
		t.Fatalf("update exactly 12h after creation: %v", err)
	}
	c.advance(time.Millisecond)
	if err := svc.DeleteTransaction(ctx, saved.ID); !errors.Is(err, core.ErrEditWindowExpired) {
		t.Fatalf("expected ErrEditWindowExpired one millisecond later, got %v", err)
	}
}

func TestAddTransferAccount(t *testing.T) {
	repo := memory.New()
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	if _, err := svc.AddTransferAccount(ctx, core.NewAccount(" ", "b", decimal.NewFromInt(1), "", time.Time{})); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	saved, err := svc.AddTransferAccount(ctx, core.NewAccount("a", "b", decimal.NewFromInt(100), "move", time.Time{}))
	if err != nil || saved.ID == "" {
		t.Fatalf("unexpected transfer: %+v err=%v", saved, err)
	}
	if len(repo.Accounts()) != 1 {
		t.Fatal("expected account to be stored")
	}
}

func TestLookupCache(t *testing.T) {
	store := memory.New()
	c := &clock{t: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)}
	svc := NewTransactionService(store, nil, WithLocation(time.UTC), WithClock(c.now), WithLookupCache(16, time.Minute))
	ctx := context.Background()

	saved, err := svc.AddTransaction(ctx, draft(core.Expense, "10", "Food"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// A write that bypasses the service is not seen until the entry expires.
	behind := saved
	behind.Category = "Changed"
	if _, err := store.UpdateTransaction(ctx, behind); err != nil {
		t.Fatalf("store update: %v", err)
	}
	if got, _ := svc.GetTransaction(ctx, saved.ID); got.Category != "Food" {
		t.Fatalf("expected cached category, got %q", got.Category)
	}

	patch := core.TransactionPatch{Amount: decimal.NewFromInt(12), Category: "Groceries", Division: core.Personal}
	if _, err := svc.UpdateTransaction(ctx, saved.ID, patch); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := svc.GetTransaction(ctx, saved.ID); got.Category != "Groceries" || !got.Amount.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("update not reflected: %+v", got)
	}

	if err := svc.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetTransaction(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
