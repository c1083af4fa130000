package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"moneymanager/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := MigrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `id, type, amount, category, division, description,
	from_account, to_account, transaction_date, created_at`

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.String(), t.Category, string(t.Division), t.Description,
		t.FromAccount, t.ToAccount, t.TransactionDate.UnixNano(), t.CreatedAt.UnixNano(), SyncPending,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"category", t.Category)

	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction overwrites the mutable fields and resets the sync state.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount = ?, category = ?, division = ?, description = ?, sync_status = ?
		 WHERE id = ?`,
		t.Amount.String(), t.Category, string(t.Division), t.Description, SyncPending, t.ID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := expectOneRow(res, t.ID); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectOneRow(res, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		sb   strings.Builder
		args = []any{f.From.UnixNano(), f.To.UnixNano()}
	)
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_date BETWEEN ? AND ?`)
	if f.Category != "" {
		sb.WriteString(` AND category = ?`)
		args = append(args, f.Category)
	}
	if f.Division != "" {
		sb.WriteString(` AND division = ?`)
		args = append(args, string(f.Division))
	}
	sb.WriteString(` ORDER BY transaction_date, rowid`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()
	var date sql.NullInt64
	if !a.TransactionDate.IsZero() {
		date = sql.NullInt64{Int64: a.TransactionDate.UnixNano(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, from_account_id, to_account_id, amount, description, transaction_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.FromAccountID, a.ToAccountID, a.Amount.String(), a.Description, date,
	)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Transfer account saved to SQLite",
		"id", a.ID,
		"from", a.FromAccountID,
		"to", a.ToAccountID)

	return a, nil
}

// PendingSync returns ids of transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE sync_status = ? ORDER BY created_at LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncDone); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, SyncError); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		typ, amount, div  string
		txDate, createdAt int64
	)
	err := s.Scan(&t.ID, &typ, &amount, &t.Category, &div, &t.Description,
		&t.FromAccount, &t.ToAccount, &txDate, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Type = core.TransactionType(typ)
	t.Division = core.Division(div)
	t.TransactionDate = time.Unix(0, txDate).UTC()
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	return t, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}
