package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
	"moneymanager/internal/report"
	"moneymanager/internal/storage"
)

// EventPublisher announces changes so the spreadsheet mirror can follow.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
	PublishTransactionDelete(ctx context.Context, id string) error
}

// TransactionService orchestrates transaction operations over storage, the
// edit-window rule, aggregation and report generation.
type TransactionService struct {
	storage   storage.Repository
	publisher EventPublisher
	loc       *time.Location
	now       func() time.Time
	lookups   *cache.LRU[core.Transaction]
}

type Option func(*TransactionService)

// WithLocation sets the zone used for day boundaries and report dates.
func WithLocation(loc *time.Location) Option {
	return func(s *TransactionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLookupCache keeps up to size transactions read by ID for ttl. Writes
// made through the service refresh or drop the cached entry.
func WithLookupCache(size int, ttl time.Duration) Option {
	return func(s *TransactionService) {
		if size > 0 && ttl > 0 {
			s.lookups = cache.NewLRU[core.Transaction](size, ttl)
		}
	}
}

// NewTransactionService wires the service. publisher may be nil, in which case
// sync events are skipped with a warning.
func NewTransactionService(repo storage.Repository, publisher EventPublisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		storage:   repo,
		publisher: publisher,
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for day boundaries.
func (s *TransactionService) Location() *time.Location { return s.loc }

// stamp is the current time at stored precision. Edit window checks use it
// too so they compare like with like.
func (s *TransactionService) stamp() time.Time {
	return s.now().In(s.loc).Truncate(time.Millisecond)
}

// AddTransaction validates draft, stamps CreatedAt and TransactionDate with the
// current time and persists it. Client supplied timestamps are ignored.
func (s *TransactionService) AddTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := s.stamp()
	draft.ID = ""
	saved, err := s.storage.InsertTransaction(ctx, draft.WithTimestamps(now, now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.remember(saved)

	if err := s.publishSync(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", saved.ID, "error", err)
	}
	return saved, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if s.lookups != nil {
		if t, ok := s.lookups.Get(id); ok {
			return t, nil
		}
	}
	t, err := s.storage.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.remember(t)
	return t, nil
}

func (s *TransactionService) remember(t core.Transaction) {
	if s.lookups != nil {
		s.lookups.Set(t.ID, t)
	}
}

func (s *TransactionService) forget(id string) {
	if s.lookups != nil {
		s.lookups.Delete(id)
	}
}

// UpdateTransaction applies patch to the transaction with id if it is still
// inside the edit window.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	existing, err := s.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := core.AuthorizeEdit(existing.CreatedAt, s.stamp()); err != nil {
		return core.Transaction{}, err
	}

	updated := existing.WithPatch(patch)
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.storage.UpdateTransaction(ctx, updated)
	if err != nil {
		s.forget(id)
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.remember(saved)

	if err := s.publishSync(ctx, saved.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", saved.ID, "error", err)
	}
	return saved, nil
}

// DeleteTransaction removes the transaction with id if it is still inside the
// edit window.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	existing, err := s.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := core.AuthorizeEdit(existing.CreatedAt, s.stamp()); err != nil {
		return err
	}
	s.forget(id)
	if err := s.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return nil
}

// GetTransactionsBetween returns transactions dated from the start of start's
// day to the end of end's day, both inclusive.
func (s *TransactionService) GetTransactionsBetween(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	return s.FindTransactions(ctx, core.NewDayFilter(start, end, s.loc))
}

func (s *TransactionService) FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.storage.FindTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) GetSummary(ctx context.Context, start, end time.Time) (core.Summary, error) {
	txs, err := s.GetTransactionsBetween(ctx, start, end)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs), nil
}

func (s *TransactionService) CategorySummary(ctx context.Context, start, end time.Time) (core.CategoryTotals, error) {
	txs, err := s.GetTransactionsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return core.SummarizeByCategory(txs)
}

func (s *TransactionService) GenerateExcelReport(ctx context.Context, start, end time.Time) ([]byte, error) {
	txs, err := s.GetTransactionsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	b := report.Builder{Location: s.loc}
	return b.Build(txs, start, end)
}

// AddTransferAccount records a transfer between two accounts. No balance
// checks are made and no transaction legs are created.
func (s *TransactionService) AddTransferAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	saved, err := s.storage.InsertAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save transfer account: %w", err)
	}
	return saved, nil
}

// Ping checks the storage backend.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *TransactionService) publishSync(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id)
}

func (s *TransactionService) publishDelete(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.publisher.PublishTransactionDelete(ctx, id)
}
