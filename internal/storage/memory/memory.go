// Package memory is the process-local storage backend used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneymanager/internal/core"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	order    []string
	txs      map[string]core.Transaction
	accounts []core.Account
}

func New() *Store {
	return &Store{txs: make(map[string]core.Transaction)}
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// FindTransactions returns matches in insertion order.
func (s *Store) FindTransactions(_ context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Transaction{}
	for _, id := range s.order {
		if t := s.txs[id]; f.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) InsertAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	return a, nil
}

// Accounts returns a copy of the stored transfer records.
func (s *Store) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
