// Package memory is an in-process ledger used when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"moneymanager/internal/core"
)

type Ledger struct {
	mu    sync.Mutex
	rows  []core.Transaction
	index map[string]int
}

func New() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// Upsert replaces the row for t.ID or appends a new one and returns a
// synthetic row reference.
func (l *Ledger) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("transaction without id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i, ok := l.index[t.ID]; ok {
		l.rows[i] = t
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	l.rows = append(l.rows, t)
	l.index[t.ID] = len(l.rows) - 1
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[id]
	if !ok {
		return nil
	}
	l.rows = append(l.rows[:i], l.rows[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.rows); j++ {
		l.index[l.rows[j].ID] = j
	}
	return nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (l *Ledger) Rows(_ context.Context) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Transaction(nil), l.rows...), nil
}
