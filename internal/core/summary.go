package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMissingCategory is returned when a transaction without a category reaches
// a grouping function.
var ErrMissingCategory = errors.New("transaction has no category")

// Summary holds income and expense totals for a period. Transfers are not counted.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

// MarshalJSON renders the summary with the totalIncome, totalExpense and balance keys.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalIncome  json.Number `json:"totalIncome"`
		TotalExpense json.Number `json:"totalExpense"`
		Balance      json.Number `json:"balance"`
	}{
		TotalIncome:  json.Number(s.TotalIncome.String()),
		TotalExpense: json.Number(s.TotalExpense.String()),
		Balance:      json.Number(s.Balance.String()),
	})
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryTotals keeps categories in order of first occurrence.
type CategoryTotals []CategoryAmount

// Get returns the total for name and whether it was present.
func (c CategoryTotals) Get(name string) (decimal.Decimal, bool) {
	for _, ca := range c {
		if ca.Name == name {
			return ca.Amount, true
		}
	}
	return decimal.Zero, false
}

// MarshalJSON renders the totals as a JSON object, keeping first-occurrence order.
func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ca := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ca.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(ca.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Summarize sums income and expense amounts. An empty slice yields all zeros.
func Summarize(txs []Transaction) Summary {
	s := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// SummarizeByCategory groups every transaction by category regardless of type.
func SummarizeByCategory(txs []Transaction) (CategoryTotals, error) {
	return groupByCategory(txs, func(Transaction) bool { return true })
}

// ExpenseByCategory groups expense transactions only.
func ExpenseByCategory(txs []Transaction) (CategoryTotals, error) {
	return groupByCategory(txs, func(t Transaction) bool { return t.Type == Expense })
}

func groupByCategory(txs []Transaction, keep func(Transaction) bool) (CategoryTotals, error) {
	index := make(map[string]int)
	out := CategoryTotals{}
	for _, t := range txs {
		if !keep(t) {
			continue
		}
		if strings.TrimSpace(t.Category) == "" {
			return nil, ErrMissingCategory
		}
		if i, ok := index[t.Category]; ok {
			out[i].Amount = out[i].Amount.Add(t.Amount)
			continue
		}
		index[t.Category] = len(out)
		out = append(out, CategoryAmount{Name: t.Category, Amount: t.Amount})
	}
	return out, nil
}
