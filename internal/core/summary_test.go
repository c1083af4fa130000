package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func scenario() []Transaction {
	return []Transaction{
		NewTransaction(Income, amt("1000"), "Salary", Office, ""),
		NewTransaction(Expense, amt("200"), "Food", Personal, ""),
		NewTransaction(Expense, amt("50"), "Food", Personal, ""),
	}
}

func TestSummarizeScenario(t *testing.T) {
	s := Summarize(scenario())
	if !s.TotalIncome.Equal(amt("1000")) || !s.TotalExpense.Equal(amt("250")) || !s.Balance.Equal(amt("750")) {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummarizeExcludesTransfersAndBalances(t *testing.T) {
	txs := []Transaction{
		NewTransaction(Income, amt("0.10"), "Gift", Personal, ""),
		NewTransaction(Income, amt("0.20"), "Gift", Personal, ""),
		NewTransaction(Expense, amt("0.30"), "Food", Personal, ""),
		NewTransaction(Transfer, amt("999"), "Move", "", ""),
	}
	s := Summarize(txs)
	if !s.TotalIncome.Sub(s.TotalExpense).Equal(s.Balance) {
		t.Fatalf("balance drift: %+v", s)
	}
	if !s.Balance.IsZero() {
		t.Fatalf("expected exact zero balance, got %s", s.Balance)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if !s.TotalIncome.IsZero() || !s.TotalExpense.IsZero() || !s.Balance.IsZero() {
		t.Fatalf("expected zeros, got %+v", s)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"totalIncome":0,"totalExpense":0,"balance":0}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestSummarizeByCategoryIsTypeAgnostic(t *testing.T) {
	txs := append(scenario(), NewTransaction(Income, amt("5"), "Food", Personal, "refund"))
	got, err := SummarizeByCategory(txs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Salary" || got[1].Name != "Food" {
		t.Fatalf("unexpected keys/order: %+v", got)
	}
	if v, _ := got.Get("Food"); !v.Equal(amt("255")) {
		t.Fatalf("Food = %s, want 255", v)
	}
	b, _ := json.Marshal(got)
	if string(b) != `{"Salary":1000,"Food":255}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestExpenseByCategoryOnlyExpenses(t *testing.T) {
	txs := append(scenario(), NewTransaction(Income, amt("5"), "Food", Personal, "refund"))
	got, err := ExpenseByCategory(txs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only Food, got %+v", got)
	}
	if v, ok := got.Get("Food"); !ok || !v.Equal(amt("250")) {
		t.Fatalf("Food = %s, want 250", v)
	}
}

func TestGroupingFailsOnMissingCategory(t *testing.T) {
	txs := []Transaction{{Type: Income, Amount: amt("1")}}
	if _, err := SummarizeByCategory(txs); !errors.Is(err, ErrMissingCategory) {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}
	empty, err := SummarizeByCategory(nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty totals, got %v %v", empty, err)
	}
	if b, _ := json.Marshal(empty); string(b) != "{}" {
		t.Fatalf("unexpected json: %s", b)
	}
}
