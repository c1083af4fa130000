package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"

	Personal Division = "personal"
	Office   Division = "office"
)

const maxDescriptionLen = 500

type (
	TransactionType string

	// Division partitions transactions into personal or office spending.
	Division string

	Transaction struct {
		ID              string
		Type            TransactionType
		Amount          decimal.Decimal
		Category        string
		Division        Division
		Description     string
		FromAccount     string // expense / transfer
		ToAccount       string // income / transfer
		TransactionDate time.Time
		CreatedAt       time.Time
	}

	// TransactionPatch carries the only fields an update may change.
	TransactionPatch struct {
		Amount      decimal.Decimal
		Category    string
		Division    Division
		Description string
	}

	// Account is a transfer record between two accounts. It is never updated.
	Account struct {
		ID              string
		FromAccountID   string
		ToAccountID     string
		Amount          decimal.Decimal
		Description     string
		TransactionDate time.Time
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEditWindowExpired = errors.New("edit window expired")
	ErrValidation        = errors.New("validation failed")

	ErrInvalidAmount      = &ValidationError{Field: "amount", Reason: "must be positive"}
	ErrInvalidType        = &ValidationError{Field: "type", Reason: "must be income, expense or transfer"}
	ErrInvalidDivision    = &ValidationError{Field: "division", Reason: "must be personal or office"}
	ErrEmptyCategory      = &ValidationError{Field: "category", Reason: "cannot be empty"}
	ErrDescriptionTooLong = &ValidationError{Field: "description", Reason: "too long (max 500 characters)"}
	ErrEmptyFromAccount   = &ValidationError{Field: "fromAccountId", Reason: "cannot be blank"}
	ErrEmptyToAccount     = &ValidationError{Field: "toAccountId", Reason: "cannot be blank"}
)

// ValidationError describes malformed input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (d Division) IsValid() bool {
	switch d {
	case Personal, Office:
		return true
	}
	return false
}

// ParseTransactionType accepts the enum name in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// ParseDivision accepts the enum name in any case.
func ParseDivision(s string) (Division, error) {
	d := Division(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", ErrInvalidDivision
	}
	return d, nil
}

// NewTransaction builds a draft transaction. Timestamps and ID are left for the
// service and the store to assign.
func NewTransaction(typ TransactionType, amount decimal.Decimal, category string, division Division, description string) Transaction {
	return Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    strings.TrimSpace(category),
		Division:    division,
		Description: strings.TrimSpace(description),
	}
}

// WithPatch returns a copy of t with the mutable fields replaced. ID, type,
// accounts and timestamps are carried over untouched.
func (t Transaction) WithPatch(p TransactionPatch) Transaction {
	out := t
	out.Amount = p.Amount
	out.Category = strings.TrimSpace(p.Category)
	out.Division = p.Division
	out.Description = strings.TrimSpace(p.Description)
	return out
}

// WithTimestamps returns a copy stamped with createdAt and transactionDate.
func (t Transaction) WithTimestamps(createdAt, transactionDate time.Time) Transaction {
	out := t
	out.CreatedAt = createdAt
	out.TransactionDate = transactionDate
	return out
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	// Category summaries group every type, transfers included.
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Division.IsValid() {
		return ErrInvalidDivision
	}
	if descriptionTooLong(t.Description) {
		return ErrDescriptionTooLong
	}
	return nil
}

func descriptionTooLong(s string) bool {
	return utf8.RuneCountInString(s) > maxDescriptionLen
}

func (p TransactionPatch) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Division != "" && !p.Division.IsValid() {
		return ErrInvalidDivision
	}
	if descriptionTooLong(p.Description) {
		return ErrDescriptionTooLong
	}
	return nil
}

// NewAccount builds a transfer record draft.
func NewAccount(from, to string, amount decimal.Decimal, description string, transactionDate time.Time) Account {
	return Account{
		FromAccountID:   strings.TrimSpace(from),
		ToAccountID:     strings.TrimSpace(to),
		Amount:          amount,
		Description:     strings.TrimSpace(description),
		TransactionDate: transactionDate,
	}
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.FromAccountID) == "" {
		return ErrEmptyFromAccount
	}
	if strings.TrimSpace(a.ToAccountID) == "" {
		return ErrEmptyToAccount
	}
	if !a.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if descriptionTooLong(a.Description) {
		return ErrDescriptionTooLong
	}
	return nil
}
