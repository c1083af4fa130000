// Package core holds the money manager domain: transactions, transfer records,
// the aggregation functions over them and the edit-window rule.
//
// This file contains helpers for parsing monetary amounts from user input.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a positive amount rounded to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Rounding is half-up
// on the third decimal place. Signs, exponents and zero amounts are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,346") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Float returns the amount as a float64 for spreadsheet cells and display.
// Use decimal arithmetic for sums.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
