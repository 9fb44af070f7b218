// Package types provides the fixed-point numeric types shared by the
// pricing, order and cash-drawer components.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors. All amounts that
// leave the domain layer are rounded to 2 fractional digits via RoundMoney.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney normalizes a monetary value to 2 fractional digits
// (half away from zero). Every stored subtotal, total and balance
// goes through this exactly once per computation step.
func RoundMoney(m Money) Money {
	return m.Round(2)
}

// CentTolerance is the residual below which two monetary values are
// considered equal: drawer variance classification and change-making
// both treat |difference| <= 0.01 as resolved.
var CentTolerance = MustMoney("0.01")

// WithinCent reports whether |a - b| <= CentTolerance.
func WithinCent(a, b Money) bool {
	return a.Sub(b).Abs().Cmp(CentTolerance) <= 0
}
