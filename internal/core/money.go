// Package core provides the domain types shared by every layer.
//
// This file contains the amount parser used at the input boundary and the
// conversions between cents and decimal representations.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountCents caps parsed amounts well below int64 overflow so that sums
// over realistic inputs stay exact.
const maxAmountCents = int64(1) << 50

var hundred = decimal.NewFromInt(100)

// ParseError reports an amount that could not be turned into Money.
// It wraps ErrInvalidAmount.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse amount %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseAmount converts user input into Money with half-up rounding to cents.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, an optional
// leading "$" and surrounding whitespace. Negative, empty or non-numeric
// input yields a *ParseError; the value is never coerced to zero.
//
// Examples:
//
//	ParseAmount("amount", "84.5")   -> 8450
//	ParseAmount("amount", "32,75")  -> 3275
//	ParseAmount("amount", "1.005")  -> 101
//	ParseAmount("amount", "abc")    -> *ParseError
func ParseAmount(field, s string) (Money, error) {
	fail := func(err error) (Money, error) {
		return Money{}, &ParseError{Field: field, Input: s, Err: err}
	}

	in := strings.TrimSpace(s)
	in = strings.TrimPrefix(in, "$")
	in = strings.ReplaceAll(in, ",", ".")
	if in == "" {
		return fail(ErrInvalidAmount)
	}
	if strings.HasPrefix(in, "+") || strings.HasPrefix(in, "-") {
		return fail(ErrInvalidAmount)
	}
	// decimal accepts exponents; amounts typed by people never carry one.
	if strings.ContainsAny(in, "eE") {
		return fail(ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(in)
	if err != nil {
		return fail(errors.Join(ErrInvalidAmount, err))
	}
	cents := d.Mul(hundred).Round(0)
	if cents.IsNegative() || cents.GreaterThan(decimal.NewFromInt(maxAmountCents)) {
		return fail(ErrInvalidAmount)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount in currency units for display purposes.
// Use cents for calculations.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String renders the amount with two decimals, e.g. "117.25".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
