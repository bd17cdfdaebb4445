// Package core provides money parsing and handling utilities.
//
// Amounts are integers in minor currency units. Inputs arriving as decimals (form
// fields, JSON numbers, CLI flags) are truncated toward zero the way the web client
// floors what the user typed.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount to minor units.
//
// Both dot and comma decimal separators are accepted and fractional parts are
// dropped. Only positive results are valid.
//
// Examples:
//
//	ParseAmount("3000")    -> 3000, nil
//	ParseAmount("3000.75") -> 3000, nil
//	ParseAmount("12,5")    -> 12, nil
//	ParseAmount("0.4")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	v, err := minorUnits(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseNonNegativeAmount is ParseAmount but admits zero, for budgets and goals.
func ParseNonNegativeAmount(s string) (int64, error) {
	v, err := minorUnits(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// AmountFromFloat floors a JSON number to minor units. Values outside int64
// are ErrInvalidAmount.
func AmountFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return floorToInt(decimal.NewFromFloat(f))
}

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

func minorUnits(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return floorToInt(d)
}

// floorToInt refuses values IntPart would wrap.
func floorToInt(d decimal.Decimal) (int64, error) {
	d = d.Floor()
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
