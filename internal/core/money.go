// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user supplied amounts into
// decimals. Amounts are kept as decimals end to end; rupiah values have no
// minor unit, so a fixed cents representation would not fit every currency.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied amount to a positive decimal.
//
// It accepts a dot (12.34) or a comma (12,34) as decimal separator. When both
// appear, the last one is the decimal separator and the other is treated as a
// thousands separator, so "1.500.000" and "1,234.50" both parse. A single dot
// followed by exactly three digits is rupiah grouping, not a decimal point,
// unless the integer part is zero. Signs are rejected: the direction of a
// transaction lives in its type.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("12,34")     -> 12.34
//	ParseAmount("25.000")    -> 25000
//	ParseAmount("0.500")     -> 0.5
//	ParseAmount("1.500.000") -> 1500000
//	ParseAmount("-5")        -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	s = normalizeSeparators(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func normalizeSeparators(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		// "1.500.000" style grouping, as typed into the rupiah inputs.
		return strings.ReplaceAll(s, ".", "")
	case commas == 1:
		return strings.ReplaceAll(s, ",", ".")
	case dots == 1 && isThousandsGroup(s):
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}

// isThousandsGroup reports whether the single dot in s splits a non-zero
// integer part from exactly three digits, as in "25.000".
func isThousandsGroup(s string) bool {
	intPart, frac, _ := strings.Cut(s, ".")
	return len(frac) == 3 && strings.Trim(intPart, "0") != ""
}
