// Package convert turns the string-typed fields returned by GraphQL backends
// into typed values, and builds the synthetic identifiers used to address
// derived records.
//
// Backends return amounts, prices and counters as decimal strings. Every
// conversion goes through this package so malformed input is reported the same
// way everywhere instead of silently becoming NaN or zero.
package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyNumber is returned when a numeric field is empty.
	ErrEmptyNumber = errors.New("empty numeric string")

	// ErrMalformedNumber is returned when a numeric field cannot be parsed.
	ErrMalformedNumber = errors.New("malformed numeric string")

	// ErrNotInteger is returned when an integer field carries a fractional part.
	ErrNotInteger = errors.New("numeric string is not an integer")
)

// Decimal parses a decimal string.
func Decimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyNumber
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	return d, nil
}

// Float parses a decimal string into a float64.
//
//	Float("1234.5") // 1234.5, nil
func Float(s string) (float64, error) {
	d, err := Decimal(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// Int parses an integer string. Decimal strings with a zero fraction such as
// "3000.0" are accepted.
func Int(s string) (int, error) {
	d, err := Decimal(s)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	return int(d.IntPart()), nil
}
