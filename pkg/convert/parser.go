package convert

import (
	"fmt"
	"strings"
)

// FieldError reports which backend field failed to convert.
type FieldError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Parser converts many fields of one backend row and keeps the first failure,
// so transforms can read straight through a row and check once at the end.
//
//	var p convert.Parser
//	tvl := p.Float("tvl_usd", row.TVLUSD)
//	txs := p.Int("tx_count", row.TxCount)
//	if err := p.Err(); err != nil {
//		return nil, err
//	}
type Parser struct {
	err error
}

// Err returns the first conversion error, if any.
func (p *Parser) Err() error {
	return p.err
}

func (p *Parser) fail(field, value string, err error) {
	if p.err == nil {
		p.err = &FieldError{Field: field, Value: value, Err: err}
	}
}

// Float converts a required decimal field.
func (p *Parser) Float(field, s string) float64 {
	v, err := Float(s)
	if err != nil {
		p.fail(field, s, err)
		return 0
	}
	return v
}

// FloatOr converts an optional decimal field, returning def when it is empty.
func (p *Parser) FloatOr(field, s string, def float64) float64 {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return p.Float(field, s)
}

// Int converts a required integer field.
func (p *Parser) Int(field, s string) int {
	v, err := Int(s)
	if err != nil {
		p.fail(field, s, err)
		return 0
	}
	return v
}

// Unix converts a required timestamp field into Unix seconds.
func (p *Parser) Unix(field, s string) int64 {
	v, err := Unix(s)
	if err != nil {
		p.fail(field, s, err)
		return 0
	}
	return v
}
