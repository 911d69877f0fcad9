package validation

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Stable rule-failure codes carried on violations.
const (
	CodeBlank         = "cannot.be.blank"
	CodeNull          = "cannot.be.null"
	CodeMaxLength     = "exceeds.max.length"
	CodeNotPositive   = "not.greater.than.zero"
	codeInvalidPrefix = "invalid."
)

// ForField opens a rule chain for one extracted value. The returned chain is
// a small value object holding the accumulator handle, the field name and the
// value, so every rule call is an explicit append rather than hidden shared
// state. Rules do not short-circuit: each one tests the same value
// independently and records at most one violation.
func (a *Accumulator) ForField(name string, value any) FieldChain {
	return FieldChain{acc: a, field: name, value: value}
}

// FieldChain applies per-value rules to one field of one pass.
type FieldChain struct {
	acc   *Accumulator
	field string
	value any
}

// NotBlank fails on an absent value, a null value, and a string that is empty
// or whitespace-only.
func (c FieldChain) NotBlank() FieldChain {
	if c.value == nil {
		c.acc.Add(c.field, CodeBlank, nil)
		return c
	}
	if s, ok := c.value.(string); ok && strings.TrimSpace(s) == "" {
		c.acc.Add(c.field, CodeBlank, s)
	}
	return c
}

// NotNull fails on an absent or null value.
func (c FieldChain) NotNull() FieldChain {
	if c.value == nil {
		c.acc.Add(c.field, CodeNull, nil)
	}
	return c
}

// NotExceedingLength fails on a string longer than max characters. The bound
// is inclusive and counts runes, not bytes. A nil value passes; null checks
// are separate rules.
func (c FieldChain) NotExceedingLength(max int) FieldChain {
	s, ok := c.value.(string)
	if !ok {
		return c
	}
	if utf8.RuneCountInString(s) > max {
		c.acc.Add(c.field, CodeMaxLength, s)
	}
	return c
}

// IntegerGreaterThanZero fails on an integer <= 0. Strict comparison; a nil
// value passes, null checks are separate rules.
func (c FieldChain) IntegerGreaterThanZero() FieldChain {
	n, ok := c.value.(int64)
	if !ok {
		return c
	}
	if n <= 0 {
		c.acc.Add(c.field, CodeNotPositive, n)
	}
	return c
}

// chainValue unwraps an extracted pointer into the chain's value
// representation: nil for absent/null, otherwise the dereferenced scalar.
func chainValue[T string | int64 | time.Time](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
