package validation

import (
	"fmt"
	"strings"
)

// GlobalMessageKey tags an aggregated validation failure as a whole,
// independent of the per-violation keys.
const GlobalMessageKey = "validation.msg.validation.errors.exist"

// Violation is a single field-level rule failure recorded during a pass.
type Violation struct {
	Resource  string
	Parameter string
	Code      string
	Value     any
}

// MessageKey returns the stable i18n key for this violation.
func (v Violation) MessageKey() string {
	return "validation.msg." + v.Resource + "." + v.Parameter + "." + v.Code
}

func (v Violation) String() string {
	return fmt.Sprintf("%s.%s: %s (value: %v)", v.Resource, v.Parameter, v.Code, v.Value)
}

// Accumulator collects violations across one validation pass. It is created
// empty at the start of the pass, owned exclusively by that pass, and
// consumed once at the end. It is not safe for concurrent writers.
type Accumulator struct {
	resource   string
	violations []Violation
}

func NewAccumulator(resource string) *Accumulator {
	return &Accumulator{resource: resource}
}

// Add appends one violation tagged with the accumulator's resource.
func (a *Accumulator) Add(parameter, code string, value any) {
	a.violations = append(a.violations, Violation{
		Resource:  a.resource,
		Parameter: parameter,
		Code:      code,
		Value:     value,
	})
}

// Empty reports whether the pass recorded no violations.
func (a *Accumulator) Empty() bool {
	return len(a.violations) == 0
}

// Violations returns the recorded violations in insertion order.
func (a *Accumulator) Violations() []Violation {
	return a.violations
}

// Result consumes the accumulator: nil on an empty pass, otherwise a single
// aggregated *ValidationError carrying the full ordered violation list.
func (a *Accumulator) Result() error {
	if a.Empty() {
		return nil
	}
	return &ValidationError{Resource: a.resource, Violations: a.violations}
}

// ValidationError is the aggregated failure of one validation pass.
type ValidationError struct {
	Resource   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("validation errors exist for %s: %s", e.Resource, strings.Join(parts, "; "))
}

// UnsupportedParametersError reports payload field names outside the command
// schema. It is raised immediately, before any field-level checks run.
type UnsupportedParametersError struct {
	Resource   string
	Parameters []string
}

func (e *UnsupportedParametersError) Error() string {
	return fmt.Sprintf("unsupported parameters for %s: %s", e.Resource, strings.Join(e.Parameters, ", "))
}
