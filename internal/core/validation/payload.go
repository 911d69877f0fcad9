package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMalformedPayload is returned by Parse when the request body is blank or
// not a JSON object. There is nothing to field-check in that case.
var ErrMalformedPayload = errors.New("payload is blank or not valid json")

// DateLayout is the wire format for date-kinded fields.
const DateLayout = "2006-01-02"

// MalformedFieldError reports a field that is present but holds a value of
// the wrong JSON kind, e.g. a date field carrying free text.
type MalformedFieldError struct {
	Field string
	Kind  Kind
	Raw   string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("field %q holds %s, expected %s", e.Field, e.Raw, e.Kind)
}

// Payload is a parsed request body: a flat mapping of top-level field name to
// raw JSON value. Extraction methods never fail for a missing or null field;
// both yield a nil pointer. Presence (including an explicit null) is answered
// by Has.
type Payload struct {
	fields map[string]json.RawMessage
}

// Parse turns a raw request body into a Payload. Blank input, non-JSON input
// and non-object documents all return ErrMalformedPayload.
func Parse(raw []byte) (Payload, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Payload{}, ErrMalformedPayload
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Payload{}, ErrMalformedPayload
	}
	return Payload{fields: fields}, nil
}

// Has reports whether the field is present in the payload. An explicit null
// counts as present; its value is still absent for extraction purposes.
func (p Payload) Has(name string) bool {
	_, ok := p.fields[name]
	return ok
}

// Names returns the payload's top-level field names in sorted order.
func (p Payload) Names() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String extracts a string field. Missing and null both return nil.
func (p Payload) String(name string) (*string, error) {
	raw, ok := p.fields[name]
	if !ok || isNullLiteral(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &MalformedFieldError{Field: name, Kind: KindString, Raw: string(raw)}
	}
	return &s, nil
}

// Integer extracts an integer field. Missing and null both return nil.
// Fractional numbers and quoted digits are malformed, not coerced.
func (p Payload) Integer(name string) (*int64, error) {
	raw, ok := p.fields[name]
	if !ok || isNullLiteral(raw) {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, &MalformedFieldError{Field: name, Kind: KindInteger, Raw: string(raw)}
	}
	return &n, nil
}

// Date extracts a date field carried as a "2006-01-02" string. Missing and
// null both return nil.
func (p Payload) Date(name string) (*time.Time, error) {
	raw, ok := p.fields[name]
	if !ok || isNullLiteral(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &MalformedFieldError{Field: name, Kind: KindDate, Raw: string(raw)}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, &MalformedFieldError{Field: name, Kind: KindDate, Raw: string(raw)}
	}
	return &t, nil
}

func isNullLiteral(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
