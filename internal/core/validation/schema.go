package validation

// Kind is the scalar kind a field is expected to carry on the wire.
type Kind uint8

const (
	KindString Kind = iota
	KindInteger
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// RuleSet enumerates the per-value rules applied to one field. Zero values
// mean the rule is off; MaxLength 0 means unlimited.
type RuleSet struct {
	NotBlank        bool
	NotNull         bool
	MaxLength       int
	GreaterThanZero bool
}

// ModeOverride replaces a field's kind and rules in update mode. Most fields
// validate identically in both modes and leave this nil.
type ModeOverride struct {
	Kind  Kind
	Rules RuleSet
}

// FieldSpec is static configuration for one command field: its wire kind,
// whether create mode demands it, and the rule chain to run against it.
type FieldSpec struct {
	Name             string
	Kind             Kind
	RequiredOnCreate bool
	Rules            RuleSet
	Update           *ModeOverride
}

// CommandSchema is the immutable allow-list of field names a command accepts,
// together with the per-field validation configuration. Passthrough names are
// accepted but never validated. Built once at startup, safe for concurrent
// reads.
type CommandSchema struct {
	Resource    string
	Fields      []FieldSpec
	Passthrough []string

	supported map[string]struct{}
}

// NewCommandSchema builds a CommandSchema and its supported-name set.
func NewCommandSchema(resource string, fields []FieldSpec, passthrough ...string) CommandSchema {
	supported := make(map[string]struct{}, len(fields)+len(passthrough))
	for _, f := range fields {
		supported[f.Name] = struct{}{}
	}
	for _, name := range passthrough {
		supported[name] = struct{}{}
	}
	return CommandSchema{
		Resource:    resource,
		Fields:      fields,
		Passthrough: passthrough,
		supported:   supported,
	}
}

// Supports reports whether name belongs to the schema.
func (s CommandSchema) Supports(name string) bool {
	_, ok := s.supported[name]
	return ok
}

// unsupported returns payload names outside the schema, in sorted order.
func (s CommandSchema) unsupported(p Payload) []string {
	var unknown []string
	for _, name := range p.Names() {
		if !s.Supports(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
