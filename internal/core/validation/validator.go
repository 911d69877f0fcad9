package validation

import "errors"

// Validator runs a command schema against raw create/update payloads. It
// holds no per-call state; every pass builds its own accumulator, so one
// Validator is safe for concurrent use.
type Validator struct {
	schema CommandSchema
}

func NewValidator(schema CommandSchema) *Validator {
	return &Validator{schema: schema}
}

// Schema returns the validator's command schema.
func (v *Validator) Schema() CommandSchema {
	return v.schema
}

// ValidateForCreate checks a create payload. Required fields are extracted
// unconditionally so absence surfaces through their null/blank rules;
// optional fields are only checked when present. Structural problems
// (malformed payload, unknown field names) abort immediately; field-level
// failures accumulate and surface once as a single *ValidationError.
func (v *Validator) ValidateForCreate(raw []byte) error {
	payload, err := Parse(raw)
	if err != nil {
		return err
	}
	if err := v.checkSupported(payload); err != nil {
		return err
	}

	acc := NewAccumulator(v.schema.Resource)
	for _, field := range v.schema.Fields {
		if !field.RequiredOnCreate && !payload.Has(field.Name) {
			continue
		}
		checkField(acc, payload, field.Name, field.Kind, field.Rules)
	}
	return acc.Result()
}

// ValidateForUpdate checks an update payload. Partial updates are legal:
// absent fields are skipped without violation, present fields must each be
// individually valid.
func (v *Validator) ValidateForUpdate(raw []byte) error {
	payload, err := Parse(raw)
	if err != nil {
		return err
	}
	if err := v.checkSupported(payload); err != nil {
		return err
	}

	acc := NewAccumulator(v.schema.Resource)
	for _, field := range v.schema.Fields {
		if !payload.Has(field.Name) {
			continue
		}
		kind, rules := field.Kind, field.Rules
		if field.Update != nil {
			kind, rules = field.Update.Kind, field.Update.Rules
		}
		checkField(acc, payload, field.Name, kind, rules)
	}
	return acc.Result()
}

// checkSupported rejects any payload field name outside the schema. Unlike
// field-level checks this short-circuits: an unknown name means the request
// is structurally wrong, not merely carrying a bad value.
func (v *Validator) checkSupported(p Payload) error {
	if unknown := v.schema.unsupported(p); len(unknown) > 0 {
		return &UnsupportedParametersError{Resource: v.schema.Resource, Parameters: unknown}
	}
	return nil
}

// checkField extracts one field by kind and runs its rule chain. A value of
// the wrong JSON kind folds into the pass as an invalid.<kind> violation so
// the remaining fields are still checked.
func checkField(acc *Accumulator, p Payload, name string, kind Kind, rules RuleSet) {
	value, err := extract(p, name, kind)
	if err != nil {
		var malformed *MalformedFieldError
		if errors.As(err, &malformed) {
			acc.Add(name, codeInvalidPrefix+kind.String(), malformed.Raw)
		}
		return
	}

	chain := acc.ForField(name, value)
	if rules.NotBlank {
		chain = chain.NotBlank()
	}
	if rules.NotNull {
		chain = chain.NotNull()
	}
	if rules.MaxLength > 0 {
		chain = chain.NotExceedingLength(rules.MaxLength)
	}
	if rules.GreaterThanZero {
		chain = chain.IntegerGreaterThanZero()
	}
}

func extract(p Payload, name string, kind Kind) (any, error) {
	switch kind {
	case KindInteger:
		n, err := p.Integer(name)
		return chainValue(n), err
	case KindDate:
		t, err := p.Date(name)
		return chainValue(t), err
	default:
		s, err := p.String(name)
		return chainValue(s), err
	}
}
