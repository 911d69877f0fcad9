package validation

import (
	"bytes"
	"encoding/json"
	"fmt"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema exports the create-mode command contract as a draft-7 JSON
// Schema document, suitable for publishing to API clients. Null is admitted
// for every declared field because presence-with-null is a value-rule
// concern, not a structural one; unknown properties are rejected, mirroring
// the unsupported-parameter check.
func (s CommandSchema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields)+len(s.Passthrough))
	var required []string

	for _, field := range s.Fields {
		properties[field.Name] = fieldProperty(field.Kind, field.Rules)
		if field.RequiredOnCreate {
			required = append(required, field.Name)
		}
	}
	for _, name := range s.Passthrough {
		properties[name] = map[string]any{"type": "string"}
	}

	doc := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                s.Resource + " command",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldProperty(kind Kind, rules RuleSet) map[string]any {
	switch kind {
	case KindInteger:
		prop := map[string]any{"type": []string{"integer", "null"}}
		if rules.GreaterThanZero {
			prop["exclusiveMinimum"] = 0
		}
		return prop
	case KindDate:
		return map[string]any{"type": []string{"string", "null"}, "format": "date"}
	default:
		prop := map[string]any{"type": []string{"string", "null"}}
		if rules.MaxLength > 0 {
			prop["maxLength"] = rules.MaxLength
		}
		return prop
	}
}

// CompileCheck compiles the exported document and fails if it is not a valid
// JSON Schema. Run at startup so drift between the schema and its published
// form is caught before the service takes traffic.
func (s CommandSchema) CompileCheck() error {
	doc, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return fmt.Errorf("marshal %s command schema: %w", s.Resource, err)
	}

	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource("command.json", bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("add %s command schema: %w", s.Resource, err)
	}
	if _, err := compiler.Compile("command.json"); err != nil {
		return fmt.Errorf("compile %s command schema: %w", s.Resource, err)
	}
	return nil
}
