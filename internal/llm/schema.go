package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// KeywordsSchema is the JSON shape expected from keyword generation.
var KeywordsSchema = map[string]any{
	"type":     "object",
	"required": []any{"keywords"},
	"properties": map[string]any{
		"keywords": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"source"},
				"properties": map[string]any{
					"source": map[string]any{"type": "string"},
					"target": map[string]any{"type": "string"},
				},
			},
		},
	},
}

// FieldsSchema is the JSON shape expected from field extraction.
var FieldsSchema = map[string]any{
	"type": "object",
	"required": []any{
		"companyDescription", "businessType", "activities", "industries", "specializations",
	},
	"properties": map[string]any{
		"companyDescription": map[string]any{"type": "string"},
		"businessType":       map[string]any{"type": "string"},
		"activities":         stringArray(),
		"industries":         stringArray(),
		"specializations":    stringArray(),
	},
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// ValidateJSONAgainstSchema compiles schemaMap and validates data against it.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// DecodeKeywords validates and decodes a keyword generation payload.
func DecodeKeywords(raw []byte) ([]Keyword, error) {
	if err := ValidateJSONAgainstSchema(KeywordsSchema, raw); err != nil {
		return nil, err
	}
	var out struct {
		Keywords []Keyword `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return NormalizeKeywords(out.Keywords), nil
}

// DecodeFields validates and decodes a field extraction payload.
func DecodeFields(raw []byte) (ProfileFields, error) {
	if err := ValidateJSONAgainstSchema(FieldsSchema, raw); err != nil {
		return ProfileFields{}, err
	}
	var out ProfileFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return ProfileFields{}, fmt.Errorf("decode fields: %w", err)
	}
	return NormalizeFields(out), nil
}
