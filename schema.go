package untangle

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParameterType is the type of a schema parameter.
type ParameterType string

const (
	// TypeString represents a string parameter.
	TypeString ParameterType = "string"

	// TypeNumber represents a floating-point number parameter.
	TypeNumber ParameterType = "number"

	// TypeInteger represents an integer parameter.
	TypeInteger ParameterType = "integer"

	// TypeBoolean represents a boolean parameter.
	TypeBoolean ParameterType = "boolean"

	// TypeArray represents an array parameter.
	TypeArray ParameterType = "array"

	// TypeObject represents an object parameter with nested properties.
	TypeObject ParameterType = "object"
)

// Parameter describes one node of a response schema. The decomposer and the
// judge both express their expected output as a Parameter tree, and
// GenerateStructured rejects any response that does not conform.
type Parameter struct {
	// Title is the user-friendly name of the schema. Used as the schema name
	// for providers that require one (e.g. OpenAI structured outputs).
	Title string

	// Type is the data type of the parameter.
	Type ParameterType

	// Description is a human-readable description of the parameter.
	Description string

	// Properties defines the nested fields of an object parameter.
	Properties map[string]*Parameter

	// Required is the list of required property names of an object parameter.
	Required []string

	// Items is the element schema of an array parameter.
	Items *Parameter

	// Enum restricts a string parameter to a fixed set of values.
	Enum []string

	// Minimum and Maximum constrain numeric parameters.
	Minimum *float64
	Maximum *float64
}

// Validate validates the schema descriptor itself.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("parameter", p))

	switch p.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
	default:
		return eb.Wrap(ErrInvalidParameter, "unknown parameter type")
	}

	if p.Type == TypeArray && p.Items == nil {
		return eb.Wrap(ErrInvalidParameter, "array parameter requires items")
	}
	if len(p.Enum) > 0 && p.Type != TypeString {
		return eb.Wrap(ErrInvalidParameter, "enum is only allowed for string parameters")
	}
	if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
		return eb.Wrap(ErrInvalidParameter, "minimum must not exceed maximum")
	}

	for name, prop := range p.Properties {
		if err := prop.Validate(); err != nil {
			return goerr.Wrap(err, "invalid property", goerr.V("property", name))
		}
	}
	if p.Items != nil {
		if err := p.Items.Validate(); err != nil {
			return goerr.Wrap(err, "invalid items")
		}
	}

	return nil
}

// ToJSONSchema converts the parameter tree into a JSON Schema document.
// All values are JSON-native types so the result can be passed directly to
// provider APIs or to the jsonschema compiler.
func (p *Parameter) ToJSONSchema() map[string]any {
	doc := map[string]any{
		"type": string(p.Type),
	}

	if p.Description != "" {
		doc["description"] = p.Description
	}

	if p.Type == TypeObject {
		props := make(map[string]any, len(p.Properties))
		for name, prop := range p.Properties {
			props[name] = prop.ToJSONSchema()
		}
		doc["properties"] = props
		doc["additionalProperties"] = false
		if len(p.Required) > 0 {
			required := make([]any, len(p.Required))
			for i, r := range p.Required {
				required[i] = r
			}
			doc["required"] = required
		}
	}

	if p.Type == TypeArray && p.Items != nil {
		doc["items"] = p.Items.ToJSONSchema()
	}

	if len(p.Enum) > 0 {
		enum := make([]any, len(p.Enum))
		for i, e := range p.Enum {
			enum[i] = e
		}
		doc["enum"] = enum
	}

	if p.Minimum != nil {
		doc["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		doc["maximum"] = *p.Maximum
	}

	return doc
}

// Compile builds a validator for the schema. The compiled schema rejects
// non-conforming structured results instead of coercing them.
func (p *Parameter) Compile() (*jsonschema.Schema, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", p.ToJSONSchema()); err != nil {
		return nil, goerr.Wrap(err, "failed to add schema resource")
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile schema")
	}

	return schema, nil
}

// Ptr returns a pointer to v. Helper for Minimum/Maximum literals.
func Ptr[T any](v T) *T {
	return &v
}
