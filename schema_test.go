package untangle_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/k-nishimoto/untangle"
)

func personSchema() *untangle.Parameter {
	return &untangle.Parameter{
		Title: "person",
		Type:  untangle.TypeObject,
		Properties: map[string]*untangle.Parameter{
			"name": {Type: untangle.TypeString},
			"age":  {Type: untangle.TypeInteger, Minimum: untangle.Ptr(0.0)},
			"mood": {Type: untangle.TypeString, Enum: []string{"high", "low"}},
		},
		Required: []string{"name"},
	}
}

func TestParameterValidate(t *testing.T) {
	t.Run("valid nested schema", func(t *testing.T) {
		gt.NoError(t, personSchema().Validate())
	})

	t.Run("array requires items", func(t *testing.T) {
		p := &untangle.Parameter{Type: untangle.TypeArray}
		err := p.Validate()
		gt.Error(t, err)
		gt.True(t, errors.Is(err, untangle.ErrInvalidParameter))
	})

	t.Run("enum only on strings", func(t *testing.T) {
		p := &untangle.Parameter{Type: untangle.TypeInteger, Enum: []string{"a"}}
		gt.Error(t, p.Validate())
	})

	t.Run("minimum must not exceed maximum", func(t *testing.T) {
		p := &untangle.Parameter{
			Type:    untangle.TypeNumber,
			Minimum: untangle.Ptr(10.0),
			Maximum: untangle.Ptr(1.0),
		}
		gt.Error(t, p.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		p := &untangle.Parameter{Type: "tuple"}
		gt.Error(t, p.Validate())
	})

	t.Run("invalid property surfaces", func(t *testing.T) {
		p := &untangle.Parameter{
			Type: untangle.TypeObject,
			Properties: map[string]*untangle.Parameter{
				"bad": {Type: untangle.TypeArray},
			},
		}
		gt.Error(t, p.Validate())
	})
}

func TestToJSONSchemaClosesObjects(t *testing.T) {
	doc := personSchema().ToJSONSchema()
	gt.Equal(t, "object", doc["type"])
	gt.Equal(t, false, doc["additionalProperties"])
	gt.Equal(t, []any{"name"}, gt.Cast[[]any](t, doc["required"]))

	props := gt.Cast[map[string]any](t, doc["properties"])
	mood := gt.Cast[map[string]any](t, props["mood"])
	gt.Equal(t, []any{"high", "low"}, gt.Cast[[]any](t, mood["enum"]))
}

func TestCompiledSchemaValidation(t *testing.T) {
	schema, err := personSchema().Compile()
	gt.NoError(t, err)

	validate := func(raw string) error {
		var doc any
		gt.NoError(t, json.Unmarshal([]byte(raw), &doc))
		return schema.Validate(doc)
	}

	t.Run("conforming document", func(t *testing.T) {
		gt.NoError(t, validate(`{"name": "mika", "age": 30, "mood": "high"}`))
	})

	t.Run("missing required field", func(t *testing.T) {
		gt.Error(t, validate(`{"age": 30}`))
	})

	t.Run("wrong type", func(t *testing.T) {
		gt.Error(t, validate(`{"name": "mika", "age": "thirty"}`))
	})

	t.Run("enum violation", func(t *testing.T) {
		gt.Error(t, validate(`{"name": "mika", "mood": "sideways"}`))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		gt.Error(t, validate(`{"name": "mika", "shoe_size": 42}`))
	})

	t.Run("minimum enforced", func(t *testing.T) {
		gt.Error(t, validate(`{"name": "mika", "age": -1}`))
	})
}
