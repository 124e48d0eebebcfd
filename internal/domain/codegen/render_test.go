package codegen

import (
	"encoding/json"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"
)

func mustSchema(t *testing.T, raw string) *jsonschema.Schema {
	t.Helper()
	var s jsonschema.Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return &s
}

func TestRenderTypeNilIsAny(t *testing.T) {
	text, err := RenderType(nil)
	require.NoError(t, err)
	require.Equal(t, "any", text)
}

func TestRenderTypeObjectWithOptionalField(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {
			"a": {"type": "number"},
			"b": {"type": "string", "description": "label"}
		},
		"required": ["a"]
	}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `{ a: number; b?: string /* label */; [key: string]: any /* shape unknown */ }`, text)
}

func TestRenderTypeObjectAdditionalPropertiesFalseOmitsIndexSignature(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {"a": {"type": "number"}},
		"required": ["a"],
		"additionalProperties": false
	}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `{ a: number }`, text)
}

func TestRenderTypeObjectAdditionalPropertiesSchema(t *testing.T) {
	schema := mustSchema(t, `{
		"type": "object",
		"properties": {"a": {"type": "number"}},
		"required": ["a"],
		"additionalProperties": {"type": "string"}
	}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `{ a: number; [key: string]: string }`, text)
}

func TestRenderTypeEmptyObjectAdditionalPropertiesFalseIsEmptyType(t *testing.T) {
	schema := mustSchema(t, `{"type": "object", "additionalProperties": false}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `{}`, text)
}

func TestRenderTypeEnum(t *testing.T) {
	schema := mustSchema(t, `{"type": "string", "enum": ["a", "b", "c"]}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `"a" | "b" | "c"`, text)
}

func TestRenderTypeArray(t *testing.T) {
	schema := mustSchema(t, `{"type": "array", "items": {"type": "string"}}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, "string[]", text)
}

func TestDereferenceResolvesRef(t *testing.T) {
	schema := mustSchema(t, `{
		"$defs": {
			"Point": {"type": "object", "properties": {"x": {"type": "number"}}, "required": ["x"]}
		},
		"type": "object",
		"properties": {"origin": {"$ref": "#/$defs/Point"}},
		"required": ["origin"]
	}`)
	text, err := RenderType(schema)
	require.NoError(t, err)
	require.Equal(t, `{ origin: { x: number; [key: string]: any /* shape unknown */ }; [key: string]: any /* shape unknown */ }`, text)
}

func TestDereferenceRejectsCycle(t *testing.T) {
	schema := mustSchema(t, `{
		"$defs": {
			"Node": {
				"type": "object",
				"properties": {"next": {"$ref": "#/$defs/Node"}}
			}
		},
		"$ref": "#/$defs/Node"
	}`)
	_, err := RenderType(schema)
	require.Error(t, err)
}

func TestRenderShortSignature(t *testing.T) {
	input := mustSchema(t, `{"type": "object", "properties": {"a": {"type": "number"}, "b": {"type": "number"}}, "required": ["a", "b"]}`)
	output := mustSchema(t, `{"type": "number"}`)
	sig, err := RenderShortSignature("Math", "add", input, output)
	require.NoError(t, err)
	require.Equal(t, "Math.add(input: { a: number; b: number; [key: string]: any /* shape unknown */ }): Promise<number>", sig)
}
