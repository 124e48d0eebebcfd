package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// RenderType dereferences schema and renders it as a TypeScript type
// expression ("{ a: string; b?: number }", "string[]", "'a' | 'b'", ...).
// A nil schema renders as "any", matching an MCP tool with no declared
// input/output shape.
func RenderType(schema *jsonschema.Schema) (string, error) {
	n, err := Dereference(schema)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "any", nil
	}
	return renderNode(n), nil
}

func renderNode(n *node) string {
	switch {
	case len(n.Enum) > 0:
		return renderEnum(n.Enum)
	case len(n.OneOf) > 0:
		return renderUnion(n.OneOf)
	case len(n.AnyOf) > 0:
		return renderUnion(n.AnyOf)
	case len(n.AllOf) > 0:
		return renderIntersection(n.AllOf)
	}

	switch n.Type {
	case "string":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "array":
		return renderArray(n)
	case "object":
		return renderObject(n)
	default:
		if n.Properties != nil {
			return renderObject(n)
		}
		return "any"
	}
}

func renderEnum(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case string:
			parts[i] = strconv.Quote(val)
		case float64:
			parts[i] = strconv.FormatFloat(val, 'g', -1, 64)
		case bool:
			parts[i] = strconv.FormatBool(val)
		case nil:
			parts[i] = "null"
		default:
			parts[i] = fmt.Sprintf("%v", val)
		}
	}
	return strings.Join(parts, " | ")
}

func renderUnion(variants []*node) string {
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = renderNode(v)
	}
	return strings.Join(parts, " | ")
}

func renderIntersection(variants []*node) string {
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = renderNode(v)
	}
	return strings.Join(parts, " & ")
}

func renderArray(n *node) string {
	if len(n.PrefixItems) > 0 {
		parts := make([]string, len(n.PrefixItems))
		for i, item := range n.PrefixItems {
			parts[i] = renderNode(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if n.Items == nil {
		return "any[]"
	}
	elem := renderNode(n.Items)
	if strings.Contains(elem, " ") {
		return "(" + elem + ")[]"
	}
	return elem + "[]"
}

func renderObject(n *node) string {
	if len(n.Properties) == 0 {
		switch {
		case n.AdditionalProperties != nil && n.AdditionalProperties.IsBool && !n.AdditionalProperties.Bool:
			return "{}"
		case n.AdditionalProperties != nil && n.AdditionalProperties.Schema != nil:
			return "Record<string, " + renderNode(n.AdditionalProperties.Schema) + ">"
		default:
			return "Record<string, unknown> /* shape unknown */"
		}
	}

	required := make(map[string]bool, len(n.Required))
	for _, name := range n.Required {
		required[name] = true
	}

	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names)+1)
	for _, name := range names {
		prop := n.Properties[name]
		optional := ""
		if !required[name] {
			optional = "?"
		}
		fieldType := renderNode(prop)
		comment := ""
		if prop.Description != "" {
			comment = fmt.Sprintf(" /* %s */", prop.Description)
		}
		fields = append(fields, fmt.Sprintf("%s%s: %s%s", identifier(name), optional, fieldType, comment))
	}

	switch {
	case n.AdditionalProperties != nil && n.AdditionalProperties.IsBool && !n.AdditionalProperties.Bool:
		// additionalProperties: false — no index signature.
	case n.AdditionalProperties != nil && n.AdditionalProperties.Schema != nil:
		fields = append(fields, "[key: string]: "+renderNode(n.AdditionalProperties.Schema))
	default:
		fields = append(fields, "[key: string]: any /* shape unknown */")
	}

	return "{ " + strings.Join(fields, "; ") + " }"
}

// identifier quotes a property name that is not a bare TypeScript
// identifier, mirroring how a real .d.ts would render it.
func identifier(name string) string {
	if name == "" {
		return strconv.Quote(name)
	}
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter {
			return strconv.Quote(name)
		}
		if i > 0 && !isLetter && !isDigit {
			return strconv.Quote(name)
		}
	}
	return name
}

// RenderShortSignature renders a one-line form straight from schemas:
// "namespace.name(input: Type): Promise<ReturnType>". list_functions
// itself uses ShortSignature over an annotated tool instead.
func RenderShortSignature(namespace, name string, input, output *jsonschema.Schema) (string, error) {
	inputText, err := RenderType(input)
	if err != nil {
		return "", err
	}
	outputText, err := RenderType(output)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s(input: %s): Promise<%s>", namespace, name, inputText, outputText), nil
}

// RenderDetailedDeclaration renders a full ambient declaration straight
// from schemas: a doc comment carrying description, then the callable
// signature. get_function_details uses DetailedDeclaration over an
// annotated tool instead.
func RenderDetailedDeclaration(namespace, name, description string, input, output *jsonschema.Schema) (string, error) {
	inputText, err := RenderType(input)
	if err != nil {
		return "", err
	}
	outputText, err := RenderType(output)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if description != "" {
		b.WriteString("/** " + description + " */\n")
	}
	fmt.Fprintf(&b, "declare function %s_%s(input: %s): Promise<%s>;", namespace, name, inputText, outputText)
	return b.String(), nil
}
