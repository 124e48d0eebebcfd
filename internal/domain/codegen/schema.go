// Package codegen turns a JSON Schema into the typed interface text the
// sandboxed script sees. It never depends on the internal Go
// field layout of the third-party schema type it accepts at the
// boundary (github.com/google/jsonschema-go/jsonschema.Schema) — it
// round-trips through the schema's JSON wire form, which is the stable
// contract, into a private AST (node) that the renderer walks.
package codegen

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
)

// node is the engine-private, already-dereferenced schema AST. Only
// the keywords this codegen understands are represented; everything
// else degrades to opaque.
type node struct {
	Ref                  string           `json:"$ref,omitempty"`
	Type                 string           `json:"type,omitempty"`
	Description          string           `json:"description,omitempty"`
	Enum                 []any            `json:"enum,omitempty"`
	Items                *node            `json:"items,omitempty"`
	PrefixItems          []*node          `json:"prefixItems,omitempty"`
	Properties           map[string]*node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	AdditionalProperties *rawAdditional   `json:"additionalProperties,omitempty"`
	OneOf                []*node          `json:"oneOf,omitempty"`
	AnyOf                []*node          `json:"anyOf,omitempty"`
	AllOf                []*node          `json:"allOf,omitempty"`
	Nullable             bool             `json:"nullable,omitempty"`
	Defs                 map[string]*node `json:"$defs,omitempty"`
	Definitions          map[string]*node `json:"definitions,omitempty"`
}

// rawAdditional models additionalProperties, which per JSON Schema can
// be a boolean or a nested schema object.
type rawAdditional struct {
	IsBool  bool
	Bool    bool
	Schema  *node
	present bool
}

func (r *rawAdditional) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		r.IsBool, r.Bool, r.present = true, b, true
		return nil
	}
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	r.Schema, r.present = &n, true
	return nil
}

// Dereference converts a third-party schema into the private AST,
// resolving every $ref against the schema's own $defs/definitions and
// rejecting true cycles. It is the sole entry point tool registration
// uses before caching a tool's rendered type text.
func Dereference(schema *jsonschema.Schema) (*node, error) {
	if schema == nil {
		return nil, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, codeerr.Wrap(codeerr.KindSchemaInvalid, "marshal schema", err)
	}
	var root node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, codeerr.Wrap(codeerr.KindSchemaInvalid, "unmarshal schema", err)
	}

	defs := make(map[string]*node, len(root.Defs)+len(root.Definitions))
	for k, v := range root.Defs {
		defs[k] = v
	}
	for k, v := range root.Definitions {
		defs[k] = v
	}

	visiting := map[string]bool{}
	resolved, err := resolve(&root, defs, visiting)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolve walks n, replacing every $ref with its target and recursing
// into every nested schema position. visiting tracks the $ref keys
// currently being expanded on the active path so a true cycle is
// rejected instead of looping forever.
func resolve(n *node, defs map[string]*node, visiting map[string]bool) (*node, error) {
	if n == nil {
		return nil, nil
	}

	if n.Ref != "" {
		key := refKey(n.Ref)
		if visiting[key] {
			return nil, codeerr.New(codeerr.KindSchemaInvalid, fmt.Sprintf("cyclic $ref detected at %q", n.Ref))
		}
		target, ok := defs[key]
		if !ok {
			return nil, codeerr.New(codeerr.KindSchemaInvalid, fmt.Sprintf("unresolved $ref %q", n.Ref))
		}
		visiting[key] = true
		resolved, err := resolve(target, defs, visiting)
		delete(visiting, key)
		return resolved, err
	}

	out := *n
	out.Ref = ""

	var err error
	if out.Items, err = resolve(n.Items, defs, visiting); err != nil {
		return nil, err
	}
	if out.PrefixItems, err = resolveSlice(n.PrefixItems, defs, visiting); err != nil {
		return nil, err
	}
	if out.OneOf, err = resolveSlice(n.OneOf, defs, visiting); err != nil {
		return nil, err
	}
	if out.AnyOf, err = resolveSlice(n.AnyOf, defs, visiting); err != nil {
		return nil, err
	}
	if out.AllOf, err = resolveSlice(n.AllOf, defs, visiting); err != nil {
		return nil, err
	}
	if len(n.Properties) > 0 {
		out.Properties = make(map[string]*node, len(n.Properties))
		for name, prop := range n.Properties {
			resolved, err := resolve(prop, defs, visiting)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = resolved
		}
	}
	if n.AdditionalProperties != nil && n.AdditionalProperties.Schema != nil {
		resolved, err := resolve(n.AdditionalProperties.Schema, defs, visiting)
		if err != nil {
			return nil, err
		}
		ap := *n.AdditionalProperties
		ap.Schema = resolved
		out.AdditionalProperties = &ap
	}
	out.Defs = nil
	out.Definitions = nil
	return &out, nil
}

func resolveSlice(items []*node, defs map[string]*node, visiting map[string]bool) ([]*node, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]*node, len(items))
	for i, item := range items {
		resolved, err := resolve(item, defs, visiting)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// refKey normalizes a $ref string to the bare definition name, the
// only form this engine supports ("#/$defs/Foo" or "#/definitions/Foo").
func refKey(ref string) string {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
			return ref[len(prefix):]
		}
	}
	return ref
}
