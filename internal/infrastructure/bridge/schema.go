package bridge

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// decodeSchema unmarshals an optional raw JSON Schema from a
// register_tool param. An empty/absent field is not an error — it
// yields a nil schema, which codegen renders as "any".
func decodeSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
