// Package toolmodel holds the value types shared by every other
// component: FunctionId, ToolKind, Tool and ToolSet. Nothing in this
// package talks to a network, a sandbox, or a session — it is pure
// data plus the invariants that govern it.
package toolmodel

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FunctionId uniquely identifies one callable tool. Namespace is the
// name the tool was registered under ("Math", "Github"): the namespace
// given for a callback tool, or the configured server name for an MCP
// tool, used verbatim with no case conversion. Name is preserved
// verbatim from the tool's registration.
type FunctionId struct {
	Namespace string
	Name      string
}

// String renders the canonical wire identifier "Namespace.name".
func (id FunctionId) String() string {
	return fmt.Sprintf("%s.%s", id.Namespace, id.Name)
}

// Kind distinguishes how a Tool's call is ultimately dispatched.
type Kind int

const (
	// KindCallback tools route through the callback registry, either
	// the facade's default table or a session's bridged table.
	KindCallback Kind = iota
	// KindMCP tools route through a named upstream MCP connection.
	KindMCP
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "callback"
	case KindMCP:
		return "mcp"
	default:
		return "unknown"
	}
}

// Tool is one callable the sandbox can see. InputSchema/OutputSchema
// are stored as given, $ref nodes included; codegen dereferences them
// (rejecting cycles) only to produce InputTypeText/OutputTypeText.
// ServerID is only meaningful when Kind == KindMCP.
type Tool struct {
	ID           FunctionId
	Description  string
	InputSchema  *jsonschema.Schema
	OutputSchema *jsonschema.Schema
	Kind         Kind
	ServerID     string

	// InputTypeText/OutputTypeText cache the codegen fragments so
	// repeated list_functions/get_function_details calls don't
	// re-render the same schema.
	InputTypeText  string
	OutputTypeText string
}

// NewCallbackTool builds a callback-backed Tool. Schema dereferencing
// and cycle detection happen in the codegen package at registration
// time, before InputTypeText/OutputTypeText are populated.
func NewCallbackTool(namespace, name, description string, input, output *jsonschema.Schema) *Tool {
	return &Tool{
		ID:           FunctionId{Namespace: namespace, Name: name},
		Description:  description,
		InputSchema:  input,
		OutputSchema: output,
		Kind:         KindCallback,
	}
}

// NewMCPTool builds an MCP-backed Tool discovered from upstream serverID.
func NewMCPTool(namespace, name, description string, input, output *jsonschema.Schema, serverID string) *Tool {
	return &Tool{
		ID:           FunctionId{Namespace: namespace, Name: name},
		Description:  description,
		InputSchema:  input,
		OutputSchema: output,
		Kind:         KindMCP,
		ServerID:     serverID,
	}
}

// ToolSet is one namespace: an ordered, name-unique list of Tool.
// Ordering is preserved from registration and used only for
// deterministic listing.
type ToolSet struct {
	Namespace   string
	Description string
	tools       []*Tool
	byName      map[string]int
}

// NewToolSet creates an empty namespace.
func NewToolSet(namespace, description string) *ToolSet {
	return &ToolSet{
		Namespace:   namespace,
		Description: description,
		byName:      make(map[string]int),
	}
}

// ErrDuplicateToolName is returned by Add when a tool of that name is
// already registered in this ToolSet.
type ErrDuplicateToolName struct {
	Namespace, Name string
}

func (e *ErrDuplicateToolName) Error() string {
	return fmt.Sprintf("tool %s.%s already registered in this namespace", e.Namespace, e.Name)
}

// Add appends tool to the set, enforcing name uniqueness within the
// namespace. Cross-namespace FunctionId uniqueness is the registry's
// job.
func (ts *ToolSet) Add(tool *Tool) error {
	if _, exists := ts.byName[tool.ID.Name]; exists {
		return &ErrDuplicateToolName{Namespace: ts.Namespace, Name: tool.ID.Name}
	}
	ts.byName[tool.ID.Name] = len(ts.tools)
	ts.tools = append(ts.tools, tool)
	return nil
}

// Remove deletes a tool by name, re-indexing byName. Used when a
// bridge session closes and its tools must disappear.
func (ts *ToolSet) Remove(name string) bool {
	idx, exists := ts.byName[name]
	if !exists {
		return false
	}
	ts.tools = append(ts.tools[:idx], ts.tools[idx+1:]...)
	delete(ts.byName, name)
	for n, i := range ts.byName {
		if i > idx {
			ts.byName[n] = i - 1
		}
	}
	return true
}

// Tools returns the namespace's tools in registration order. The
// returned slice must not be mutated by callers.
func (ts *ToolSet) Tools() []*Tool { return ts.tools }

// Len reports how many tools are registered in this namespace.
func (ts *ToolSet) Len() int { return len(ts.tools) }

// Get looks up a tool by name within this namespace.
func (ts *ToolSet) Get(name string) (*Tool, bool) {
	idx, exists := ts.byName[name]
	if !exists {
		return nil, false
	}
	return ts.tools[idx], true
}
