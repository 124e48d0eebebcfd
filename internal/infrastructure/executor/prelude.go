package executor

import (
	"sort"
	"strings"

	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// buildPrelude renders one object per namespace with a method per
// tool: an MCP-backed method resolves to callMCPTool, a
// callback-backed method resolves to invokeCallback. Namespaces are
// emitted in sorted order and tools in their registration order, so
// the prelude is deterministic across runs of the same snapshot.
func buildPrelude(namespaces map[string]*toolmodel.ToolSet) string {
	names := make([]string, 0, len(namespaces))
	for name := range namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		set := namespaces[name]
		b.WriteString("const ")
		b.WriteString(name)
		b.WriteString(" = {\n")
		for _, tool := range set.Tools() {
			b.WriteString("  ")
			b.WriteString(tool.ID.Name)
			b.WriteString(": async function(args) { return ")
			b.WriteString(dispatchExpr(tool))
			b.WriteString("; },\n")
		}
		b.WriteString("};\n")
	}
	return b.String()
}

func dispatchExpr(tool *toolmodel.Tool) string {
	switch tool.Kind {
	case toolmodel.KindMCP:
		return "await callMCPTool({name: " + quote(tool.ServerID) + ", tool: " + quote(tool.ID.Name) + ", arguments: args})"
	default:
		return "await invokeCallback(" + quote(tool.ID.String()) + ", args)"
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
