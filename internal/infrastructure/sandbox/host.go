package sandbox

import (
	"context"
	"encoding/json"

	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// Host is the set of operations a running script may trigger outside
// its own isolate. The executor supplies an implementation backed by
// the live tool registry snapshot for one execute call; the sandbox
// package itself never reaches into MCP or callback internals
// directly.
type Host interface {
	// CallMCPTool dispatches to a named server's tool, matching the
	// {name, tool, arguments} shape callMCPTool receives from JS.
	CallMCPTool(ctx context.Context, server, tool string, args map[string]any) (any, error)
	// InvokeCallback dispatches to a registered callback, either the
	// facade's default table or a session's bridged overlay.
	InvokeCallback(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error)
}
