// Package stdio runs the same *mcp.Server the HTTP surface exposes
// over the process's standard input/output instead, for the --stdio
// CLI flag. All logging in this mode is redirected to stderr by the
// caller before Run is ever invoked, since stdout carries the
// JSON-RPC wire protocol exclusively.
package stdio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Run serves server over stdin/stdout until ctx is canceled or the
// transport closes.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// EmitConfigError writes exactly one JSON-RPC 2.0 error frame to out
// (stdout in practice) describing a fatal configuration failure, so a
// bad config fails loudly instead of the process exiting silently.
func EmitConfigError(out io.Writer, err error) error {
	frame := map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error": map[string]any{
			"code":    -32000,
			"message": fmt.Sprintf("configuration error: %v", err),
		},
	}
	data, marshalErr := json.Marshal(frame)
	if marshalErr != nil {
		return marshalErr
	}
	data = append(data, '\n')
	_, writeErr := out.Write(data)
	return writeErr
}
