// Package codemode wires the Code-Mode facade into the MCP-compatible
// surface served at POST /mcp: one *mcp.Server built once at
// construction time, tools registered via mcp.AddTool, served through
// mcp.NewStreamableHTTPHandler mounted on a gin.RouterGroup.
package codemode

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
	"github.com/codemoderun/codemode/internal/infrastructure/metrics"
)

// Route registers and serves the three Code-Mode MCP tools.
type Route struct {
	facade      *registry.Facade
	server      *mcp.Server
	httpHandler http.Handler
}

// NewRoute builds the MCP server for facade and registers its three
// tools; add_callback/add_server are configuration-time-only
// operations, never exposed to an LLM client.
func NewRoute(facade *registry.Facade, name, version string) *Route {
	impl := &mcp.Implementation{Name: name, Version: version}
	server := mcp.NewServer(impl, nil)

	route := &Route{facade: facade, server: server}
	route.registerTools()
	route.httpHandler = mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
	return route
}

// Server returns the underlying *mcp.Server, for the --stdio variant
// to bind over &mcp.StdioTransport{} instead of HTTP.
func (r *Route) Server() *mcp.Server { return r.server }

type listFunctionsArgs struct{}

type functionEntryDTO struct {
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type listFunctionsResult struct {
	Functions []functionEntryDTO `json:"functions"`
	Code      string             `json:"code"`
}

type getFunctionDetailsArgs struct {
	Functions []string `json:"functions"`
}

type getFunctionDetailsResult struct {
	Code string `json:"code"`
}

type executeArgs struct {
	Code string `json:"code"`
}

func (r *Route) registerTools() {
	mcp.AddTool(r.server, &mcp.Tool{
		Name:        "list_functions",
		Description: "List every registered tool grouped by namespace, with short TypeScript-flavored call signatures.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ listFunctionsArgs) (*mcp.CallToolResult, listFunctionsResult, error) {
		entries, code := r.facade.ListFunctions()
		dtos := make([]functionEntryDTO, 0, len(entries))
		for _, e := range entries {
			dtos = append(dtos, functionEntryDTO{Namespace: e.ID.Namespace, Name: e.ID.Name, Description: e.Description})
		}
		metrics.RecordRequest("list_functions", "ok")
		return nil, listFunctionsResult{Functions: dtos, Code: code}, nil
	})

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        "get_function_details",
		Description: "Return detailed TypeScript declarations (input/output types) for the named functions, as \"Namespace.name\" strings.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input getFunctionDetailsArgs) (*mcp.CallToolResult, getFunctionDetailsResult, error) {
		ids := make([]toolmodel.FunctionId, 0, len(input.Functions))
		for _, s := range input.Functions {
			ids = append(ids, parseFunctionId(s))
		}
		code, err := r.facade.GetFunctionDetails(ids)
		if err != nil {
			metrics.RecordRequest("get_function_details", "error")
			return nil, getFunctionDetailsResult{}, err
		}
		metrics.RecordRequest("get_function_details", "ok")
		return nil, getFunctionDetailsResult{Code: code}, nil
	})

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        "execute",
		Description: "Run a script against the current tool registry inside an isolated sandbox and return its result plus captured stdout/stderr.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input executeArgs) (*mcp.CallToolResult, toolmodel.ExecuteOutput, error) {
		out := r.facade.Execute(ctx, toolmodel.ExecuteRequest{Code: input.Code})
		status := "ok"
		if !out.Success {
			status = "failure"
		}
		metrics.RecordRequest("execute", status)
		return nil, out, nil
	})
}

// RegisterRouter mounts POST /mcp under router.
func (r *Route) RegisterRouter(router *gin.RouterGroup) {
	router.POST("/mcp", func(c *gin.Context) {
		c.Request.Header.Set("Accept", "application/json, text/event-stream")
		r.httpHandler.ServeHTTP(c.Writer, c.Request)
	})
}

// parseFunctionId splits a "Namespace.name" wire identifier. A missing
// dot yields an empty namespace, which GetFunctionDetails will
// naturally reject as not-found.
func parseFunctionId(s string) toolmodel.FunctionId {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return toolmodel.FunctionId{Namespace: s[:i], Name: s[i+1:]}
		}
	}
	return toolmodel.FunctionId{Name: s}
}
