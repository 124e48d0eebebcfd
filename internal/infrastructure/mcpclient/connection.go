package mcpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// State is one of a connection's lifecycle states, moving through
// open -> initialize -> list_tools.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is a live (or formerly live) link to one upstream MCP
// server. It is safe for concurrent use: CallTool may run while
// Ping or Close runs on another goroutine.
type Connection struct {
	Name string
	spec ServerSpec

	mu      sync.RWMutex
	state   State
	reason  error
	session *mcp.ClientSession
	tools   []*toolmodel.Tool

	breaker *circuitBreaker
}

func newConnection(spec ServerSpec) *Connection {
	return &Connection{
		Name:    spec.Name,
		spec:    spec,
		state:   StateConnecting,
		breaker: newCircuitBreaker(defaultCircuitBreakerConfig()),
	}
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// FailureReason is non-nil only when State() == StateFailed.
func (c *Connection) FailureReason() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

// Tools returns the tool set discovered at the Ready transition. Empty
// for any connection that never reached Ready.
func (c *Connection) Tools() []*toolmodel.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

// AllowedHosts reports the network allow-list entries this connection
// contributes: the Http endpoint's host, or none for a Stdio upstream.
func (c *Connection) AllowedHosts() []string {
	if len(c.spec.AllowedHosts) > 0 {
		return c.spec.AllowedHosts
	}
	if c.spec.Http == nil {
		return nil
	}
	u, err := url.Parse(c.spec.Http.URL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Hostname()}
}

// open runs the open -> initialize -> list_tools sequence. It never
// panics or returns an error to the caller: any failure is captured
// as a Failed transition so sibling connections keep initializing.
func (c *Connection) open(ctx context.Context) {
	session, err := c.connect(ctx)
	if err != nil {
		c.fail(err)
		return
	}

	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		c.fail(fmt.Errorf("list tools: %w", err))
		_ = session.Close()
		return
	}

	tools := make([]*toolmodel.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, toolmodel.NewMCPTool(c.Name, t.Name, t.Description, t.InputSchema, t.OutputSchema, c.Name))
	}

	c.mu.Lock()
	c.session = session
	c.tools = tools
	c.state = StateReady
	c.mu.Unlock()

	log.Info().Str("server", c.Name).Int("tools", len(tools)).Msg("mcp server ready")
}

func (c *Connection) connect(ctx context.Context) (*mcp.ClientSession, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "codemode", Version: "1.0.0"}, nil)

	switch {
	case c.spec.Http != nil:
		httpClient := &http.Client{Timeout: 30 * time.Second}
		if len(c.spec.Http.Headers) > 0 {
			httpClient.Transport = &headerTransport{headers: c.spec.Http.Headers, base: http.DefaultTransport}
		}
		transport := &mcp.StreamableClientTransport{
			Endpoint:             c.spec.Http.URL,
			HTTPClient:           httpClient,
			DisableStandaloneSSE: true,
		}
		return client.Connect(ctx, transport, nil)
	case c.spec.Stdio != nil:
		cmd := exec.CommandContext(ctx, c.spec.Stdio.Command, c.spec.Stdio.Args...)
		if len(c.spec.Stdio.Env) > 0 {
			cmd.Env = c.spec.Stdio.Env
		}
		transport := &mcp.CommandTransport{Command: cmd}
		return client.Connect(ctx, transport, nil)
	default:
		return nil, codeerr.New(codeerr.KindConfigInvalid, "mcp server "+c.Name+" has neither http nor stdio transport")
	}
}

func (c *Connection) fail(reason error) {
	c.mu.Lock()
	c.state = StateFailed
	c.reason = reason
	c.mu.Unlock()
	log.Warn().Err(reason).Str("server", c.Name).Msg("mcp server failed to initialize")
}

// CallTool invokes name on this connection, preferring structured
// output over the text-content form when the tool declares an output
// schema. A connection that is not Ready returns McpUnavailable
// immediately without retry.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	c.mu.RLock()
	session, state := c.session, c.state
	c.mu.RUnlock()

	if state != StateReady || session == nil {
		return nil, codeerr.New(codeerr.KindMcpUnavailable, "mcp server "+c.Name+" is not ready")
	}

	if !c.breaker.allow() {
		return nil, codeerr.New(codeerr.KindMcpUnavailable, "mcp server "+c.Name+" circuit breaker is open")
	}

	result, err := withRetry(ctx, defaultRetryConfig(), c.Name+"."+name, func() (*mcp.CallToolResult, error) {
		return session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	})
	c.breaker.recordResult(c.Name, err)
	if err != nil {
		return nil, codeerr.Wrap(codeerr.KindMcpUnavailable, "call "+c.Name+"."+name, err)
	}
	if result.IsError {
		return nil, codeerr.New(codeerr.KindCallbackError, "tool "+name+" on "+c.Name+" reported an error: "+extractText(result))
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	return extractText(result), nil
}

func extractText(result *mcp.CallToolResult) string {
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}

// Ping checks liveness without altering the Ready/Failed state; a
// failing ping is surfaced but does not itself transition the
// connection. Used for health reporting only.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return codeerr.New(codeerr.KindMcpUnavailable, "mcp server "+c.Name+" has no active session")
	}
	return session.Ping(ctx, &mcp.PingParams{})
}

// Close releases the underlying session, if any.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}

// headerTransport injects static headers (already-resolved auth
// snapshot values) onto every outbound request.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, v := range t.headers {
		cloned.Header.Set(k, v)
	}
	return t.base.RoundTrip(cloned)
}
