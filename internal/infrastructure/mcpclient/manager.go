package mcpclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
)

// DefaultInitDeadline bounds how long parallel bring-up of all
// configured servers may take before unstarted connections are marked
// Failed(timeout).
const DefaultInitDeadline = 30 * time.Second

// Manager owns the full set of upstream MCP connections for one
// Code-Mode facade instance.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewManager builds an empty manager; call AddServer/AddServers to
// bring connections up.
func NewManager() *Manager {
	return &Manager{connections: make(map[string]*Connection)}
}

// AddServers brings up every spec concurrently under one overall
// DefaultInitDeadline derived from ctx, using an errgroup fan-out. A
// server's failure never aborts the others.
func (m *Manager) AddServers(ctx context.Context, specs []ServerSpec) {
	deadline, cancel := context.WithTimeout(ctx, DefaultInitDeadline)
	defer cancel()

	group, groupCtx := errgroup.WithContext(deadline)
	conns := make([]*Connection, len(specs))
	for i, spec := range specs {
		i, spec := i, spec
		conn := newConnection(spec)
		conns[i] = conn
		group.Go(func() error {
			conn.open(groupCtx)
			return nil
		})
	}
	_ = group.Wait()

	m.mu.Lock()
	for _, conn := range conns {
		if conn.State() == StateConnecting {
			conn.fail(codeerr.New(codeerr.KindTimeout, "mcp server "+conn.Name+" did not initialize before deadline"))
		}
		m.connections[conn.Name] = conn
	}
	m.mu.Unlock()
}

// AddServer brings up a single server, used by add_server after the
// facade is already running.
func (m *Manager) AddServer(ctx context.Context, spec ServerSpec) *Connection {
	deadline, cancel := context.WithTimeout(ctx, DefaultInitDeadline)
	defer cancel()

	conn := newConnection(spec)
	conn.open(deadline)
	if conn.State() == StateConnecting {
		conn.fail(codeerr.New(codeerr.KindTimeout, "mcp server "+spec.Name+" did not initialize before deadline"))
	}

	m.mu.Lock()
	m.connections[spec.Name] = conn
	m.mu.Unlock()
	return conn
}

// Connection looks up a named server's connection.
func (m *Manager) Connection(name string) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[name]
	return conn, ok
}

// Connections returns a snapshot of every managed connection.
func (m *Manager) Connections() []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		out = append(out, conn)
	}
	return out
}

// AllowedHosts aggregates the network allow-list contributed by every
// Ready connection.
func (m *Manager) AllowedHosts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hosts []string
	for _, conn := range m.connections {
		if conn.State() == StateReady {
			hosts = append(hosts, conn.AllowedHosts()...)
		}
	}
	return hosts
}

// CallTool dispatches to the named server's connection.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	conn, ok := m.Connection(server)
	if !ok {
		return nil, codeerr.New(codeerr.KindMcpUnavailable, "mcp server "+server+" is not configured")
	}
	return conn.CallTool(ctx, tool, args)
}

// CloseAll closes every managed connection, used on facade shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.connections {
		_ = conn.Close()
	}
}
