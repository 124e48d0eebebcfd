// Package registry implements the Code-Mode facade: the single
// composition root that owns every namespace's ToolSet, the set of
// MCP connections, and the default callback table, and turns that
// state into an immutable snapshot for each execute.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/codegen"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
	"github.com/codemoderun/codemode/internal/infrastructure/callback"
	"github.com/codemoderun/codemode/internal/infrastructure/executor"
	"github.com/codemoderun/codemode/internal/infrastructure/mcpclient"
)

// Facade is the public surface: add_callback, add_server, add_servers,
// list_functions, get_function_details, execute.
type Facade struct {
	mu         sync.RWMutex
	namespaces map[string]*toolmodel.ToolSet
	ids        map[toolmodel.FunctionId]struct{}
	mcp        *mcpclient.Manager
	callbacks  *callback.Registry
	exec       *executor.Executor
}

// New builds an empty facade ready to receive add_callback/add_server
// calls.
func New() *Facade {
	return &Facade{
		namespaces: make(map[string]*toolmodel.ToolSet),
		ids:        make(map[toolmodel.FunctionId]struct{}),
		mcp:        mcpclient.NewManager(),
		callbacks:  callback.NewRegistry(),
		exec:       executor.New(nil),
	}
}

// AddCallback registers one callback-backed tool. Schema dereferencing
// happens immediately so a cyclic/unresolved $ref rejects registration
// before the tool is ever visible.
func (f *Facade) AddCallback(id toolmodel.FunctionId, description string, input, output *jsonschema.Schema, fn callback.Func) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.ids[id]; exists {
		return codeerr.New(codeerr.KindDuplicateTool, "function "+id.String()+" already registered")
	}

	tool := toolmodel.NewCallbackTool(id.Namespace, id.Name, description, input, output)
	if err := codegen.Annotate(tool); err != nil {
		return err
	}
	if err := f.callbacks.Add(id, fn); err != nil {
		return err
	}

	set, ok := f.namespaces[id.Namespace]
	if !ok {
		set = toolmodel.NewToolSet(id.Namespace, "")
		f.namespaces[id.Namespace] = set
	}
	if err := set.Add(tool); err != nil {
		f.callbacks.Remove(id)
		return err
	}
	f.ids[id] = struct{}{}
	return nil
}

// AddServer brings up one MCP upstream and registers its tools under
// a namespace named after the server. It never blocks longer than
// mcpclient.DefaultInitDeadline; a Failed connection simply
// contributes no tools.
func (f *Facade) AddServer(ctx context.Context, spec mcpclient.ServerSpec) error {
	conn := f.mcp.AddServer(ctx, spec)
	return f.absorbConnection(conn)
}

// AddServers brings up every spec concurrently.
func (f *Facade) AddServers(ctx context.Context, specs []mcpclient.ServerSpec) error {
	f.mcp.AddServers(ctx, specs)
	for _, spec := range specs {
		conn, ok := f.mcp.Connection(spec.Name)
		if !ok {
			continue
		}
		if err := f.absorbConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

func (f *Facade) absorbConnection(conn *mcpclient.Connection) error {
	if conn.State() != mcpclient.StateReady {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	set, ok := f.namespaces[conn.Name]
	if !ok {
		set = toolmodel.NewToolSet(conn.Name, "")
		f.namespaces[conn.Name] = set
	}
	for _, tool := range conn.Tools() {
		if _, exists := f.ids[tool.ID]; exists {
			continue
		}
		if err := codegen.Annotate(tool); err != nil {
			return err
		}
		if err := set.Add(tool); err != nil {
			continue
		}
		f.ids[tool.ID] = struct{}{}
	}
	return nil
}

// RemoveFunctions deletes the given tools from their namespaces and
// the callback table. Used when a bridge session closes and its
// client-owned tools must disappear.
func (f *Facade) RemoveFunctions(ids []toolmodel.FunctionId) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		if set, ok := f.namespaces[id.Namespace]; ok {
			set.Remove(id.Name)
		}
		f.callbacks.Remove(id)
		delete(f.ids, id)
	}
}

// FunctionEntry is one list_functions row.
type FunctionEntry struct {
	ID          toolmodel.FunctionId
	Description string
}

// ListFunctions returns every registered tool grouped by namespace
// plus the short-signature declarations for all of them. A Failed
// upstream's tools were never absorbed, so they are naturally omitted
// here.
func (f *Facade) ListFunctions() ([]FunctionEntry, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := sortedNamespaceNames(f.namespaces)
	var entries []FunctionEntry
	var b declarationBuilder
	for _, name := range names {
		set := f.namespaces[name]
		for _, tool := range set.Tools() {
			entries = append(entries, FunctionEntry{ID: tool.ID, Description: tool.Description})
			b.addShort(tool)
		}
	}
	return entries, b.String()
}

// GetFunctionDetails returns the detailed declarations for exactly the
// requested ids, failing with ToolNotFound if any id is unknown.
func (f *Facade) GetFunctionDetails(ids []toolmodel.FunctionId) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var b declarationBuilder
	for _, id := range ids {
		set, ok := f.namespaces[id.Namespace]
		if !ok {
			return "", codeerr.New(codeerr.KindToolNotFound, "no such function "+id.String())
		}
		tool, ok := set.Get(id.Name)
		if !ok {
			return "", codeerr.New(codeerr.KindToolNotFound, "no such function "+id.String())
		}
		b.addDetailed(tool)
	}
	return b.String(), nil
}

// Execute runs req against a fresh, immutable snapshot of the current
// registry state. Concurrent executes are safe: each gets its own
// snapshot.
func (f *Facade) Execute(ctx context.Context, req toolmodel.ExecuteRequest) toolmodel.ExecuteOutput {
	snapshot := f.snapshot()
	return f.exec.Execute(ctx, snapshot, req)
}

func (f *Facade) snapshot() executor.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	namespaces := make(map[string]*toolmodel.ToolSet, len(f.namespaces))
	for name, set := range f.namespaces {
		copied := toolmodel.NewToolSet(set.Namespace, set.Description)
		for _, tool := range set.Tools() {
			_ = copied.Add(tool)
		}
		namespaces[name] = copied
	}

	return executor.Snapshot{
		Namespaces:   namespaces,
		MCP:          f.mcp,
		Callbacks:    f.callbacks,
		AllowedHosts: f.mcp.AllowedHosts(),
	}
}

// Close releases every MCP connection the facade owns.
func (f *Facade) Close() {
	f.mcp.CloseAll()
}

func sortedNamespaceNames(namespaces map[string]*toolmodel.ToolSet) []string {
	names := make([]string, 0, len(namespaces))
	for name := range namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
