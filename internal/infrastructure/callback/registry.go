// Package callback holds the thread-safe FunctionId -> async function
// table the sandbox invokes host-side callbacks through. Registry is
// the only Table implementation: a bridge session does not keep a
// table of its own but adds one Func per client-owned tool to the
// facade's Registry, so native and client-bridged callbacks are
// dispatched through the same table.
package callback

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// Func is one callback implementation. It may genuinely be async on
// the caller's side (a bridged callback blocks on a round trip to a
// remote client); the registry itself never assumes synchronous
// completion.
type Func func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Table is the read/call surface the sandbox's host-op dispatcher
// uses. Registry satisfies it.
type Table interface {
	Has(id toolmodel.FunctionId) bool
	Call(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error)
}

// Registry is the default, process-lifetime callback table owned by
// the Code-Mode facade.
type Registry struct {
	mu    sync.RWMutex
	funcs map[toolmodel.FunctionId]Func
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[toolmodel.FunctionId]Func)}
}

// Add registers fn under id. It fails if id is already registered;
// callers must Remove first to replace an entry.
func (r *Registry) Add(id toolmodel.FunctionId, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[id]; exists {
		return codeerr.New(codeerr.KindDuplicateTool, "callback "+id.String()+" already registered")
	}
	r.funcs[id] = fn
	return nil
}

// Remove deletes id from the table, reporting whether it was present.
func (r *Registry) Remove(id toolmodel.FunctionId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[id]; !exists {
		return false
	}
	delete(r.funcs, id)
	return true
}

// Has answers in O(1) whether id is registered.
func (r *Registry) Has(id toolmodel.FunctionId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.funcs[id]
	return exists
}

// Call invokes the registered function for id. The caller's context
// governs cancellation; the registry itself never imposes a deadline.
func (r *Registry) Call(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	fn, exists := r.funcs[id]
	r.mu.RUnlock()
	if !exists {
		return nil, codeerr.New(codeerr.KindToolNotFound, "no callback registered for "+id.String())
	}
	result, err := fn(ctx, args)
	if err != nil {
		// A callback that already tagged its own Kind (a bridged
		// dispatch reporting Timeout/ClientDisconnected, say) keeps
		// that Kind; only a plain error gets the generic wrap.
		if _, ok := codeerr.KindOf(err); ok {
			return nil, err
		}
		return nil, codeerr.Wrap(codeerr.KindCallbackError, "callback "+id.String()+" failed", err)
	}
	return result, nil
}
