package sandbox

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/dop251/goja"
)

// ProgramCache memoizes compiled goja.Program values keyed by source
// text. A goja.Program is reusable across many goja.Runtime instances,
// so caching it is the closest a pure-Go engine gets to loading a
// pre-built V8 snapshot: compilation happens once per distinct source,
// execution still gets a fresh isolate every time.
type ProgramCache struct {
	mu       sync.RWMutex
	programs map[string]*goja.Program
}

// NewProgramCache builds an empty cache. One instance is shared by the
// whole process; it never evicts, since the set of distinct prelude+
// script combinations a given facade sees is bounded by its own tool
// registry plus whatever distinct scripts an agent submits.
func NewProgramCache() *ProgramCache {
	return &ProgramCache{programs: make(map[string]*goja.Program)}
}

// Compile returns a cached *goja.Program for source, compiling and
// storing it on first request.
func (c *ProgramCache) Compile(name, source string) (*goja.Program, error) {
	key := cacheKey(source)

	c.mu.RLock()
	if program, ok := c.programs[key]; ok {
		c.mu.RUnlock()
		return program, nil
	}
	c.mu.RUnlock()

	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[key] = program
	c.mu.Unlock()
	return program, nil
}

func cacheKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
