package sandbox

import (
	"strings"
	"sync"
)

// Diagnostic is one advisory finding from TypeChecker.Check, an
// optional, secondary path separate from Execute.
type Diagnostic struct {
	Message string
	Line    int
}

// TypeChecker runs a lightweight, advisory syntax pass over a
// script's source. It deliberately stops short of embedding a full
// TypeScript compiler: it runs the same goja parser Execute itself
// uses to surface syntax errors plus one structural lint (a missing
// async function run), and leaves real type inference to the agent
// authoring the script. Execute does not call it; it is advisory only.
type TypeChecker struct {
	mu       sync.Mutex
	programs *ProgramCache
}

// NewTypeChecker builds a checker backed by its own program cache,
// separate from the one Execute uses: the type-check path gets its
// own isolate snapshot with no network or host ops enabled.
func NewTypeChecker() *TypeChecker {
	return &TypeChecker{programs: NewProgramCache()}
}

// Check parses prelude+code as a standalone program and reports
// syntax diagnostics plus the one structural requirement Execute
// depends on: the presence of an async function named run.
func (c *TypeChecker) Check(prelude, code string) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	source := assembleSource(prelude, code)
	var diagnostics []Diagnostic

	if _, err := c.programs.Compile("typecheck.js", source); err != nil {
		diagnostics = append(diagnostics, Diagnostic{Message: err.Error()})
		return diagnostics
	}

	if !strings.Contains(code, "async function run") && !strings.Contains(code, "async function run(") {
		diagnostics = append(diagnostics, Diagnostic{Message: "script does not define an async function run()"})
	}

	return diagnostics
}
