package toolmodel

// ExecuteRequest is the input to one script run. CallbackOverlay, when
// non-empty, scopes which callback-backed tools this one call may see
// and invoke: any callback tool whose id isn't listed is dropped from
// the generated namespace objects and rejected if the script still
// manages to call it directly. MCP-backed tools are never affected by
// the overlay. An empty overlay means no restriction: every
// registered tool, callback or MCP, is visible.
type ExecuteRequest struct {
	Code            string
	CallbackOverlay []FunctionId
	// Timeout is the optional per-execute deadline; zero means no
	// deadline.
	Timeout int64 // nanoseconds, kept primitive so this package stays dependency-free
}

// ExecuteError is the structured shape surfaced on a failed run:
// either {message, stack} for a thrown exception or {kind: Timeout}
// once the sandbox is terminated for running too long.
type ExecuteError struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// ExecuteOutput is the result of one script run. Exactly one of
// Value/Error is meaningful, gated by Success.
type ExecuteOutput struct {
	Success bool          `json:"success"`
	Value   any           `json:"value,omitempty"`
	Error   *ExecuteError `json:"error,omitempty"`
	Stdout  []string      `json:"stdout"`
	Stderr  []string      `json:"stderr"`
}
