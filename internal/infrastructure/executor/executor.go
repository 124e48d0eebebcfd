// Package executor assembles the prelude for one registry snapshot,
// wraps the user's script, and drives a sandbox.Runtime to completion.
// It is a composition root that borrows already-live connections and
// a callback table rather than owning either.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
	"github.com/codemoderun/codemode/internal/infrastructure/callback"
	"github.com/codemoderun/codemode/internal/infrastructure/mcpclient"
	"github.com/codemoderun/codemode/internal/infrastructure/sandbox"
)

// Snapshot is the immutable view of the registry an execute call
// borrows. Namespaces is value-copied per call; MCP and Callbacks are
// borrowed pointers since their own internals are already safe for
// concurrent use.
type Snapshot struct {
	Namespaces   map[string]*toolmodel.ToolSet
	MCP          *mcpclient.Manager
	Callbacks    callback.Table
	AllowedHosts []string
}

// execJob is one queued execute: a task paired with a oneshot
// responder channel, run against an in-process buffered job queue.
type execJob struct {
	ctx      context.Context
	snapshot Snapshot
	req      toolmodel.ExecuteRequest
	resp     chan toolmodel.ExecuteOutput
}

// jobQueueDepth bounds how many executes may wait for the dedicated
// sandbox worker before Execute itself starts blocking its caller.
const jobQueueDepth = 64

// Executor runs scripts against successive snapshots. One Executor is
// shared process-wide; a single dedicated worker goroutine drains its
// job queue, serializing sandbox executions against a shared resource:
// the process's CPU/heap budget for running untrusted script code.
type Executor struct {
	Programs *sandbox.ProgramCache
	jobs     chan execJob
}

// New builds an Executor backed by programs, or a fresh cache if nil,
// and starts its dedicated worker.
func New(programs *sandbox.ProgramCache) *Executor {
	if programs == nil {
		programs = sandbox.NewProgramCache()
	}
	e := &Executor{Programs: programs, jobs: make(chan execJob, jobQueueDepth)}
	go e.worker()
	return e
}

// worker pulls execJob values off the queue for the lifetime of the
// process; Executor is never torn down mid-run so it is never closed.
func (e *Executor) worker() {
	for job := range e.jobs {
		job.resp <- e.run(job.ctx, job.snapshot, job.req)
	}
}

// Execute enqueues req and blocks until the dedicated worker replies
// on its oneshot responder. Concurrent callers are safe: each gets its
// own response channel, and the snapshot each job carries is already
// immutable.
func (e *Executor) Execute(ctx context.Context, snapshot Snapshot, req toolmodel.ExecuteRequest) toolmodel.ExecuteOutput {
	resp := make(chan toolmodel.ExecuteOutput, 1)
	e.jobs <- execJob{ctx: ctx, snapshot: snapshot, req: req, resp: resp}
	return <-resp
}

// run performs the actual prelude assembly and sandbox execution for
// one job. When req.CallbackOverlay is non-empty, it scopes which
// callback-backed tools this one call can see and invoke: the
// generated prelude omits any callback tool not
// named in the overlay, and invokeCallback itself rejects a call to
// one of those ids even if the script obtains the raw id some other
// way. MCP-backed tools are never affected; the overlay only narrows
// the caller-supplied callback table (e.g. a bridge session scoping
// a script down to just the tools it registered, never another
// session's).
func (e *Executor) run(ctx context.Context, snapshot Snapshot, req toolmodel.ExecuteRequest) toolmodel.ExecuteOutput {
	var allow map[toolmodel.FunctionId]bool
	if len(req.CallbackOverlay) > 0 {
		allow = make(map[toolmodel.FunctionId]bool, len(req.CallbackOverlay))
		for _, id := range req.CallbackOverlay {
			allow[id] = true
		}
		snapshot.Namespaces = filterNamespaces(snapshot.Namespaces, allow)
	}

	prelude := buildPrelude(snapshot.Namespaces)
	host := &snapshotHost{snapshot: snapshot, callbackAllow: allow}

	var timeout time.Duration
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout)
	}

	return sandbox.Execute(ctx, sandbox.Options{
		Prelude:      prelude,
		Code:         req.Code,
		AllowedHosts: snapshot.AllowedHosts,
		Host:         host,
		Timeout:      timeout,
		Programs:     e.Programs,
	})
}

// filterNamespaces returns a copy of namespaces where every
// callback-backed tool not present in allow has been dropped; MCP-backed
// tools always pass through. A namespace left with no tools is omitted
// entirely so it doesn't render as an empty object in the prelude.
func filterNamespaces(namespaces map[string]*toolmodel.ToolSet, allow map[toolmodel.FunctionId]bool) map[string]*toolmodel.ToolSet {
	out := make(map[string]*toolmodel.ToolSet, len(namespaces))
	for name, set := range namespaces {
		filtered := toolmodel.NewToolSet(set.Namespace, set.Description)
		for _, tool := range set.Tools() {
			if tool.Kind == toolmodel.KindMCP || allow[tool.ID] {
				_ = filtered.Add(tool)
			}
		}
		if filtered.Len() > 0 {
			out[name] = filtered
		}
	}
	return out
}

// snapshotHost adapts one Snapshot into sandbox.Host, routing a
// callMCPTool/invokeCallback dispatch to whichever half of the
// snapshot it names.
type snapshotHost struct {
	snapshot      Snapshot
	callbackAllow map[toolmodel.FunctionId]bool
}

func (h *snapshotHost) CallMCPTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	return h.snapshot.MCP.CallTool(ctx, server, tool, args)
}

func (h *snapshotHost) InvokeCallback(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error) {
	if h.callbackAllow != nil && !h.callbackAllow[id] {
		return nil, codeerr.New(codeerr.KindToolNotFound, "no callback registered for "+id.String())
	}
	return h.snapshot.Callbacks.Call(ctx, id, args)
}
