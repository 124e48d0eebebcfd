// Package bridge implements the client-bridge surface reached through
// GET /local-tools: one Session per accepted websocket connection,
// speaking a JSON-RPC 2.0 envelope as one message per websocket text
// frame. register_tool and execute are each handled on their own
// goroutine so the read loop keeps routing replies; execute_tool
// dispatch-back uses a request id, a response channel, and a
// pending-table to correlate requests and responses flowing
// server→client instead of client→server.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/registry"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// DispatchTimeout bounds how long the facade waits for a client to
// answer one execute_tool dispatch.
const DispatchTimeout = 30 * time.Second

// envelope is the JSON-RPC 2.0 frame both directions use.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Session owns one client-bridge connection: the set of tools it
// registered (removed from the facade on close), and the pending table
// for in-flight execute_tool dispatches.
type Session struct {
	id     string
	conn   *websocket.Conn
	facade *registry.Facade

	mu        sync.Mutex
	pending   map[string]chan envelope
	nextID    uint64
	executing int32 // guards only one execute per session in flight

	registeredMu sync.Mutex
	registered   []toolmodel.FunctionId
}

// New wraps an already-accepted websocket connection as a bridge
// session.
func New(id string, conn *websocket.Conn, facade *registry.Facade) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		facade:  facade,
		pending: make(map[string]chan envelope),
	}
}

// Serve reads frames until the connection closes or ctx is canceled,
// handing each register_tool/execute request to its own goroutine and
// routing execute_tool
// replies to their waiter. It always cleans up the session's
// registered tools before returning.
func (s *Session) Serve(ctx context.Context) error {
	defer s.cleanup()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			s.failPending(err)
			return err
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Method == "" {
			// A response to a server-initiated execute_tool dispatch.
			s.routeResponse(msg)
			continue
		}

		go s.handleRequest(ctx, msg)
	}
}

func (s *Session) handleRequest(ctx context.Context, msg envelope) {
	switch msg.Method {
	case "register_tool":
		s.handleRegisterTool(ctx, msg)
	case "execute":
		s.handleExecute(ctx, msg)
	default:
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32601, Message: "unknown method " + msg.Method})
	}
}

type registerToolParams struct {
	Namespace    string          `json:"namespace"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

func (s *Session) handleRegisterTool(ctx context.Context, msg envelope) {
	var p registerToolParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32602, Message: "invalid register_tool params"})
		return
	}

	input, err := decodeSchema(p.InputSchema)
	if err != nil {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32602, Message: err.Error()})
		return
	}
	output, err := decodeSchema(p.OutputSchema)
	if err != nil {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32602, Message: err.Error()})
		return
	}

	id := toolmodel.FunctionId{Namespace: p.Namespace, Name: p.Name}
	if err := s.facade.AddCallback(id, p.Description, input, output, s.dispatchCallback(id)); err != nil {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32000, Message: err.Error()})
		return
	}

	s.registeredMu.Lock()
	s.registered = append(s.registered, id)
	s.registeredMu.Unlock()

	s.reply(ctx, msg.ID, mustMarshal(map[string]bool{"ok": true}), nil)
}

type executeParams struct {
	Code string `json:"code"`
}

func (s *Session) handleExecute(ctx context.Context, msg envelope) {
	if !atomic.CompareAndSwapInt32(&s.executing, 0, 1) {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32001, Message: string(codeerr.KindBusySession)})
		return
	}
	defer atomic.StoreInt32(&s.executing, 0)

	var p executeParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		s.reply(ctx, msg.ID, nil, &rpcError{Code: -32602, Message: "invalid execute params"})
		return
	}

	s.registeredMu.Lock()
	overlay := append([]toolmodel.FunctionId(nil), s.registered...)
	s.registeredMu.Unlock()

	out := s.facade.Execute(ctx, toolmodel.ExecuteRequest{Code: p.Code, CallbackOverlay: overlay})
	s.reply(ctx, msg.ID, mustMarshal(out), nil)
}

// dispatchCallback builds the callback.Func that routes a sandbox call
// for id back to this session's client over execute_tool.
func (s *Session) dispatchCallback(id toolmodel.FunctionId) func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		reqID := s.newRequestID()
		ch := make(chan envelope, 1)
		s.mu.Lock()
		s.pending[reqID] = ch
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.pending, reqID)
			s.mu.Unlock()
		}()

		params, err := json.Marshal(map[string]any{"name": id.String(), "arguments": args})
		if err != nil {
			return nil, codeerr.Wrap(codeerr.KindCallbackError, "marshal execute_tool params", err)
		}

		dispatch := envelope{
			JSONRPC: "2.0",
			ID:      json.RawMessage(strconv.Quote(reqID)),
			Method:  "execute_tool",
			Params:  params,
		}
		data, err := json.Marshal(dispatch)
		if err != nil {
			return nil, codeerr.Wrap(codeerr.KindCallbackError, "marshal execute_tool envelope", err)
		}
		if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
			return nil, codeerr.Wrap(codeerr.KindClientDisconnected, "write execute_tool", err)
		}

		timer := time.NewTimer(DispatchTimeout)
		defer timer.Stop()

		select {
		case resp, ok := <-ch:
			if !ok {
				return nil, codeerr.New(codeerr.KindClientDisconnected, "session closed before response")
			}
			if resp.Error != nil {
				return nil, codeerr.New(codeerr.KindCallbackError, resp.Error.Message)
			}
			return json.RawMessage(resp.Result), nil
		case <-timer.C:
			return nil, codeerr.New(codeerr.KindTimeout, "execute_tool dispatch timed out")
		case <-ctx.Done():
			return nil, codeerr.Wrap(codeerr.KindTimeout, "execute_tool dispatch canceled", ctx.Err())
		}
	}
}

func (s *Session) routeResponse(msg envelope) {
	var id string
	_ = json.Unmarshal(msg.ID, &id)

	s.mu.Lock()
	ch, ok := s.pending[id]
	s.mu.Unlock()
	if ok {
		ch <- msg
	}
}

// failPending fails every in-flight dispatch once the connection
// drops, so waiters don't block until DispatchTimeout.
func (s *Session) failPending(_ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

func (s *Session) cleanup() {
	s.registeredMu.Lock()
	ids := s.registered
	s.registeredMu.Unlock()
	s.facade.RemoveFunctions(ids)
}

func (s *Session) reply(ctx context.Context, id json.RawMessage, result json.RawMessage, rpcErr *rpcError) {
	resp := envelope{JSONRPC: "2.0", ID: id, Result: result, Error: rpcErr}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Session) newRequestID() string {
	n := atomic.AddUint64(&s.nextID, 1)
	return fmt.Sprintf("%s-%d", s.id, n)
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
