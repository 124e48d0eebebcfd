package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/registry"
)

func newBridgeServer(t *testing.T, facade *registry.Facade) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		s := New("sess-1", conn, facade)
		_ = s.Serve(context.Background())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialBridge(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/local-tools"
	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestBridgeRegisterToolThenExecuteDispatchesToClient(t *testing.T) {
	facade := registry.New()
	srv := newBridgeServer(t, facade)
	conn := dialBridge(t, srv)
	ctx := context.Background()

	regReq := envelope{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"1"`),
		Method:  "register_tool",
		Params:  mustMarshal(registerToolParams{Namespace: "Client", Name: "double"}),
	}
	data, _ := json.Marshal(regReq)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	_, resp, err := conn.Read(ctx)
	require.NoError(t, err)
	var regResp envelope
	require.NoError(t, json.Unmarshal(resp, &regResp))
	require.Nil(t, regResp.Error)

	execReq := envelope{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"2"`),
		Method:  "execute",
		Params:  mustMarshal(executeParams{Code: `async function run() { return await Client.double({n: 4}); }`}),
	}
	data, _ = json.Marshal(execReq)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	// The session should dispatch an execute_tool request to us; answer it.
	_, dispatchRaw, err := conn.Read(ctx)
	require.NoError(t, err)
	var dispatch envelope
	require.NoError(t, json.Unmarshal(dispatchRaw, &dispatch))
	require.Equal(t, "execute_tool", dispatch.Method)

	reply := envelope{JSONRPC: "2.0", ID: dispatch.ID, Result: mustMarshal(8)}
	replyData, _ := json.Marshal(reply)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, replyData))

	_, execRaw, err := conn.Read(ctx)
	require.NoError(t, err)
	var execResp envelope
	require.NoError(t, json.Unmarshal(execRaw, &execResp))
	require.Nil(t, execResp.Error)
}

func TestBridgeSecondExecuteWhileBusyFails(t *testing.T) {
	facade := registry.New()
	srv := newBridgeServer(t, facade)
	conn := dialBridge(t, srv)
	ctx := context.Background()

	send := func(id, method string, params any) {
		msg := envelope{JSONRPC: "2.0", ID: json.RawMessage(`"` + id + `"`), Method: method, Params: mustMarshal(params)}
		data, _ := json.Marshal(msg)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	}

	send("1", "register_tool", registerToolParams{Namespace: "Slow", Name: "wait"})
	_, _, err := conn.Read(ctx)
	require.NoError(t, err)

	send("2", "execute", executeParams{Code: `async function run() { return await Slow.wait({}); }`})

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, dispatchRaw, err := conn.Read(readCtx)
	require.NoError(t, err)
	var dispatch envelope
	require.NoError(t, json.Unmarshal(dispatchRaw, &dispatch))
	require.Equal(t, "execute_tool", dispatch.Method)

	send("3", "execute", executeParams{Code: `async function run() { return 1; }`})

	_, busyRaw, err := conn.Read(ctx)
	require.NoError(t, err)
	var busyResp envelope
	require.NoError(t, json.Unmarshal(busyRaw, &busyResp))
	require.NotNil(t, busyResp.Error)

	reply := envelope{JSONRPC: "2.0", ID: dispatch.ID, Result: mustMarshal(1)}
	replyData, _ := json.Marshal(reply)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, replyData))
}
