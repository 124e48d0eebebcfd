package sandbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

type fakeHost struct {
	callTool func(ctx context.Context, server, tool string, args map[string]any) (any, error)
	callback func(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error)
}

func (f *fakeHost) CallMCPTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	return f.callTool(ctx, server, tool, args)
}

func (f *fakeHost) InvokeCallback(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error) {
	return f.callback(ctx, id, args)
}

func TestExecuteSimpleReturnValue(t *testing.T) {
	out := Execute(context.Background(), Options{
		Code: `async function run() { return 1 + 2; }`,
	})
	require.True(t, out.Success)
	require.Equal(t, int64(3), toInt(t, out.Value))
}

func TestExecuteStdoutOrderingPreserved(t *testing.T) {
	out := Execute(context.Background(), Options{
		Code: `async function run() {
			console.log("first");
			console.log("second");
			console.error("oops");
			return null;
		}`,
	})
	require.True(t, out.Success)
	require.Equal(t, []string{"first", "second"}, out.Stdout)
	require.Equal(t, []string{"oops"}, out.Stderr)
}

func TestExecuteThrowIsCapturedAsFailure(t *testing.T) {
	out := Execute(context.Background(), Options{
		Code: `async function run() { throw new Error("boom"); }`,
	})
	require.False(t, out.Success)
	require.NotNil(t, out.Error)
	require.Equal(t, "boom", out.Error.Message)
}

func TestExecuteCallbackDispatch(t *testing.T) {
	host := &fakeHost{
		callback: func(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error) {
			require.Equal(t, "Math.add", id.String())
			return json.RawMessage(`42`), nil
		},
	}
	out := Execute(context.Background(), Options{
		Host: host,
		Code: `async function run() {
			return await invokeCallback("Math.add", {a: 1, b: 2});
		}`,
	})
	require.True(t, out.Success)
	require.Equal(t, int64(42), toInt(t, out.Value))
}

func TestExecuteMCPToolDispatch(t *testing.T) {
	host := &fakeHost{
		callTool: func(ctx context.Context, server, tool string, args map[string]any) (any, error) {
			require.Equal(t, "github", server)
			require.Equal(t, "list_issues", tool)
			return map[string]any{"count": 3}, nil
		},
	}
	out := Execute(context.Background(), Options{
		Host: host,
		Code: `async function run() {
			const result = await callMCPTool({name: "github", tool: "list_issues", arguments: {}});
			return result.count;
		}`,
	})
	require.True(t, out.Success)
	require.Equal(t, int64(3), toInt(t, out.Value))
}

func TestExecuteFetchBlocksDisallowedHost(t *testing.T) {
	out := Execute(context.Background(), Options{
		AllowedHosts: []string{"allowed.example.com"},
		Code: `async function run() {
			try {
				await fetch("https://blocked.example.com/data");
				return "reached";
			} catch (e) {
				return e.code;
			}
		}`,
	})
	require.True(t, out.Success)
	require.Equal(t, "HostBlocked", out.Value)
}

func TestExecuteTimeout(t *testing.T) {
	out := Execute(context.Background(), Options{
		Timeout: 20 * time.Millisecond,
		Host: &fakeHost{
			callback: func(ctx context.Context, id toolmodel.FunctionId, args json.RawMessage) (json.RawMessage, error) {
				time.Sleep(200 * time.Millisecond)
				return json.RawMessage(`1`), nil
			},
		},
		Code: `async function run() {
			return await invokeCallback("Slow.op", {});
		}`,
	})
	require.False(t, out.Success)
	require.Equal(t, "Timeout", out.Error.Kind)
}

func toInt(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		t.Fatalf("expected numeric value, got %T (%v)", v, v)
		return 0
	}
}
