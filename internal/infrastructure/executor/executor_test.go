package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/toolmodel"
	"github.com/codemoderun/codemode/internal/infrastructure/callback"
)

func TestBuildPreludeRendersCallbackDispatch(t *testing.T) {
	set := toolmodel.NewToolSet("Math", "")
	require.NoError(t, set.Add(toolmodel.NewCallbackTool("Math", "add", "", nil, nil)))

	prelude := buildPrelude(map[string]*toolmodel.ToolSet{"Math": set})
	require.Contains(t, prelude, "const Math = {")
	require.Contains(t, prelude, `invokeCallback("Math.add", args)`)
}

func TestBuildPreludeRendersMCPDispatch(t *testing.T) {
	set := toolmodel.NewToolSet("Github", "")
	require.NoError(t, set.Add(toolmodel.NewMCPTool("Github", "list_issues", "", nil, nil, "github-server")))

	prelude := buildPrelude(map[string]*toolmodel.ToolSet{"Github": set})
	require.Contains(t, prelude, `callMCPTool({name: "github-server", tool: "list_issues", arguments: args})`)
}

func TestExecutorRunsAgainstSnapshot(t *testing.T) {
	set := toolmodel.NewToolSet("Math", "")
	require.NoError(t, set.Add(toolmodel.NewCallbackTool("Math", "add", "", nil, nil)))

	registry := callback.NewRegistry()
	require.NoError(t, registry.Add(toolmodel.FunctionId{Namespace: "Math", Name: "add"},
		func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			var in struct{ A, B float64 }
			_ = json.Unmarshal(args, &in)
			sum, _ := json.Marshal(in.A + in.B)
			return sum, nil
		}))

	exec := New(nil)
	out := exec.Execute(context.Background(), Snapshot{
		Namespaces: map[string]*toolmodel.ToolSet{"Math": set},
		Callbacks:  registry,
	}, toolmodel.ExecuteRequest{
		Code: `async function run() { return await Math.add({A: 2, B: 3}); }`,
	})

	require.True(t, out.Success)
	require.EqualValues(t, 5, out.Value)
}

func TestExecutorCallbackOverlayHidesUnlistedTools(t *testing.T) {
	set := toolmodel.NewToolSet("Math", "")
	require.NoError(t, set.Add(toolmodel.NewCallbackTool("Math", "add", "", nil, nil)))
	require.NoError(t, set.Add(toolmodel.NewCallbackTool("Math", "subtract", "", nil, nil)))

	registry := callback.NewRegistry()
	echo := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage("1"), nil
	}
	require.NoError(t, registry.Add(toolmodel.FunctionId{Namespace: "Math", Name: "add"}, echo))
	require.NoError(t, registry.Add(toolmodel.FunctionId{Namespace: "Math", Name: "subtract"}, echo))

	exec := New(nil)
	snapshot := Snapshot{
		Namespaces: map[string]*toolmodel.ToolSet{"Math": set},
		Callbacks:  registry,
	}

	out := exec.Execute(context.Background(), snapshot, toolmodel.ExecuteRequest{
		Code:            `async function run() { return typeof Math.subtract; }`,
		CallbackOverlay: []toolmodel.FunctionId{{Namespace: "Math", Name: "add"}},
	})
	require.True(t, out.Success)
	require.Equal(t, "undefined", out.Value)

	out = exec.Execute(context.Background(), snapshot, toolmodel.ExecuteRequest{
		Code: `async function run() {
			try {
				return await invokeCallback("Math.subtract", {});
			} catch (e) {
				return e.code;
			}
		}`,
		CallbackOverlay: []toolmodel.FunctionId{{Namespace: "Math", Name: "add"}},
	})
	require.True(t, out.Success)
	require.Equal(t, "ToolNotFound", out.Value)
}
