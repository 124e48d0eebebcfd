package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

func addFunc(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in struct{ A, B float64 }
	_ = json.Unmarshal(args, &in)
	out, _ := json.Marshal(in.A + in.B)
	return out, nil
}

func TestFacadeAddCallbackAndExecute(t *testing.T) {
	f := New()
	id := toolmodel.FunctionId{Namespace: "Math", Name: "add"}
	require.NoError(t, f.AddCallback(id, "adds two numbers", nil, nil, addFunc))

	entries, code := f.ListFunctions()
	require.Len(t, entries, 1)
	require.Contains(t, code, "Math_add")

	out := f.Execute(context.Background(), toolmodel.ExecuteRequest{
		Code: `async function run() { return await Math.add({A: 4, B: 5}); }`,
	})
	require.True(t, out.Success)
	require.EqualValues(t, 9, out.Value)
}

func TestFacadeAddCallbackDuplicateRejected(t *testing.T) {
	f := New()
	id := toolmodel.FunctionId{Namespace: "Math", Name: "add"}
	require.NoError(t, f.AddCallback(id, "", nil, nil, addFunc))

	err := f.AddCallback(id, "", nil, nil, addFunc)
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindDuplicateTool, kind)
}

func TestFacadeGetFunctionDetailsUnknownID(t *testing.T) {
	f := New()
	_, err := f.GetFunctionDetails([]toolmodel.FunctionId{{Namespace: "X", Name: "y"}})
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindToolNotFound, kind)
}

func TestFacadeExecuteSurvivesUnknownTool(t *testing.T) {
	f := New()
	out := f.Execute(context.Background(), toolmodel.ExecuteRequest{
		Code: `async function run() {
			try {
				await invokeCallback("Missing.fn", {});
				return "reached";
			} catch (e) {
				return e.code;
			}
		}`,
	})
	require.True(t, out.Success)
	require.Equal(t, string(codeerr.KindToolNotFound), out.Value)
}
