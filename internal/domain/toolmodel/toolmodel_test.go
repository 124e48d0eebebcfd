package toolmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionIdString(t *testing.T) {
	id := FunctionId{Namespace: "Math", Name: "add"}
	require.Equal(t, "Math.add", id.String())
}

func TestToolSetAddDuplicateRejected(t *testing.T) {
	ts := NewToolSet("Math", "arithmetic helpers")
	require.NoError(t, ts.Add(NewCallbackTool("Math", "add", "", nil, nil)))

	err := ts.Add(NewCallbackTool("Math", "add", "", nil, nil))
	require.Error(t, err)

	var dup *ErrDuplicateToolName
	require.ErrorAs(t, err, &dup)
	require.Equal(t, 1, ts.Len())
}

func TestToolSetRemoveReindexes(t *testing.T) {
	ts := NewToolSet("Math", "")
	require.NoError(t, ts.Add(NewCallbackTool("Math", "add", "", nil, nil)))
	require.NoError(t, ts.Add(NewCallbackTool("Math", "sub", "", nil, nil)))
	require.NoError(t, ts.Add(NewCallbackTool("Math", "mul", "", nil, nil)))

	require.True(t, ts.Remove("add"))
	require.False(t, ts.Remove("add"))

	tool, ok := ts.Get("mul")
	require.True(t, ok)
	require.Equal(t, "mul", tool.ID.Name)
	require.Equal(t, 2, ts.Len())

	names := make([]string, 0, ts.Len())
	for _, tl := range ts.Tools() {
		names = append(names, tl.ID.Name)
	}
	require.Equal(t, []string{"sub", "mul"}, names)
}

func TestNewMCPToolSetsServerID(t *testing.T) {
	tool := NewMCPTool("Github", "list_issues", "list issues", nil, nil, "github-server")
	require.Equal(t, KindMCP, tool.Kind)
	require.Equal(t, "github-server", tool.ServerID)
	require.Equal(t, "mcp", tool.Kind.String())
}
