package mcpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
)

func TestConnectionOpenFailsFastWithoutTransport(t *testing.T) {
	conn := newConnection(ServerSpec{Name: "broken"})
	conn.open(context.Background())

	require.Equal(t, StateFailed, conn.State())
	require.Error(t, conn.FailureReason())
	kind, ok := codeerr.KindOf(conn.FailureReason())
	require.True(t, ok)
	require.Equal(t, codeerr.KindConfigInvalid, kind)
	require.Empty(t, conn.Tools())
}

func TestConnectionAllowedHostsFromHttp(t *testing.T) {
	conn := newConnection(ServerSpec{
		Name: "search",
		Http: &HttpTransportSpec{URL: "https://api.example.com/mcp"},
	})
	require.Equal(t, []string{"api.example.com"}, conn.AllowedHosts())
}

func TestConnectionAllowedHostsOverride(t *testing.T) {
	conn := newConnection(ServerSpec{
		Name:         "search",
		Http:         &HttpTransportSpec{URL: "https://api.example.com/mcp"},
		AllowedHosts: []string{"override.example.com"},
	})
	require.Equal(t, []string{"override.example.com"}, conn.AllowedHosts())
}

func TestConnectionAllowedHostsStdioIsEmpty(t *testing.T) {
	conn := newConnection(ServerSpec{
		Name:  "local-tool",
		Stdio: &StdioTransportSpec{Command: "echo"},
	})
	require.Empty(t, conn.AllowedHosts())
}

func TestConnectionCallToolOnNotReadyFails(t *testing.T) {
	conn := newConnection(ServerSpec{Name: "pending"})
	_, err := conn.CallTool(context.Background(), "anything", nil)
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindMcpUnavailable, kind)
}

func TestManagerAddServersMarksBrokenSpecFailed(t *testing.T) {
	m := NewManager()
	m.AddServers(context.Background(), []ServerSpec{{Name: "broken"}})

	conn, ok := m.Connection("broken")
	require.True(t, ok)
	require.Equal(t, StateFailed, conn.State())
}

func TestManagerCallToolUnknownServer(t *testing.T) {
	m := NewManager()
	_, err := m.CallTool(context.Background(), "missing", "tool", nil)
	require.Error(t, err)
	kind, _ := codeerr.KindOf(err)
	require.Equal(t, codeerr.KindMcpUnavailable, kind)
}
