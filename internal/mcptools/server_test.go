package mcptools

import (
	"context"
	"encoding/json"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, route string) *mcp.ClientSession {
	t.Helper()

	server := NewMCPServer(newTestService(t, route))
	st, ct := mcp.NewInMemoryTransports()

	ctx := context.Background()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})
	return session
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.NotNil(t, res.StructuredContent, "expected structured content")
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t, "math")

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"execute_plan", "list_agents", "refine", "route", "run_chain", "run_parallel"}, names)
}

func TestMCPRoute(t *testing.T) {
	session := setupServerClient(t, "math")

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "route",
		Arguments: RouteInput{Task: "what is 40+2?"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode[RouteOutput](t, res)
	assert.Equal(t, "math", out.Agent)
	assert.Equal(t, "42", out.Output)
}

func TestMCPRunParallel(t *testing.T) {
	session := setupServerClient(t, "math")

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "run_parallel",
		Arguments: RunParallelInput{Task: "look"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode[RunParallelOutput](t, res)
	assert.Len(t, out.Results, 2)
	assert.Equal(t, "all done", out.Synthesis)
}

func TestMCPPatternErrorIsToolError(t *testing.T) {
	session := setupServerClient(t, "nobody")

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "route",
		Arguments: RouteInput{Task: "?"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunHTTP_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunHTTP(ctx, NewMCPServer(newTestService(t, "math")), addr) }()

	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}
