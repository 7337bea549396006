package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients. It is set by the linker at build time.
var Version = "dev"

// NewMCPServer creates an MCP server with the orchestration tools registered.
func NewMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "agentflow",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "route",
		Description: "Classify a request and hand it to the single best-suited agent. Returns that agent's answer.",
	}, svc.Route)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute_plan",
		Description: "Decompose a request into typed subtasks, run each on a matching worker in order, and synthesize one answer. Failed subtasks are reported, not fatal.",
	}, svc.ExecutePlan)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_parallel",
		Description: "Run independent specialists concurrently on the same request, wait for all of them, and synthesize their findings.",
	}, svc.RunParallel)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refine",
		Description: "Generate a candidate and revise it against an evaluator checklist until it is approved or the attempt budget runs out.",
	}, svc.Refine)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_chain",
		Description: "Run agents in sequence, feeding each output to the next as its instruction.",
	}, svc.RunChain)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_agents",
		Description: "List the registered agents, the fallback worker, and the default parallel and chain sets.",
	}, svc.ListAgents)

	return server
}

// RunStdio serves on stdio, blocking until stdin is closed or the context
// is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until the context is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
