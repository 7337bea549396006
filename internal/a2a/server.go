package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dusk-indust/agentflow/internal/logging"
)

// Handler processes incoming A2A requests for one agent.
type Handler interface {
	// HandleSendMessage processes an incoming message and returns a task.
	HandleSendMessage(ctx context.Context, req SendMessageRequest) (*Task, error)

	// HandleGetTask returns the current state of a task.
	HandleGetTask(ctx context.Context, req GetTaskRequest) (*Task, error)

	// HandleCancelTask cancels a running task.
	HandleCancelTask(ctx context.Context, req CancelTaskRequest) (*Task, error)
}

// ErrTaskNotFound is returned by handlers for unknown task IDs. The server
// maps it to ErrCodeTaskNotFound.
var ErrTaskNotFound = errors.New("task not found")

// Server is the HTTP server that exposes an A2A agent.
type Server struct {
	card     AgentCard
	handler  Handler
	logger   *slog.Logger
	http     *http.Server
	listener net.Listener
}

// NewServer creates an A2A server for the given agent. logger may be nil.
func NewServer(card AgentCard, handler Handler, logger *slog.Logger) *Server {
	return &Server{
		card:    card,
		handler: handler,
		logger:  logging.OrDiscard(logger),
	}
}

// Handler returns the server's routes: the agent card and the JSON-RPC
// endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+AgentCardPath, s.handleAgentCard)
	mux.HandleFunc("POST /", s.handleJSONRPC)
	return mux
}

// Start binds addr and serves in a background goroutine. Binding errors are
// returned synchronously.
func (s *Server) Start(_ context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("a2a: listen %s: %w", addr, err)
	}
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("a2a server stopped", "agent", s.card.Name, "error", err)
		}
	}()
	s.logger.Info("a2a agent listening", "agent", s.card.Name, "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC decodes a JSON-RPC 2.0 request and dispatches it.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
		return
	}

	ctx := r.Context()
	switch req.Method {
	case MethodSendMessage:
		dispatch(ctx, w, &req, s.handler.HandleSendMessage)
	case MethodGetTask:
		dispatch(ctx, w, &req, s.handler.HandleGetTask)
	case MethodCancelTask:
		dispatch(ctx, w, &req, s.handler.HandleCancelTask)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// dispatch unmarshals params into P and calls fn.
func dispatch[P any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (*Task, error)) {
	var params P
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}

	result, err := fn(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, errorCode(err), err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}
	json.NewEncoder(w).Encode(resultResponse(id, data))
}

func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	json.NewEncoder(w).Encode(errorResponse(id, code, message))
}
