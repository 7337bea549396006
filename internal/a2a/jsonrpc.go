package a2a

import (
	"encoding/json"
	"errors"
)

// JSONRPCVersion is the only protocol version agents speak.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is the envelope Remote posts to an agent endpoint.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse carries either Result or Error, never both.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error codes. The first five are from JSON-RPC 2.0; ErrCodeTaskNotFound is
// what tasks/get and tasks/cancel return for an unknown or evicted task.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeTaskNotFound   = -32001
)

// Methods served by Server. message/stream and tasks/list are not offered;
// workers reply once, so blocking send plus tasks/get covers every caller.
const (
	MethodSendMessage = "message/send"
	MethodGetTask     = "tasks/get"
	MethodCancelTask  = "tasks/cancel"
)

// AgentCardPath is where Server publishes the card and where
// HTTPClient.DiscoverAgent looks for it.
const AgentCardPath = "/.well-known/agent-card.json"

func resultResponse(id any, result json.RawMessage) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

func errorResponse(id any, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: JSONRPCVersion, ID: id, Error: &JSONRPCError{Code: code, Message: message}}
}

// errorCode maps a handler error to its wire code.
func errorCode(err error) int {
	if errors.Is(err, ErrTaskNotFound) {
		return ErrCodeTaskNotFound
	}
	return ErrCodeInternal
}
