package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var _ Client = (*HTTPClient)(nil)

// maxResponseBody caps a JSON-RPC reply; agent artifacts are text.
const maxResponseBody = 10 * 1024 * 1024

// HTTPClient talks JSON-RPC 2.0 over HTTP POST to agents served by Server.
// It is safe for concurrent use; fan-out shares one client across workers.
type HTTPClient struct {
	http   *http.Client
	lastID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout bounds each HTTP round trip. A blocking message/send lasts as
// long as the remote worker, so keep it above the specialist timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient returns a client with a five minute round-trip timeout.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{http: &http.Client{Timeout: 5 * time.Minute}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage posts message/send. With Blocking set the reply is terminal.
func (c *HTTPClient) SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error) {
	return taskCall(ctx, c, endpoint, MethodSendMessage, req)
}

// GetTask polls a task started by a non-blocking send.
func (c *HTTPClient) GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error) {
	return taskCall(ctx, c, endpoint, MethodGetTask, req)
}

// CancelTask asks the agent to stop a running task.
func (c *HTTPClient) CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error) {
	return taskCall(ctx, c, endpoint, MethodCancelTask, req)
}

// DiscoverAgent reads the card served at AgentCardPath under baseURL.
func (c *HTTPClient) DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+AgentCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: agent card request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "agent card")
	if err != nil {
		return nil, err
	}
	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("a2a: decode agent card: %w", err)
	}
	return &card, nil
}

// taskCall runs a method whose result is a Task.
func taskCall(ctx context.Context, c *HTTPClient, endpoint, method string, params any) (*Task, error) {
	var task Task
	if err := c.call(ctx, endpoint, method, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) call(ctx context.Context, endpoint, method string, params, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("a2a: %s: encode params: %w", method, err)
	}
	id := c.lastID.Add(1)
	body, err := json.Marshal(JSONRPCRequest{JSONRPC: JSONRPCVersion, ID: id, Method: method, Params: raw})
	if err != nil {
		return fmt.Errorf("a2a: %s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("a2a: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req, method)
	if err != nil {
		return err
	}

	var resp JSONRPCResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("a2a: %s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return &RPCError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
	}
	// A null id is allowed on errors only.
	if got := fmt.Sprint(resp.ID); got != strconv.FormatInt(id, 10) {
		return fmt.Errorf("a2a: %s: response id %s does not match request id %d", method, got, id)
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("a2a: %s: decode result: %w", method, err)
	}
	return nil
}

// do sends req and returns the body of a 200 reply.
func (c *HTTPClient) do(req *http.Request, what string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: %w", what, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("a2a: %s: read response: %w", what, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return nil, fmt.Errorf("a2a: %s: HTTP %d: %s", what, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}

// RPCError is a JSON-RPC error object returned by a remote agent.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("a2a: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
