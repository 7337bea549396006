package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/agentflow/internal/config"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

var _ Client = (*OpenAI)(nil)

// OpenAI talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, OpenRouter, Ollama, vLLM, ...).
type OpenAI struct {
	model     string
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible backend.
func NewOpenAI(cfg config.ProviderConfig, logger *slog.Logger) *OpenAI {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: cfg.MaxTokens,
		client:    newHTTPClient(cfg.Timeout),
		logger:    logging.OrDiscard(logger),
	}
}

// Name implements the optional naming interface.
func (p *OpenAI) Name() string { return "openai:" + p.model }

// Invoke sends one system and one user message and returns the first choice.
func (p *OpenAI) Invoke(ctx context.Context, system, user string) (_ string, err error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.invoke",
		trace.WithAttributes(
			tracing.String("oracle.provider", "openai"),
			tracing.String("oracle.model", p.model),
		),
	)
	defer func() { tracing.End(span, err) }()

	req := openaiRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []openaiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return "", err
	}

	var resp openaiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", domain.Unavailable("unmarshal response", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domain.ErrReasoningUnavailable)
	}

	span.SetAttributes(
		tracing.Int("oracle.prompt_tokens", resp.Usage.PromptTokens),
		tracing.Int("oracle.completion_tokens", resp.Usage.CompletionTokens),
	)
	p.logger.Debug("oracle call completed",
		"provider", "openai",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

// --- OpenAI wire types ---

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
