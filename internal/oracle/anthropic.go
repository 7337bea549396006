package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/agentflow/internal/config"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

var _ Client = (*Anthropic)(nil)

const defaultAnthropicMaxTokens = 4096

// Anthropic invokes Claude through the Messages API, directly or via AWS
// Bedrock.
type Anthropic struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropic creates a Messages API backend. Extra request options are
// appended after the ones derived from cfg.
func NewAnthropic(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger, extra ...option.RequestOption) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.Bedrock.Enabled {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Bedrock.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Bedrock.Region))
		}
		if cfg.Bedrock.Profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Bedrock.Profile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api key is not set (ANTHROPIC_API_KEY)")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithHTTPClient(newHTTPClient(cfg.Timeout)))
	opts = append(opts, extra...)

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &Anthropic{
		inner:     anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logging.OrDiscard(logger),
	}, nil
}

// Name implements the optional naming interface.
func (p *Anthropic) Name() string { return "anthropic:" + string(p.model) }

// Invoke sends one user turn with the given system prompt and concatenates
// the text blocks of the reply.
func (p *Anthropic) Invoke(ctx context.Context, system, user string) (_ string, err error) {
	ctx, span := tracing.StartSpan(ctx, "oracle.invoke",
		trace.WithAttributes(
			tracing.String("oracle.provider", "anthropic"),
			tracing.String("oracle.model", string(p.model)),
		),
	)
	defer func() { tracing.End(span, err) }()

	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := p.inner.Messages.New(ctx, params)
	if err != nil {
		return "", mapAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(variant.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: reply has no text blocks", domain.ErrReasoningUnavailable)
	}

	span.SetAttributes(
		tracing.Int("oracle.prompt_tokens", int(msg.Usage.InputTokens)),
		tracing.Int("oracle.completion_tokens", int(msg.Usage.OutputTokens)),
	)
	p.logger.Debug("oracle call completed",
		"provider", "anthropic",
		"model", string(msg.Model),
		"tokens", msg.Usage.InputTokens+msg.Usage.OutputTokens,
	)
	return sb.String(), nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("anthropic: %w: %w", domain.ErrRateLimit, err)
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("anthropic: %w: %w", domain.ErrAuthInvalid, err)
		}
	}
	return domain.Unavailable("anthropic", err)
}
