package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/agentflow/internal/config"
)

// New builds the configured oracle stack: each backend behind its own
// circuit breaker, fallbacks behind a failover chain, and a shared rate
// limiter in front.
func New(ctx context.Context, cfg config.OracleConfig, logger *slog.Logger) (Client, error) {
	primary, err := newBackend(ctx, cfg.ProviderConfig, logger)
	if err != nil {
		return nil, err
	}
	var client Client = NewBreaker(primary, cfg.Breaker, logger)

	if len(cfg.Fallbacks) > 0 {
		fallbacks := make([]Client, 0, len(cfg.Fallbacks))
		for i, fc := range cfg.Fallbacks {
			fb, err := newBackend(ctx, fc, logger)
			if err != nil {
				return nil, fmt.Errorf("fallback %d: %w", i, err)
			}
			fallbacks = append(fallbacks, NewBreaker(fb, cfg.Breaker, logger))
		}
		client = NewFailover(client, fallbacks, logger)
	}

	return NewRateLimited(client, cfg.RateLimit), nil
}

func newBackend(ctx context.Context, cfg config.ProviderConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(cfg, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropic(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported oracle provider %q", cfg.Provider)
	}
}
