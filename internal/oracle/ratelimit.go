package oracle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/dusk-indust/agentflow/internal/config"
	"github.com/dusk-indust/agentflow/internal/domain"
)

// RateLimited blocks each call until the token bucket admits it. Fan-out
// specialists share one limiter, so a wide fan-out cannot burst past quota.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. It returns inner unchanged when cfg disables
// limiting.
func NewRateLimited(inner Client, cfg config.RateLimitConfig) Client {
	if cfg.PerSecond <= 0 {
		return inner
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), burst)}
}

// Name implements the optional naming interface.
func (r *RateLimited) Name() string { return Name(r.inner) }

// Invoke waits for a token and delegates.
func (r *RateLimited) Invoke(ctx context.Context, system, user string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", domain.Unavailable("rate limiter", err)
	}
	return r.inner.Invoke(ctx, system, user)
}
