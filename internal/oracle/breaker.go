package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dusk-indust/agentflow/internal/config"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// Breaker wraps a Client with a circuit breaker. After repeated failures
// calls fail fast with domain.ErrCircuitOpen until the breaker half-opens.
type Breaker struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps inner. Zero config values fall back to defaults.
func NewBreaker(inner Client, cfg config.BreakerConfig, logger *slog.Logger) *Breaker {
	logger = logging.OrDiscard(logger)

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "oracle:" + Name(inner),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

// Name implements the optional naming interface.
func (b *Breaker) Name() string { return Name(b.inner) }

// State returns the breaker state.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

// Invoke routes the call through the breaker.
func (b *Breaker) Invoke(ctx context.Context, system, user string) (string, error) {
	out, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Invoke(ctx, system, user)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("oracle %q: %w", b.Name(), domain.ErrCircuitOpen)
	}
	return out, err
}
