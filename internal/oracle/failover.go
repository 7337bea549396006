package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
)

// Failover tries a primary backend and then each fallback in order.
type Failover struct {
	primary   Client
	fallbacks []Client
	logger    *slog.Logger
}

// NewFailover creates a failover chain.
func NewFailover(primary Client, fallbacks []Client, logger *slog.Logger) *Failover {
	return &Failover{
		primary:   primary,
		fallbacks: fallbacks,
		logger:    logging.OrDiscard(logger),
	}
}

// Name implements the optional naming interface.
func (f *Failover) Name() string { return Name(f.primary) + "+failover" }

// Invoke returns the first successful reply. When every backend fails the
// joined error matches domain.ErrReasoningUnavailable.
func (f *Failover) Invoke(ctx context.Context, system, user string) (string, error) {
	out, err := f.primary.Invoke(ctx, system, user)
	if err == nil {
		return out, nil
	}
	f.logger.Warn("primary oracle failed, trying fallbacks", "primary", Name(f.primary), "error", err)
	errs := []error{fmt.Errorf("%s: %w", Name(f.primary), err)}

	for _, fb := range f.fallbacks {
		if ctx.Err() != nil {
			break
		}
		out, err = fb.Invoke(ctx, system, user)
		if err == nil {
			f.logger.Info("oracle failover succeeded", "oracle", Name(fb))
			return out, nil
		}
		f.logger.Warn("fallback oracle failed", "oracle", Name(fb), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", Name(fb), err))
	}

	return "", domain.Unavailable("all oracles failed", errors.Join(errs...))
}
