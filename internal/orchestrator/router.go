package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// Routed is the outcome of routing a task.
type Routed struct {
	Agent    string        `json:"agent"`
	Result   domain.Result `json:"result"`
	Attempts int           `json:"classification_attempts"`
}

// Router picks one registered agent per task by asking the oracle and
// invokes it. Classification matches agent names exactly.
type Router struct {
	oracle   oracle.Client
	registry *agent.Registry
	opts     options
}

// NewRouter creates a Router over every agent in reg.
func NewRouter(o oracle.Client, reg *agent.Registry, opts ...Option) *Router {
	return &Router{oracle: o, registry: reg, opts: newOptions(opts)}
}

// Classify asks the oracle which agent should handle task. A reply that is
// not exactly a registered name, after trimming whitespace, is a
// *domain.RoutingAmbiguousError carrying the last reply.
func (r *Router) Classify(ctx context.Context, task domain.Task) (agent.Descriptor, int, error) {
	agents := r.registry.Descriptors()
	if len(agents) == 0 {
		return agent.Descriptor{}, 0, fmt.Errorf("%w: router has no agents", domain.ErrInvalidInput)
	}
	system := classificationPrompt(agents)

	user := task.Instruction
	var raw string
	for attempt := 1; attempt <= r.opts.classifyRetries+1; attempt++ {
		reply, err := r.oracle.Invoke(ctx, system, user)
		if err != nil {
			return agent.Descriptor{}, attempt, fmt.Errorf("classify: %w", err)
		}
		raw = strings.TrimSpace(reply)
		if d, ok := r.registry.Lookup(raw); ok {
			return d, attempt, nil
		}
		r.opts.logger.Warn("classification matched no agent", "reply", raw, "attempt", attempt)
		user = classificationRetry(task.Instruction, raw, r.registry.Names())
	}
	return agent.Descriptor{}, r.opts.classifyRetries + 1, &domain.RoutingAmbiguousError{Raw: raw}
}

// Route classifies task and invokes the chosen agent with the original task,
// context included.
func (r *Router) Route(ctx context.Context, task domain.Task) (routed Routed, err error) {
	ctx, span := tracing.StartSpan(ctx, "pattern.route")
	defer func() { tracing.End(span, err) }()

	d, attempts, err := r.Classify(ctx, task)
	routed.Attempts = attempts
	if err != nil {
		return routed, err
	}
	routed.Agent = d.Name
	span.SetAttributes(tracing.String("agent.name", d.Name), tracing.Int("route.attempts", attempts))
	r.opts.logger.Info("routed task", "agent", d.Name)

	r.opts.emit(ProgressEvent{Pattern: PatternRoute, Step: d.Name, Status: ProgressWorking})
	res, err := d.Invoke(ctx, task)
	if err != nil {
		r.opts.emit(ProgressEvent{Pattern: PatternRoute, Step: d.Name, Status: ProgressFailed, Message: err.Error()})
		return routed, err
	}
	r.opts.emit(ProgressEvent{Pattern: PatternRoute, Step: d.Name, Status: ProgressComplete})
	routed.Result = res
	return routed, nil
}
