package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
)

// The Descriptor methods below wrap a pattern as an agent so it can be
// registered as a worker, routed to or chained like any other.

// Descriptor wraps the router.
func (r *Router) Descriptor(name, description string) agent.Descriptor {
	return agent.Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(ctx context.Context, task domain.Task) (domain.Result, error) {
			routed, err := r.Route(ctx, task)
			if err != nil {
				return domain.Result{}, err
			}
			return routed.Result, nil
		},
	}
}

// Descriptor wraps the orchestrator; the output is the synthesis, or the
// concatenated worker outputs when synthesis is disabled.
func (o *Orchestrator) Descriptor(name, description string) agent.Descriptor {
	return agent.Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(ctx context.Context, task domain.Task) (domain.Result, error) {
			rep, err := o.Execute(ctx, task)
			if err != nil {
				return domain.Result{}, err
			}
			out := rep.Synthesis
			if o.synthesizer.Invoke == nil {
				var parts []string
				for _, r := range rep.Results {
					if !r.Failed() {
						parts = append(parts, r.Output)
					}
				}
				out = strings.Join(parts, "\n\n")
			}
			return domain.Result{Output: out, Warnings: rep.Warnings}, nil
		},
	}
}

// Descriptor wraps the fan-out over a fixed set of specialists.
func (f *FanOut) Descriptor(name, description string, specialists []Specialist) agent.Descriptor {
	return agent.Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(ctx context.Context, task domain.Task) (domain.Result, error) {
			rep, err := f.Run(ctx, task, specialists)
			if err != nil {
				return domain.Result{}, err
			}
			return domain.Result{Output: rep.Synthesis, Warnings: rep.Warnings}, nil
		},
	}
}

// Descriptor wraps the refinement loop. The request is the task's
// instruction, plus its focus and context when it runs as a worker. An
// exhausted loop adds a warning with the last feedback.
func (r *Refiner) Descriptor(name, description string) agent.Descriptor {
	return agent.Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(ctx context.Context, task domain.Task) (domain.Result, error) {
			out, err := r.Refine(ctx, refineRequest(task))
			if err != nil {
				return domain.Result{}, err
			}
			res := domain.Result{Output: out.Candidate}
			if out.State == StateExhausted {
				res.Warnings = append(res.Warnings, fmt.Sprintf("not approved after %d attempts: %s",
					out.Attempts, out.Verdict.Feedback))
			}
			return res, nil
		},
	}
}

// Descriptor wraps the chain.
func (c *Chain) Descriptor(name, description string) agent.Descriptor {
	return agent.Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(ctx context.Context, task domain.Task) (domain.Result, error) {
			rep, err := c.Run(ctx, task)
			if err != nil {
				return domain.Result{}, err
			}
			var warnings []string
			for _, s := range rep.Steps {
				warnings = append(warnings, s.Warnings...)
			}
			return domain.Result{Output: rep.Output, Warnings: warnings}, nil
		},
	}
}
