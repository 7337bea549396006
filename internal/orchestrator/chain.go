package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// ChainStep records one link of a chain.
type ChainStep struct {
	Agent    string   `json:"agent"`
	Input    string   `json:"input"`
	Output   string   `json:"output"`
	Warnings []string `json:"warnings,omitempty"`
}

// ChainReport is the outcome of a chain run. Output is the last step's.
type ChainReport struct {
	Task   domain.Task `json:"task"`
	Steps  []ChainStep `json:"steps"`
	Output string      `json:"output"`
}

// Chain runs agents in sequence, feeding each step's output to the next as
// its instruction. The original instruction and every earlier output stay
// available in the task context.
type Chain struct {
	steps []agent.Descriptor
	opts  options
}

// NewChain creates a Chain over steps.
func NewChain(steps []agent.Descriptor, opts ...Option) (*Chain, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: chain has no steps", domain.ErrInvalidInput)
	}
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return &Chain{steps: steps, opts: newOptions(opts)}, nil
}

// Run executes the chain. A failing step stops it; the steps completed so
// far are returned with the error.
func (c *Chain) Run(ctx context.Context, task domain.Task) (report *ChainReport, err error) {
	ctx, span := tracing.StartSpan(ctx, "pattern.chain")
	span.SetAttributes(tracing.Int("chain.steps", len(c.steps)))
	defer func() { tracing.End(span, err) }()

	report = &ChainReport{Task: task}
	current := task.WithContext(contextTask, task.Instruction)
	for _, step := range c.steps {
		c.opts.emit(ProgressEvent{Pattern: PatternChain, Step: step.Name, Status: ProgressWorking})

		res, err := step.Invoke(ctx, current)
		if err != nil {
			c.opts.emit(ProgressEvent{Pattern: PatternChain, Step: step.Name, Status: ProgressFailed, Message: err.Error()})
			return report, fmt.Errorf("chain step %q: %w", step.Name, err)
		}
		c.opts.emit(ProgressEvent{Pattern: PatternChain, Step: step.Name, Status: ProgressComplete})

		report.Steps = append(report.Steps, ChainStep{
			Agent:    step.Name,
			Input:    current.Instruction,
			Output:   res.Output,
			Warnings: res.Warnings,
		})
		report.Output = res.Output

		next := current.WithContext(step.Name, res.Output)
		next.Instruction = res.Output
		current = next
	}
	return report, nil
}
