package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// Specialist pairs a result key with the agent that produces it.
type Specialist struct {
	Key   string
	Agent agent.Descriptor
}

// ParallelReport is the outcome of a fan-out run. Results holds one entry
// per specialist key; a failed specialist's entry is an ErrorMarker.
type ParallelReport struct {
	Task      domain.Task       `json:"task"`
	Keys      []string          `json:"keys"`
	Results   map[string]string `json:"results"`
	Failures  map[string]error  `json:"-"`
	Warnings  []string          `json:"warnings,omitempty"`
	Synthesis string            `json:"synthesis,omitempty"`
}

// slot is written by exactly one specialist goroutine.
type slot struct {
	res domain.Result
	err error
}

// FanOut runs independent specialists concurrently on the same task, waits
// for every one of them, then synthesizes the complete result map.
type FanOut struct {
	synthesizer agent.Descriptor
	opts        options
}

// NewFanOut creates a FanOut. A synthesizer without an Invoke function
// disables the synthesis step.
func NewFanOut(synthesizer agent.Descriptor, opts ...Option) *FanOut {
	return &FanOut{synthesizer: synthesizer, opts: newOptions(opts)}
}

// Specialists keys each descriptor by its name.
func Specialists(descs ...agent.Descriptor) []Specialist {
	out := make([]Specialist, len(descs))
	for i, d := range descs {
		out[i] = Specialist{Key: d.Name, Agent: d}
	}
	return out
}

// Run invokes every specialist in its own goroutine. A failing specialist
// never cancels its siblings; synthesis starts only after all of them have
// returned. When synthesis fails the report is returned along with the
// error.
func (f *FanOut) Run(ctx context.Context, task domain.Task, specialists []Specialist) (report *ParallelReport, err error) {
	if err := validateSpecialists(specialists); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "pattern.parallel")
	span.SetAttributes(tracing.Int("parallel.specialists", len(specialists)))
	defer func() { tracing.End(span, err) }()

	slots := make([]slot, len(specialists))
	var g errgroup.Group
	for i, sp := range specialists {
		f.opts.emit(ProgressEvent{Pattern: PatternParallel, Step: sp.Key, Status: ProgressPending})

		g.Go(func() error {
			slots[i] = f.invoke(ctx, task, sp)
			return nil
		})
	}
	_ = g.Wait()

	report = &ParallelReport{
		Task:     task,
		Keys:     make([]string, len(specialists)),
		Results:  make(map[string]string, len(specialists)),
		Failures: make(map[string]error),
	}
	for i, sp := range specialists {
		report.Keys[i] = sp.Key
		s := slots[i]
		if s.err != nil {
			report.Results[sp.Key] = ErrorMarker(s.err)
			report.Failures[sp.Key] = s.err
			continue
		}
		report.Results[sp.Key] = s.res.Output
		report.Warnings = append(report.Warnings, s.res.Warnings...)
	}

	if f.synthesizer.Invoke == nil {
		return report, nil
	}
	synth, err := f.synthesizer.Invoke(ctx, synthesisTask(report))
	if err != nil {
		return report, fmt.Errorf("synthesize: %w", err)
	}
	report.Synthesis = synth.Output
	report.Warnings = append(report.Warnings, synth.Warnings...)
	return report, nil
}

// invoke runs one specialist, converting panics into errors so one
// misbehaving agent cannot take down the barrier.
func (f *FanOut) invoke(ctx context.Context, task domain.Task, sp Specialist) (s slot) {
	defer func() {
		if r := recover(); r != nil {
			s = slot{err: fmt.Errorf("agent %q panicked: %v", sp.Agent.Name, r)}
			f.opts.emit(ProgressEvent{Pattern: PatternParallel, Step: sp.Key, Status: ProgressFailed, Message: s.err.Error()})
		}
	}()

	if f.opts.specialistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.specialistTimeout)
		defer cancel()
	}

	f.opts.emit(ProgressEvent{Pattern: PatternParallel, Step: sp.Key, Status: ProgressWorking})
	res, err := sp.Agent.Invoke(ctx, task)
	if err != nil {
		f.opts.logger.Warn("specialist failed", "key", sp.Key, "agent", sp.Agent.Name, "error", err)
		f.opts.emit(ProgressEvent{Pattern: PatternParallel, Step: sp.Key, Status: ProgressFailed, Message: err.Error()})
		return slot{err: err}
	}
	f.opts.emit(ProgressEvent{Pattern: PatternParallel, Step: sp.Key, Status: ProgressComplete})
	return slot{res: res}
}

func validateSpecialists(specialists []Specialist) error {
	if len(specialists) == 0 {
		return fmt.Errorf("%w: no specialists", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(specialists))
	for i, sp := range specialists {
		if sp.Key == "" {
			return fmt.Errorf("%w: specialist %d has an empty key", domain.ErrInvalidInput, i)
		}
		if seen[sp.Key] {
			return fmt.Errorf("%w: duplicate specialist key %q", domain.ErrInvalidInput, sp.Key)
		}
		if err := sp.Agent.Validate(); err != nil {
			return err
		}
		seen[sp.Key] = true
	}
	return nil
}

func synthesisTask(r *ParallelReport) domain.Task {
	var b strings.Builder
	for _, k := range r.Keys {
		renderFinding(&b, k, r.Results[k])
	}
	return domain.Task{
		Instruction: r.Task.Instruction,
		Focus:       parallelSynthesisFocus,
		Context:     r.Task.Context,
	}.WithContext(contextFindings, strings.TrimSpace(b.String()))
}
