package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/extract"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// Plan is a decomposition of a task into typed subtasks.
type Plan struct {
	Analysis string           `json:"analysis"`
	Subtasks []domain.Subtask `json:"subtasks"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Report is the outcome of an orchestrator run.
type Report struct {
	Task      domain.Task           `json:"task"`
	Analysis  string                `json:"analysis"`
	Subtasks  []domain.Subtask      `json:"subtasks"`
	Results   []domain.WorkerResult `json:"results"`
	Synthesis string                `json:"synthesis,omitempty"`
	Warnings  []string              `json:"warnings,omitempty"`
}

// Failures returns the number of subtasks whose dispatch failed.
func (r *Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Orchestrator decomposes a task with the oracle, dispatches each subtask to
// the worker the registry resolves for its kind, one at a time and in plan
// order, then hands every result to the synthesizer.
type Orchestrator struct {
	oracle      oracle.Client
	registry    *agent.Registry
	synthesizer agent.Descriptor
	opts        options
}

// New creates an Orchestrator. A synthesizer without an Invoke function
// disables the synthesis step.
func New(o oracle.Client, reg *agent.Registry, synthesizer agent.Descriptor, opts ...Option) *Orchestrator {
	return &Orchestrator{oracle: o, registry: reg, synthesizer: synthesizer, opts: newOptions(opts)}
}

// Plan asks the oracle to decompose task. A reply without subtasks is
// domain.ErrEmptyPlan; a missing <analysis> section only adds a warning.
func (o *Orchestrator) Plan(ctx context.Context, task domain.Task) (*Plan, error) {
	reply, err := o.oracle.Invoke(ctx, o.opts.plannerSystem, plannerPrompt(task, o.registry.Descriptors()))
	if err != nil {
		return nil, fmt.Errorf("decompose: %w", err)
	}

	plan := &Plan{}
	analysis, werr := extract.SectionOrRaw(reply, extract.TagAnalysis)
	plan.Analysis = analysis
	if werr != nil {
		o.opts.logger.Warn("planner reply missing analysis", "error", werr)
		plan.Warnings = append(plan.Warnings, werr.Error())
	}

	plan.Subtasks = extract.Subtasks(extract.Section(reply, extract.TagTasks))
	if len(plan.Subtasks) == 0 {
		return plan, fmt.Errorf("decompose: %w", domain.ErrEmptyPlan)
	}
	return plan, nil
}

// Execute runs decompose, dispatch and synthesis. Worker failures are
// recorded in the report and do not stop the run. When synthesis fails the
// report is returned along with the error.
func (o *Orchestrator) Execute(ctx context.Context, task domain.Task) (report *Report, err error) {
	ctx, span := tracing.StartSpan(ctx, "pattern.plan")
	defer func() { tracing.End(span, err) }()

	plan, err := o.Plan(ctx, task)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracing.Int("plan.subtasks", len(plan.Subtasks)))

	report = &Report{
		Task:     task,
		Analysis: plan.Analysis,
		Subtasks: plan.Subtasks,
		Results:  make([]domain.WorkerResult, 0, len(plan.Subtasks)),
		Warnings: plan.Warnings,
	}
	for _, st := range plan.Subtasks {
		o.opts.emit(ProgressEvent{Pattern: PatternPlan, Step: st.Kind, Status: ProgressPending})
	}

	prior := task
	for i, st := range plan.Subtasks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := o.dispatch(ctx, task, prior, st)
		report.Results = append(report.Results, res)
		report.Warnings = append(report.Warnings, res.Warnings...)
		if !res.Failed() {
			prior = prior.WithContext(fmt.Sprintf("%02d %s", i+1, st.Kind), res.Output)
		}
	}

	if o.synthesizer.Invoke == nil {
		return report, nil
	}
	synth, err := o.synthesizer.Invoke(ctx, o.synthesisTask(report))
	if err != nil {
		return report, fmt.Errorf("synthesize: %w", err)
	}
	report.Synthesis = synth.Output
	report.Warnings = append(report.Warnings, synth.Warnings...)
	return report, nil
}

// dispatch runs one subtask. prior carries the outputs of earlier subtasks.
func (o *Orchestrator) dispatch(ctx context.Context, task, prior domain.Task, st domain.Subtask) domain.WorkerResult {
	res := domain.WorkerResult{Kind: st.Kind, Description: st.Description}

	worker, err := o.registry.Worker(st.Kind)
	if err != nil {
		o.opts.logger.Warn("no worker for subtask", "kind", st.Kind)
		o.opts.emit(ProgressEvent{Pattern: PatternPlan, Step: st.Kind, Status: ProgressFailed, Message: err.Error()})
		res.Err = err
		return res
	}
	res.Agent = worker.Name

	o.opts.emit(ProgressEvent{Pattern: PatternPlan, Step: st.Kind, Status: ProgressWorking, Message: worker.Name})
	out, err := worker.Invoke(ctx, domain.Task{
		Instruction: task.Instruction,
		Focus:       st.Description,
		Context:     prior.Context,
	})
	if err != nil {
		o.opts.logger.Warn("worker failed", "kind", st.Kind, "agent", worker.Name, "error", err)
		o.opts.emit(ProgressEvent{Pattern: PatternPlan, Step: st.Kind, Status: ProgressFailed, Message: err.Error()})
		res.Err = err
		return res
	}
	o.opts.emit(ProgressEvent{Pattern: PatternPlan, Step: st.Kind, Status: ProgressComplete, Message: worker.Name})
	res.Output = out.Output
	res.Warnings = out.Warnings
	return res
}

func (o *Orchestrator) synthesisTask(r *Report) domain.Task {
	var b strings.Builder
	for _, res := range r.Results {
		body := res.Output
		if res.Failed() {
			body = ErrorMarker(res.Err)
		}
		renderFinding(&b, fmt.Sprintf("%s: %s", res.Kind, res.Description), body)
	}
	return domain.Task{
		Instruction: r.Task.Instruction,
		Focus:       planSynthesisFocus,
		Context:     r.Task.Context,
	}.WithContext(contextAnalysis, r.Analysis).
		WithContext(contextFindings, strings.TrimSpace(b.String()))
}
