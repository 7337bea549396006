package mcptools

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

// Service handles MCP tool calls. It runs the orchestration patterns over
// one agent roster.
type Service struct {
	oracle oracle.Client
	roster *agent.Roster
	token  string
	opts   []orchestrator.Option
	logger *slog.Logger

	router  *orchestrator.Router
	planner *orchestrator.Orchestrator
	fanout  *orchestrator.FanOut
}

// NewService creates a Service. token is the refinement approval token; opts
// apply to every pattern.
func NewService(o oracle.Client, roster *agent.Roster, token string, logger *slog.Logger, opts ...orchestrator.Option) *Service {
	logger = logging.OrDiscard(logger)
	opts = append([]orchestrator.Option{orchestrator.WithLogger(logger)}, opts...)
	return &Service{
		oracle:  o,
		roster:  roster,
		token:   token,
		opts:    opts,
		logger:  logger,
		router:  orchestrator.NewRouter(o, roster.Registry, opts...),
		planner: orchestrator.New(o, roster.Registry, roster.Synthesizer, opts...),
		fanout:  orchestrator.NewFanOut(roster.Synthesizer, opts...),
	}
}

// Route classifies the task and returns the chosen agent's answer.
func (s *Service) Route(ctx context.Context, _ *mcp.CallToolRequest, input RouteInput) (*mcp.CallToolResult, RouteOutput, error) {
	task, err := newTask(input.Task, input.Context)
	if err != nil {
		return nil, RouteOutput{}, err
	}
	routed, err := s.router.Route(ctx, task)
	if err != nil {
		return nil, RouteOutput{}, err
	}
	return nil, RouteOutput{
		Agent:    routed.Agent,
		Output:   routed.Result.Output,
		Attempts: routed.Attempts,
		Warnings: routed.Result.Warnings,
	}, nil
}

// ExecutePlan decomposes the task, dispatches every subtask and synthesizes.
// Worker failures are reported per subtask, not as a tool error.
func (s *Service) ExecutePlan(ctx context.Context, _ *mcp.CallToolRequest, input ExecutePlanInput) (*mcp.CallToolResult, ExecutePlanOutput, error) {
	task, err := newTask(input.Task, input.Context)
	if err != nil {
		return nil, ExecutePlanOutput{}, err
	}
	rep, err := s.planner.Execute(ctx, task)
	if err != nil {
		return nil, ExecutePlanOutput{}, err
	}

	out := ExecutePlanOutput{
		Analysis:  rep.Analysis,
		Synthesis: rep.Synthesis,
		Failures:  rep.Failures(),
		Warnings:  rep.Warnings,
		Subtasks:  make([]SubtaskOutput, 0, len(rep.Results)),
	}
	for _, r := range rep.Results {
		st := SubtaskOutput{Kind: r.Kind, Description: r.Description, Agent: r.Agent, Output: r.Output}
		if r.Failed() {
			st.Output = ""
			st.Error = r.Err.Error()
		}
		out.Subtasks = append(out.Subtasks, st)
	}
	return nil, out, nil
}

// RunParallel fans the task out to the named specialists, or to the
// catalog's parallel set when none are named.
func (s *Service) RunParallel(ctx context.Context, _ *mcp.CallToolRequest, input RunParallelInput) (*mcp.CallToolResult, RunParallelOutput, error) {
	task, err := newTask(input.Task, nil)
	if err != nil {
		return nil, RunParallelOutput{}, err
	}
	descs := s.roster.Parallel
	if len(input.Specialists) > 0 {
		if descs, err = s.lookup(input.Specialists); err != nil {
			return nil, RunParallelOutput{}, err
		}
	}
	if len(descs) == 0 {
		return nil, RunParallelOutput{}, fmt.Errorf("%w: no specialists configured for parallel runs", domain.ErrInvalidInput)
	}

	rep, err := s.fanout.Run(ctx, task, orchestrator.Specialists(descs...))
	if err != nil {
		return nil, RunParallelOutput{}, err
	}
	out := RunParallelOutput{Results: rep.Results, Synthesis: rep.Synthesis, Warnings: rep.Warnings}
	if len(rep.Failures) > 0 {
		out.Errors = make(map[string]string, len(rep.Failures))
		for k, e := range rep.Failures {
			out.Errors[k] = e.Error()
		}
	}
	return nil, out, nil
}

// Refine runs the evaluator-optimizer loop. Exhausting the budget is
// reported through Approved, not as a tool error.
func (s *Service) Refine(ctx context.Context, _ *mcp.CallToolRequest, input RefineInput) (*mcp.CallToolResult, RefineOutput, error) {
	if strings.TrimSpace(input.Request) == "" {
		return nil, RefineOutput{}, fmt.Errorf("%w: request is required", domain.ErrInvalidInput)
	}
	opts := slices.Clone(s.opts)
	if input.MaxAttempts > 0 {
		opts = append(opts, orchestrator.WithMaxAttempts(input.MaxAttempts))
	}
	out, err := orchestrator.NewOracleRefiner(s.oracle, input.Checklist, s.token, opts...).Refine(ctx, input.Request)
	if err != nil {
		return nil, RefineOutput{}, err
	}
	return nil, RefineOutput{
		Candidate: out.Candidate,
		Approved:  out.State == orchestrator.StateApproved,
		Attempts:  out.Attempts,
		Feedback:  out.Verdict.Feedback,
	}, nil
}

// RunChain runs the named agents, or the catalog's chain, in sequence.
func (s *Service) RunChain(ctx context.Context, _ *mcp.CallToolRequest, input RunChainInput) (*mcp.CallToolResult, RunChainOutput, error) {
	task, err := newTask(input.Task, nil)
	if err != nil {
		return nil, RunChainOutput{}, err
	}
	steps := s.roster.Chain
	if len(input.Steps) > 0 {
		if steps, err = s.lookup(input.Steps); err != nil {
			return nil, RunChainOutput{}, err
		}
	}
	chain, err := orchestrator.NewChain(steps, s.opts...)
	if err != nil {
		return nil, RunChainOutput{}, err
	}
	rep, err := chain.Run(ctx, task)
	if err != nil {
		return nil, RunChainOutput{}, err
	}

	out := RunChainOutput{Output: rep.Output, Steps: make([]ChainStepOutput, 0, len(rep.Steps))}
	for _, st := range rep.Steps {
		out.Steps = append(out.Steps, ChainStepOutput{Agent: st.Agent, Output: st.Output})
	}
	return nil, out, nil
}

// ListAgents reports the roster.
func (s *Service) ListAgents(_ context.Context, _ *mcp.CallToolRequest, _ ListAgentsInput) (*mcp.CallToolResult, ListAgentsOutput, error) {
	out := ListAgentsOutput{Agents: []AgentSummary{}}
	for _, d := range s.roster.Registry.Descriptors() {
		out.Agents = append(out.Agents, AgentSummary{Name: d.Name, Description: d.Description})
	}
	if fb, ok := s.roster.Registry.Fallback(); ok {
		out.Fallback = fb.Name
	}
	for _, d := range s.roster.Parallel {
		out.Parallel = append(out.Parallel, d.Name)
	}
	for _, d := range s.roster.Chain {
		out.Chain = append(out.Chain, d.Name)
	}
	return nil, out, nil
}

func (s *Service) lookup(names []string) ([]agent.Descriptor, error) {
	descs := make([]agent.Descriptor, 0, len(names))
	for _, n := range names {
		d, ok := s.roster.Registry.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAgent, n)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

func newTask(instruction string, ctx map[string]string) (domain.Task, error) {
	if strings.TrimSpace(instruction) == "" {
		return domain.Task{}, fmt.Errorf("%w: task is required", domain.ErrInvalidInput)
	}
	return domain.Task{Instruction: instruction, Context: ctx}, nil
}
