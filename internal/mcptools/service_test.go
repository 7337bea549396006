package mcptools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/oracle"
)

const testPlan = `<analysis>Needs arithmetic and a forecast.</analysis>
<tasks>
<task>
<type>math</type>
<description>Add the numbers</description>
</task>
<task>
<type>astrology</type>
<description>Read the stars</description>
</task>
</tasks>`

// fakeOracle answers by the role its system prompt sets up.
func fakeOracle(route string) oracle.Func {
	return func(_ context.Context, system, user string) (string, error) {
		switch {
		case strings.HasPrefix(system, "You are a router"):
			return route, nil
		case strings.HasPrefix(system, "You are a planner"):
			return testPlan, nil
		case strings.HasPrefix(system, "You are a strict reviewer"):
			if strings.Contains(user, "revised") {
				return "APPROVED", nil
			}
			return "REJECTED: needs revision", nil
		case strings.Contains(user, "needs revision"):
			return "revised draft", nil
		default:
			return "first draft", nil
		}
	}
}

func testRoster(t *testing.T) *agent.Roster {
	t.Helper()
	math := agent.Static("math", "Solves arithmetic", "42")
	weather := agent.Static("weather", "Forecasts weather", "sunny")
	generic := agent.Static("generic", "Handles anything", "generic answer")

	reg, err := agent.NewRegistry(math, weather, generic)
	require.NoError(t, err)
	require.NoError(t, reg.Bind("math", "math"))
	require.NoError(t, reg.SetFallback("generic"))

	return &agent.Roster{
		Registry:    reg,
		Synthesizer: agent.Static("synthesizer", "", "all done"),
		Parallel:    []agent.Descriptor{math, weather},
		Chain:       []agent.Descriptor{weather, math},
	}
}

func newTestService(t *testing.T, route string) *Service {
	t.Helper()
	return NewService(fakeOracle(route), testRoster(t), "", nil)
}

func TestService_Route(t *testing.T) {
	svc := newTestService(t, "weather")

	_, out, err := svc.Route(context.Background(), nil, RouteInput{Task: "will it rain?"})
	require.NoError(t, err)
	assert.Equal(t, "weather", out.Agent)
	assert.Equal(t, "sunny", out.Output)
	assert.Equal(t, 1, out.Attempts)
}

func TestService_RouteAmbiguous(t *testing.T) {
	svc := newTestService(t, "weather or math")

	_, _, err := svc.Route(context.Background(), nil, RouteInput{Task: "?"})
	assert.ErrorIs(t, err, domain.ErrRoutingAmbiguous)
}

func TestService_EmptyTaskRejected(t *testing.T) {
	svc := newTestService(t, "math")
	ctx := context.Background()

	_, _, err := svc.Route(ctx, nil, RouteInput{Task: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = svc.ExecutePlan(ctx, nil, ExecutePlanInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = svc.RunParallel(ctx, nil, RunParallelInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = svc.Refine(ctx, nil, RefineInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, _, err = svc.RunChain(ctx, nil, RunChainInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_ExecutePlan(t *testing.T) {
	svc := newTestService(t, "math")

	_, out, err := svc.ExecutePlan(context.Background(), nil, ExecutePlanInput{Task: "add and forecast"})
	require.NoError(t, err)
	assert.Equal(t, "Needs arithmetic and a forecast.", out.Analysis)
	assert.Equal(t, "all done", out.Synthesis)
	assert.Equal(t, 0, out.Failures)
	require.Len(t, out.Subtasks, 2)
	assert.Equal(t, SubtaskOutput{Kind: "math", Description: "Add the numbers", Agent: "math", Output: "42"}, out.Subtasks[0])
	assert.Equal(t, "generic", out.Subtasks[1].Agent, "unbound kinds go to the fallback")
}

func TestService_ExecutePlanReportsWorkerFailure(t *testing.T) {
	roster := testRoster(t)
	reg, err := agent.NewRegistry(agent.Descriptor{
		Name: "math",
		Invoke: func(context.Context, domain.Task) (domain.Result, error) {
			return domain.Result{}, errors.New("division by zero")
		},
	})
	require.NoError(t, err)
	require.NoError(t, reg.Bind("math", "math", "astrology"))
	roster.Registry = reg

	svc := NewService(fakeOracle("math"), roster, "", nil)
	_, out, err := svc.ExecutePlan(context.Background(), nil, ExecutePlanInput{Task: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Failures)
	assert.Contains(t, out.Subtasks[0].Error, "division by zero")
	assert.Empty(t, out.Subtasks[0].Output)
}

func TestService_RunParallel(t *testing.T) {
	svc := newTestService(t, "math")

	_, out, err := svc.RunParallel(context.Background(), nil, RunParallelInput{Task: "look"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"math": "42", "weather": "sunny"}, out.Results)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "all done", out.Synthesis)

	_, out, err = svc.RunParallel(context.Background(), nil, RunParallelInput{Task: "look", Specialists: []string{"generic"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"generic": "generic answer"}, out.Results)

	_, _, err = svc.RunParallel(context.Background(), nil, RunParallelInput{Task: "look", Specialists: []string{"nope"}})
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}

func TestService_Refine(t *testing.T) {
	svc := newTestService(t, "math")

	_, out, err := svc.Refine(context.Background(), nil, RefineInput{Request: "write", Checklist: []string{"be revised"}})
	require.NoError(t, err)
	assert.True(t, out.Approved)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "revised draft", out.Candidate)

	_, out, err = svc.Refine(context.Background(), nil, RefineInput{Request: "write", MaxAttempts: 1})
	require.NoError(t, err)
	assert.False(t, out.Approved)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "REJECTED: needs revision", out.Feedback)
}

func TestService_RunChain(t *testing.T) {
	svc := newTestService(t, "math")

	_, out, err := svc.RunChain(context.Background(), nil, RunChainInput{Task: "start"})
	require.NoError(t, err)
	assert.Equal(t, "42", out.Output)
	assert.Equal(t, []ChainStepOutput{{Agent: "weather", Output: "sunny"}, {Agent: "math", Output: "42"}}, out.Steps)

	_, out, err = svc.RunChain(context.Background(), nil, RunChainInput{Task: "start", Steps: []string{"generic"}})
	require.NoError(t, err)
	assert.Equal(t, "generic answer", out.Output)
}

func TestService_ListAgents(t *testing.T) {
	svc := newTestService(t, "math")

	_, out, err := svc.ListAgents(context.Background(), nil, ListAgentsInput{})
	require.NoError(t, err)
	assert.Len(t, out.Agents, 3)
	assert.Equal(t, "generic", out.Fallback)
	assert.Equal(t, []string{"math", "weather"}, out.Parallel)
	assert.Equal(t, []string{"weather", "math"}, out.Chain)
}
