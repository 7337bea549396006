package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
)

func TestCompose_FanOutAsRoutedWorker(t *testing.T) {
	labs := NewFanOut(agent.Static("synth", "", "combined labs")).
		Descriptor("lab panel", "Interprets a full lab report", Specialists(
			agent.Static("hematology", "", "cbc ok"),
			agent.Static("renal", "", "creatinine high"),
		))
	weather := agent.Static("weather", "Forecasts", "rain")

	reg := mustRegistry(weather, labs)
	routed, err := NewRouter(script("lab panel"), reg).Route(context.Background(), domain.Task{Instruction: "labs"})
	require.NoError(t, err)
	assert.Equal(t, "combined labs", routed.Result.Output)
}

func TestCompose_RefinerAsChainStep(t *testing.T) {
	refiner := NewRefiner(&fakeGenerator{}, &fakeEvaluator{}, WithMaxAttempts(2)).Descriptor("drafter", "Drafts")
	c, err := NewChain([]agent.Descriptor{refiner, agent.Static("publisher", "", "published")})
	require.NoError(t, err)

	var d agent.Descriptor = c.Descriptor("pipeline", "Drafts and publishes")
	res, err := d.Invoke(context.Background(), domain.Task{Instruction: "essay"})
	require.NoError(t, err)
	assert.Equal(t, "published", res.Output)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not approved after 2 attempts")
}

func TestCompose_OrchestratorWithoutSynthesis(t *testing.T) {
	reg := mustRegistry(agent.Static("zoning", "", "R-2"), agent.Static("site", "", "ok"))
	require.NoError(t, reg.Bind("zoning", "zoning"))
	require.NoError(t, reg.Bind("site", "site"))

	d := New(script(zoningPlan), reg, agent.Descriptor{}).Descriptor("permits", "Permit review")
	res, err := d.Invoke(context.Background(), domain.Task{Instruction: "parcel 12"})
	require.NoError(t, err)
	assert.Equal(t, "R-2\n\nok", res.Output)
}

const essayPlan = `<analysis>One section is needed.</analysis>
<tasks>
<task>
<type>essay</type>
<description>Write only the conclusion paragraph</description>
</task>
</tasks>`

func TestCompose_RefinerAsWorkerRefinesSubtask(t *testing.T) {
	inner := script("In conclusion, rezone.", "APPROVED")
	reg := mustRegistry(NewOracleRefiner(inner, []string{"one paragraph"}, "").Descriptor("essayist", "Writes essays"))
	require.NoError(t, reg.Bind("essayist", "essay"))

	rep, err := New(script(essayPlan), reg, agent.Descriptor{}).
		Execute(context.Background(), domain.Task{Instruction: "Write a report on zoning"})
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "In conclusion, rezone.", rep.Results[0].Output)

	require.Equal(t, 2, inner.count())
	request := inner.calls[0].user
	assert.Contains(t, request, "Write a report on zoning")
	assert.Contains(t, request, "Write only the conclusion paragraph")
	assert.Contains(t, inner.calls[1].user, "Write only the conclusion paragraph")
}

func TestCompose_NestedOrchestratorPlansSubtask(t *testing.T) {
	innerReg := mustRegistry(agent.Static("zoning", "", "R-2"), agent.Static("site", "", "ok"))
	require.NoError(t, innerReg.Bind("zoning", "zoning"))
	require.NoError(t, innerReg.Bind("site", "site"))
	innerOracle := script(zoningPlan)
	permits := New(innerOracle, innerReg, agent.Descriptor{}).Descriptor("permits", "Permit review")

	outerReg := mustRegistry(permits)
	require.NoError(t, outerReg.Bind("permits", "permit"))
	outerPlan := `<tasks>
<task>
<type>permit</type>
<description>Check setbacks only</description>
</task>
</tasks>`

	rep, err := New(script(outerPlan), outerReg, agent.Descriptor{}).
		Execute(context.Background(), domain.Task{Instruction: "Assess parcel 12"})
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "R-2\n\nok", rep.Results[0].Output)

	require.Equal(t, 1, innerOracle.count())
	prompt := innerOracle.calls[0].user
	assert.Contains(t, prompt, "Task: Assess parcel 12")
	assert.Contains(t, prompt, "Your specific focus: Check setbacks only")
}
