package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

func fixedClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

func planReport() *orchestrator.Report {
	return &orchestrator.Report{
		Task:     domain.Task{Instruction: "review parcel 12"},
		Analysis: "Zoning and site review.",
		Subtasks: []domain.Subtask{
			{Kind: "zoning", Description: "Check zoning"},
			{Kind: "site", Description: "Review setbacks"},
			{Kind: "traffic", Description: "Estimate trips"},
		},
		Results: []domain.WorkerResult{
			{Kind: "zoning", Description: "Check zoning", Agent: "zoning", Output: "R-2"},
			{Kind: "site", Description: "Review setbacks", Agent: "site", Err: errors.New("site agent down")},
		},
		Synthesis: "Proceed once the site review is redone.",
	}
}

func parallelReport() *orchestrator.ParallelReport {
	return &orchestrator.ParallelReport{
		Task:      domain.Task{Instruction: "labs"},
		Keys:      []string{"hematology", "renal"},
		Results:   map[string]string{"hematology": "normal", "renal": "[error] timeout"},
		Failures:  map[string]error{"renal": errors.New("timeout")},
		Synthesis: "Follow up on kidney panel.",
	}
}

func TestJSON_PlanKeepsFailures(t *testing.T) {
	fixedClock(t)
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, planReport()))

	var got struct {
		Pattern    string
		ExportedAt string
		Report     struct {
			Results []struct {
				Kind   string `json:"kind"`
				Output string `json:"output"`
				Error  string `json:"error"`
			} `json:"results"`
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "plan", got.Pattern)
	assert.Equal(t, "2026-03-01T12:00:00Z", got.ExportedAt)
	require.Len(t, got.Report.Results, 2)
	assert.Equal(t, "R-2", got.Report.Results[0].Output)
	assert.Empty(t, got.Report.Results[0].Error)
	assert.Equal(t, "site agent down", got.Report.Results[1].Error)
}

func TestJSON_Parallel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, parallelReport()))

	var got struct {
		Pattern string
		Report  struct {
			Results map[string]string `json:"results"`
			Errors  map[string]string `json:"errors"`
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "parallel", got.Pattern)
	assert.Equal(t, "normal", got.Report.Results["hematology"])
	assert.Equal(t, map[string]string{"renal": "timeout"}, got.Report.Errors)
}

func TestJSON_Unsupported(t *testing.T) {
	err := JSON(&bytes.Buffer{}, "a string")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkdown_Plan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, planReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Plan\n\nZoning and site review."))
	assert.Contains(t, out, "## 1. zoning (zoning)\n\n_Check zoning_\n\nR-2")
	assert.Contains(t, out, "**Failed:** site agent down")
	assert.Contains(t, out, "## 3. traffic (not run)")
	assert.Contains(t, out, "## Synthesis\n\nProceed once the site review is redone.")
}

func TestMarkdown_ParallelFollowsKeyOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, parallelReport()))
	out := buf.String()

	assert.Less(t, strings.Index(out, "## hematology"), strings.Index(out, "## renal"))
	assert.Contains(t, out, "**Failed:** timeout")
}

func TestMarkdown_OutcomeAndChain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, &orchestrator.Outcome{
		Candidate: "final",
		Attempts:  2,
		State:     orchestrator.StateApproved,
		History: []orchestrator.Attempt{
			{Candidate: "draft", Verdict: domain.Verdict{Feedback: "REJECTED: short"}},
			{Candidate: "final", Verdict: domain.Verdict{Approved: true, Feedback: "APPROVED"}},
		},
	}))
	assert.Contains(t, buf.String(), "# Refinement: approved after 2 attempt(s)")
	assert.Contains(t, buf.String(), "## Attempt 1 (rejected)\n\nREJECTED: short")

	buf.Reset()
	require.NoError(t, Markdown(&buf, &orchestrator.ChainReport{
		Steps:  []orchestrator.ChainStep{{Agent: "a", Output: "one", Warnings: []string{"raw text"}}, {Agent: "b", Output: "two"}},
		Output: "two",
	}))
	assert.Contains(t, buf.String(), "## 1. a\n\none")
	assert.Contains(t, buf.String(), "> warning: raw text")
}

func TestMermaid_Plan(t *testing.T) {
	out, err := Mermaid(planReport())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "flowchart TD\n"))
	assert.Contains(t, out, "  S0 -->|zoning| Y\n")
	assert.Contains(t, out, "  class S1 failed\n")
	assert.Contains(t, out, `  S2["traffic"]`)
	assert.NotContains(t, out, "S2 -->")
}

func TestMermaid_ParallelAndChain(t *testing.T) {
	out, err := Mermaid(parallelReport())
	require.NoError(t, err)
	assert.Contains(t, out, "  T --> K0 --> Y\n")
	assert.Contains(t, out, "  class K1 failed\n")

	out, err = Mermaid(&orchestrator.ChainReport{Steps: []orchestrator.ChainStep{{Agent: "a"}, {Agent: "b"}}})
	require.NoError(t, err)
	assert.Contains(t, out, "  T --> C0\n  C1[\"b\"]\n  C0 --> C1\n")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "say 'hi'", label(`say "hi"`))
	assert.Equal(t, "a/b", label("a|b"))
	long := label(strings.Repeat("x", 60))
	assert.Len(t, []rune(long), 40)
}

func TestParseFormatAndWrite(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, " mermaid ": FormatMermaid, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMermaid, &orchestrator.Routed{Agent: "math"}))
	assert.Contains(t, buf.String(), "T -->|route| A0")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatText, &orchestrator.Routed{Agent: "math", Result: domain.Result{Output: "42"}}))
	assert.Equal(t, "# Routed to math\n\n42\n", buf.String())
}
