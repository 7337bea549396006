package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

// Markdown writes v, one of the pattern reports, as a human-readable
// markdown document.
func Markdown(w io.Writer, v any) error {
	var sb strings.Builder
	switch r := v.(type) {
	case *orchestrator.Routed:
		fmt.Fprintf(&sb, "# Routed to %s\n\n", r.Agent)
		sb.WriteString(r.Result.Output)
		sb.WriteString("\n")
		writeWarnings(&sb, r.Result.Warnings)
	case *orchestrator.Report:
		writePlan(&sb, r)
	case *orchestrator.ParallelReport:
		writeParallel(&sb, r)
	case *orchestrator.Outcome:
		writeOutcome(&sb, r)
	case *orchestrator.ChainReport:
		writeChain(&sb, r)
	default:
		return fmt.Errorf("%w: cannot render %T", domain.ErrInvalidInput, v)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writePlan(sb *strings.Builder, r *orchestrator.Report) {
	sb.WriteString("# Plan\n\n")
	if r.Analysis != "" {
		sb.WriteString(r.Analysis)
		sb.WriteString("\n\n")
	}
	for i, res := range r.Results {
		agent := res.Agent
		if agent == "" {
			agent = "unassigned"
		}
		fmt.Fprintf(sb, "## %d. %s (%s)\n\n", i+1, res.Kind, agent)
		fmt.Fprintf(sb, "_%s_\n\n", res.Description)
		if res.Failed() {
			fmt.Fprintf(sb, "**Failed:** %v\n\n", res.Err)
			continue
		}
		sb.WriteString(res.Output)
		sb.WriteString("\n\n")
	}
	// Subtasks skipped by cancellation have no result.
	for i := len(r.Results); i < len(r.Subtasks); i++ {
		st := r.Subtasks[i]
		fmt.Fprintf(sb, "## %d. %s (not run)\n\n_%s_\n\n", i+1, st.Kind, st.Description)
	}
	if r.Synthesis != "" {
		sb.WriteString("## Synthesis\n\n")
		sb.WriteString(r.Synthesis)
		sb.WriteString("\n")
	}
	writeWarnings(sb, r.Warnings)
}

func writeParallel(sb *strings.Builder, r *orchestrator.ParallelReport) {
	sb.WriteString("# Parallel run\n\n")
	for _, k := range r.Keys {
		fmt.Fprintf(sb, "## %s\n\n", k)
		if err, ok := r.Failures[k]; ok {
			fmt.Fprintf(sb, "**Failed:** %v\n\n", err)
			continue
		}
		sb.WriteString(r.Results[k])
		sb.WriteString("\n\n")
	}
	if r.Synthesis != "" {
		sb.WriteString("## Synthesis\n\n")
		sb.WriteString(r.Synthesis)
		sb.WriteString("\n")
	}
	writeWarnings(sb, r.Warnings)
}

func writeOutcome(sb *strings.Builder, o *orchestrator.Outcome) {
	fmt.Fprintf(sb, "# Refinement: %s after %d attempt(s)\n\n", o.State, o.Attempts)
	sb.WriteString(o.Candidate)
	sb.WriteString("\n")
	for i, a := range o.History {
		mark := "rejected"
		if a.Verdict.Approved {
			mark = "approved"
		}
		fmt.Fprintf(sb, "\n## Attempt %d (%s)\n\n%s\n", i+1, mark, a.Verdict.Feedback)
	}
}

func writeChain(sb *strings.Builder, r *orchestrator.ChainReport) {
	sb.WriteString("# Chain\n\n")
	for i, st := range r.Steps {
		fmt.Fprintf(sb, "## %d. %s\n\n%s\n\n", i+1, st.Agent, st.Output)
		for _, w := range st.Warnings {
			fmt.Fprintf(sb, "> warning: %s\n\n", w)
		}
	}
}

func writeWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	sb.WriteString("\n## Warnings\n\n")
	for _, w := range warnings {
		fmt.Fprintf(sb, "- %s\n", w)
	}
}
