package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

// Mermaid produces a flowchart of how v, one of the pattern reports, moved
// work between agents. Failed nodes get the "failed" class.
func Mermaid(v any) (string, error) {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	sb.WriteString("  classDef failed stroke:#c00,stroke-width:2px\n")

	switch r := v.(type) {
	case *orchestrator.Routed:
		sb.WriteString("  T[\"task\"]\n")
		fmt.Fprintf(&sb, "  A0[\"%s\"]\n", label(r.Agent))
		sb.WriteString("  T -->|route| A0\n")
	case *orchestrator.Report:
		sb.WriteString("  T[\"task\"]\n  P[\"planner\"]\n  T --> P\n")
		for i, st := range r.Subtasks {
			id := fmt.Sprintf("S%d", i)
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", id, label(st.Kind))
			fmt.Fprintf(&sb, "  P --> %s\n", id)
			if i >= len(r.Results) {
				continue
			}
			res := r.Results[i]
			if res.Agent != "" {
				fmt.Fprintf(&sb, "  %s -->|%s| Y\n", id, label(res.Agent))
			} else {
				fmt.Fprintf(&sb, "  %s --> Y\n", id)
			}
			if res.Failed() {
				fmt.Fprintf(&sb, "  class %s failed\n", id)
			}
		}
		sb.WriteString("  Y[\"synthesis\"]\n")
	case *orchestrator.ParallelReport:
		sb.WriteString("  T[\"task\"]\n  Y[\"synthesis\"]\n")
		for i, k := range r.Keys {
			id := fmt.Sprintf("K%d", i)
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", id, label(k))
			fmt.Fprintf(&sb, "  T --> %s --> Y\n", id)
			if _, failed := r.Failures[k]; failed {
				fmt.Fprintf(&sb, "  class %s failed\n", id)
			}
		}
	case *orchestrator.Outcome:
		prev := "T"
		sb.WriteString("  T[\"request\"]\n")
		for i, a := range r.History {
			id := fmt.Sprintf("A%d", i)
			verdict := "rejected"
			if a.Verdict.Approved {
				verdict = "approved"
			}
			fmt.Fprintf(&sb, "  %s[\"attempt %d: %s\"]\n", id, i+1, verdict)
			fmt.Fprintf(&sb, "  %s --> %s\n", prev, id)
			prev = id
		}
	case *orchestrator.ChainReport:
		prev := "T"
		sb.WriteString("  T[\"task\"]\n")
		for i, st := range r.Steps {
			id := fmt.Sprintf("C%d", i)
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", id, label(st.Agent))
			fmt.Fprintf(&sb, "  %s --> %s\n", prev, id)
			prev = id
		}
	default:
		return "", fmt.Errorf("%w: cannot diagram %T", domain.ErrInvalidInput, v)
	}
	return sb.String(), nil
}

// label makes s safe inside a quoted mermaid label and keeps it short.
func label(s string) string {
	s = strings.NewReplacer(`"`, "'", "\n", " ", "|", "/").Replace(strings.TrimSpace(s))
	if r := []rune(s); len(r) > 40 {
		s = string(r[:39]) + "…"
	}
	return s
}
