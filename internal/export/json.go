// Package export renders pattern reports as JSON, markdown and mermaid.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/orchestrator"
)

// now is replaced in tests.
var now = time.Now

// RunExport is the top-level JSON export structure.
type RunExport struct {
	Pattern    string `json:"pattern"`
	ExportedAt string `json:"exportedAt"`
	Report     any    `json:"report"`
}

// ResultExport is a worker result with its error flattened to text.
type ResultExport struct {
	domain.WorkerResult
	Error string `json:"error,omitempty"`
}

// PlanExport mirrors orchestrator.Report with failures kept.
type PlanExport struct {
	Task      domain.Task      `json:"task"`
	Analysis  string           `json:"analysis"`
	Subtasks  []domain.Subtask `json:"subtasks"`
	Results   []ResultExport   `json:"results"`
	Synthesis string           `json:"synthesis,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// ParallelExport mirrors orchestrator.ParallelReport with failures kept.
type ParallelExport struct {
	*orchestrator.ParallelReport
	Errors map[string]string `json:"errors,omitempty"`
}

// JSON writes v, one of the pattern reports, as indented JSON wrapped in a
// RunExport.
func JSON(w io.Writer, v any) error {
	pattern, report, err := exportable(v)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(RunExport{
		Pattern:    pattern,
		ExportedAt: now().UTC().Format(time.RFC3339),
		Report:     report,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func exportable(v any) (string, any, error) {
	switch r := v.(type) {
	case *orchestrator.Routed:
		return orchestrator.PatternRoute, r, nil
	case *orchestrator.Report:
		pe := PlanExport{
			Task:      r.Task,
			Analysis:  r.Analysis,
			Subtasks:  r.Subtasks,
			Synthesis: r.Synthesis,
			Warnings:  r.Warnings,
			Results:   make([]ResultExport, len(r.Results)),
		}
		for i, res := range r.Results {
			pe.Results[i] = ResultExport{WorkerResult: res}
			if res.Err != nil {
				pe.Results[i].Error = res.Err.Error()
			}
		}
		return orchestrator.PatternPlan, pe, nil
	case *orchestrator.ParallelReport:
		pe := ParallelExport{ParallelReport: r}
		if len(r.Failures) > 0 {
			pe.Errors = make(map[string]string, len(r.Failures))
			for k, e := range r.Failures {
				pe.Errors[k] = e.Error()
			}
		}
		return orchestrator.PatternParallel, pe, nil
	case *orchestrator.Outcome:
		return orchestrator.PatternRefine, r, nil
	case *orchestrator.ChainReport:
		return orchestrator.PatternChain, r, nil
	default:
		return "", nil, fmt.Errorf("%w: cannot export %T", domain.ErrInvalidInput, v)
	}
}
