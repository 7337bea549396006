package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/extract"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// Names of the built-in agents.
const (
	GenericName     = "generic"
	SynthesizerName = "synthesizer"
)

// Specialist is an oracle-backed agent with a persona and, optionally, a
// block of reference knowledge it must answer from.
type Specialist struct {
	Name         string
	Description  string
	Persona      string
	Knowledge    string
	Instructions string

	Oracle oracle.Client
	Logger *slog.Logger
}

// NewGeneric returns the catch-all worker used when no binding matches.
func NewGeneric(o oracle.Client, logger *slog.Logger) *Specialist {
	return &Specialist{
		Name:        GenericName,
		Description: "Handles any subtask no specialist claims",
		Persona:     "You are a capable generalist assistant.",
		Instructions: "Complete the focus you are given as part of the larger task. " +
			"Be concrete and say so when information is missing.",
		Oracle: o,
		Logger: logger,
	}
}

// NewSynthesizer returns the agent that merges worker findings into one
// answer.
func NewSynthesizer(o oracle.Client, logger *slog.Logger) *Specialist {
	return &Specialist{
		Name:        SynthesizerName,
		Description: "Combines specialist findings into a single answer",
		Persona:     "You are an editor who integrates reports from several specialists.",
		Instructions: "Merge the findings in the context into one coherent answer to the original task. " +
			"Resolve overlaps, point out conflicts and mention any specialist that failed.",
		Oracle: o,
		Logger: logger,
	}
}

// Descriptor returns the registry handle for s.
func (s *Specialist) Descriptor() Descriptor {
	return Descriptor{Name: s.Name, Description: s.Description, Invoke: s.Invoke}
}

// SystemPrompt combines persona, knowledge and instructions.
func (s *Specialist) SystemPrompt() string {
	var b strings.Builder
	b.WriteString(s.Persona)
	if s.Knowledge != "" {
		b.WriteString("\n\nUse only the following knowledge to answer, not your own:\n")
		b.WriteString(s.Knowledge)
	}
	if s.Instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(s.Instructions)
	}
	return strings.TrimSpace(b.String())
}

// Prompt renders the user content for task.
func (s *Specialist) Prompt(task domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original task: %s\n", task.Instruction)
	if task.Focus != "" {
		fmt.Fprintf(&b, "Your specific focus: %s\n", task.Focus)
	}
	if keys := task.ContextKeys(); len(keys) > 0 {
		b.WriteString("\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", k, task.Context[k])
		}
	}
	b.WriteString("\nWrite your answer inside <response></response> tags.")
	return b.String()
}

// Invoke asks the oracle and extracts the <response> section. A reply
// without one is used verbatim and reported as a warning.
func (s *Specialist) Invoke(ctx context.Context, task domain.Task) (res domain.Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "agent.invoke")
	span.SetAttributes(tracing.String("agent.name", s.Name))
	defer func() { tracing.End(span, err) }()

	text, err := s.Oracle.Invoke(ctx, s.SystemPrompt(), s.Prompt(task))
	if err != nil {
		return domain.Result{}, fmt.Errorf("agent %q: %w", s.Name, err)
	}

	out, werr := extract.SectionOrRaw(text, extract.TagResponse)
	res.Output = out
	if werr != nil {
		logging.OrDiscard(s.Logger).Warn("agent reply missing response tag", "agent", s.Name)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", s.Name, werr))
	}
	return res, nil
}
