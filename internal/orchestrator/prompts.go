package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
)

// errorMarkerPrefix starts the text that stands in for a failed result.
const errorMarkerPrefix = "[error] "

// ErrorMarker renders err as the stand-in text for a failed result.
func ErrorMarker(err error) string {
	return errorMarkerPrefix + err.Error()
}

// IsErrorMarker reports whether s was produced by ErrorMarker.
func IsErrorMarker(s string) bool {
	return strings.HasPrefix(s, errorMarkerPrefix)
}

const routerSystem = `You are a router. Choose the single agent best suited to the user's request.
Reply with the agent's name only, exactly as written in the list, with no other text.`

func classificationPrompt(agents []agent.Descriptor) string {
	var b strings.Builder
	b.WriteString(routerSystem)
	b.WriteString("\n\nAgents:\n")
	for _, d := range agents {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	return b.String()
}

func classificationRetry(request, rejected string, names []string) string {
	return fmt.Sprintf("%s\n\nYour previous answer %q is not one of the agents. "+
		"Reply with exactly one of: %s", request, rejected, strings.Join(names, ", "))
}

const defaultPlannerSystem = `You are a planner. Analyze the task and break it into independent subtasks, one per area of expertise it needs.

Return your response in the following format, with an <analysis> section and a <tasks> section.

<analysis>
A short summary of the task and the overall goal.
</analysis>

<tasks>
One <task> entry per subtask. Each task has a <type> and a <description>:
<task>
  <type>kind of expertise</type>
  <description>What the worker should do</description>
</task>
</tasks>`

func plannerPrompt(task domain.Task, workers []agent.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Instruction)
	if task.Focus != "" {
		fmt.Fprintf(&b, "Your specific focus: %s\n", task.Focus)
	}
	for _, k := range task.ContextKeys() {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", k, task.Context[k])
	}
	if len(workers) > 0 {
		b.WriteString("\nAvailable workers (use their expertise as task types where it fits):\n")
		for _, d := range workers {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		}
	}
	return b.String()
}

const (
	planSynthesisFocus     = "Synthesize the worker results below into one coherent answer to the original task."
	parallelSynthesisFocus = "Combine the specialist analyses below into one coherent answer to the original task."
)

// Context keys given to the synthesizer.
const (
	contextAnalysis = "analysis"
	contextFindings = "findings"
	contextTask     = "task"
)

func renderFinding(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "## %s\n%s\n\n", title, body)
}

const evaluatorSystem = `You are a strict reviewer. Check the candidate against every criterion below.
%s
If every criterion is met, begin your reply with %s. Otherwise begin with REJECTED and list each problem so it can be fixed.`

func evaluatorPrompt(checklist []string, token string) string {
	var b strings.Builder
	for i, c := range checklist {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return fmt.Sprintf(evaluatorSystem, b.String(), token)
}

func evaluationInput(request, candidate string) string {
	return fmt.Sprintf("Request:\n%s\n\nCandidate:\n%s", request, candidate)
}

// Generator prompts. The strict one is used once there is feedback to address.
const (
	DefaultGeneratorSystem = `You are a careful writer. Produce the best answer you can for the request.`

	DefaultStrictGeneratorSystem = `You are a careful writer revising a rejected answer. Address every issue listed in the feedback. Keep what was already correct and change nothing else.`
)

// FeedbackPreamble introduces evaluator feedback in a regeneration prompt.
const FeedbackPreamble = "Your previous attempt had the following issues:\n"

// refineRequest renders a task as a refinement request. A bare instruction
// is used as is; a worker task also carries its focus and context.
func refineRequest(task domain.Task) string {
	keys := task.ContextKeys()
	if task.Focus == "" && len(keys) == 0 {
		return task.Instruction
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Original task: %s\n", task.Instruction)
	if task.Focus != "" {
		fmt.Fprintf(&b, "Your specific focus: %s\n", task.Focus)
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", k, task.Context[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func generationInput(request, feedback string) string {
	if feedback == "" {
		return request
	}
	return request + "\n\n" + FeedbackPreamble + feedback
}
