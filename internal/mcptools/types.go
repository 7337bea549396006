package mcptools

// --- MCP tool types ---
// Inputs carry jsonschema descriptions so clients see what each field means.

// RouteInput is the input for the route tool.
type RouteInput struct {
	Task    string            `json:"task" jsonschema:"the request to classify and hand to one agent"`
	Context map[string]string `json:"context,omitempty" jsonschema:"prior results forwarded to the chosen agent"`
}

// RouteOutput is the result of the route tool.
type RouteOutput struct {
	Agent    string   `json:"agent"`
	Output   string   `json:"output"`
	Attempts int      `json:"attempts"`
	Warnings []string `json:"warnings,omitempty"`
}

// ExecutePlanInput is the input for the execute_plan tool.
type ExecutePlanInput struct {
	Task    string            `json:"task" jsonschema:"the request to decompose into typed subtasks"`
	Context map[string]string `json:"context,omitempty" jsonschema:"prior results made available to the planner and workers"`
}

// SubtaskOutput is one dispatched subtask.
type SubtaskOutput struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Agent       string `json:"agent,omitempty"`
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ExecutePlanOutput is the result of the execute_plan tool.
type ExecutePlanOutput struct {
	Analysis  string          `json:"analysis"`
	Subtasks  []SubtaskOutput `json:"subtasks"`
	Synthesis string          `json:"synthesis"`
	Failures  int             `json:"failures"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// RunParallelInput is the input for the run_parallel tool.
type RunParallelInput struct {
	Task        string   `json:"task" jsonschema:"the request every specialist works on"`
	Specialists []string `json:"specialists,omitempty" jsonschema:"agent names to fan out to (default: the catalog's parallel set)"`
}

// RunParallelOutput is the result of the run_parallel tool.
type RunParallelOutput struct {
	Results   map[string]string `json:"results"`
	Errors    map[string]string `json:"errors,omitempty"`
	Synthesis string            `json:"synthesis"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// RefineInput is the input for the refine tool.
type RefineInput struct {
	Request     string   `json:"request" jsonschema:"what to generate"`
	Checklist   []string `json:"checklist,omitempty" jsonschema:"criteria the evaluator checks every candidate against"`
	MaxAttempts int      `json:"maxAttempts,omitempty" jsonschema:"attempt budget (default from configuration)"`
}

// RefineOutput is the result of the refine tool.
type RefineOutput struct {
	Candidate string `json:"candidate"`
	Approved  bool   `json:"approved"`
	Attempts  int    `json:"attempts"`
	Feedback  string `json:"feedback"`
}

// RunChainInput is the input for the run_chain tool.
type RunChainInput struct {
	Task  string   `json:"task" jsonschema:"the instruction given to the first step"`
	Steps []string `json:"steps,omitempty" jsonschema:"agent names in order (default: the catalog's chain)"`
}

// ChainStepOutput is one link of a chain.
type ChainStepOutput struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// RunChainOutput is the result of the run_chain tool.
type RunChainOutput struct {
	Steps  []ChainStepOutput `json:"steps"`
	Output string            `json:"output"`
}

// ListAgentsInput is the input for the list_agents tool.
type ListAgentsInput struct{}

// AgentSummary describes one registered agent.
type AgentSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListAgentsOutput is the result of the list_agents tool.
type ListAgentsOutput struct {
	Agents   []AgentSummary `json:"agents"`
	Fallback string         `json:"fallback,omitempty"`
	Parallel []string       `json:"parallel,omitempty"`
	Chain    []string       `json:"chain,omitempty"`
}
