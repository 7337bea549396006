// Package domain holds the data model and error taxonomy shared by the
// orchestration patterns.
package domain

import (
	"maps"
	"slices"
)

// Task is a natural-language instruction plus optional prior results.
// It is passed by value; use WithContext to extend the context safely.
type Task struct {
	Instruction string            `json:"instruction"`
	Focus       string            `json:"focus,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

// WithContext returns a copy of t with key set to value. The receiver's map
// is never mutated.
func (t Task) WithContext(key, value string) Task {
	ctx := make(map[string]string, len(t.Context)+1)
	maps.Copy(ctx, t.Context)
	ctx[key] = value
	t.Context = ctx
	return t
}

// ContextKeys returns the context keys in sorted order.
func (t Task) ContextKeys() []string {
	return slices.Sorted(maps.Keys(t.Context))
}

// Result is what an agent returns. Warnings describe degraded output.
type Result struct {
	Output   string   `json:"output"`
	Warnings []string `json:"warnings,omitempty"`
}

// Subtask is one typed unit of a decomposition.
type Subtask struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// WorkerResult records the outcome of dispatching one subtask.
type WorkerResult struct {
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Agent       string   `json:"agent,omitempty"`
	Output      string   `json:"output"`
	Warnings    []string `json:"warnings,omitempty"`
	Err         error    `json:"-"`
}

// Failed reports whether the dispatch failed.
func (r WorkerResult) Failed() bool { return r.Err != nil }

// Verdict is one evaluation of a candidate.
type Verdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}
