package orchestrator

import "fmt"

// Pattern names used in progress events and spans.
const (
	PatternRoute    = "route"
	PatternPlan     = "plan"
	PatternParallel = "parallel"
	PatternRefine   = "refine"
	PatternChain    = "chain"
)

// ProgressEvent is emitted while a pattern runs. Step is a specialist key,
// a subtask kind, a chain step or an attempt label.
type ProgressEvent struct {
	Pattern string
	Step    string
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of one step.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  \u25cb %s (pending)", event.Step)
	case ProgressWorking:
		return fmt.Sprintf("  \u25cf %s...", event.Step)
	case ProgressComplete:
		if event.Message != "" {
			return fmt.Sprintf("  \u2713 %s complete: %s", event.Step, event.Message)
		}
		return fmt.Sprintf("  \u2713 %s complete", event.Step)
	case ProgressFailed:
		return fmt.Sprintf("  \u2717 %s failed: %s", event.Step, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Step)
	}
}

// FormatPatternHeader formats a header line for a pattern run.
func FormatPatternHeader(name, pattern string) string {
	return fmt.Sprintf("[%s] %s", name, pattern)
}
