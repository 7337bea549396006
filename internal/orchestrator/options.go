// Package orchestrator implements the control patterns that coordinate
// oracle calls and agents: routing, orchestrator/workers, parallel
// fan-out/fan-in, evaluator/optimizer refinement and prompt chaining.
package orchestrator

import (
	"log/slog"
	"time"

	"github.com/dusk-indust/agentflow/internal/logging"
)

// DefaultMaxAttempts bounds the refinement loop.
const DefaultMaxAttempts = 5

type options struct {
	logger            *slog.Logger
	progress          func(ProgressEvent)
	classifyRetries   int
	specialistTimeout time.Duration
	maxAttempts       int
	plannerSystem     string
}

// Option configures a pattern. Options a pattern does not use are ignored.
type Option func(*options)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress registers a callback for progress events. Fan-out calls it
// from worker goroutines, so it must be safe for concurrent use;
// ProgressReporter.Emit is.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(o *options) { o.progress = fn }
}

// WithClassifyRetries lets the router re-ask the oracle n times when the
// classification names no agent.
func WithClassifyRetries(n int) Option {
	return func(o *options) { o.classifyRetries = max(n, 0) }
}

// WithSpecialistTimeout bounds each fan-out specialist. Zero means no bound.
func WithSpecialistTimeout(d time.Duration) Option {
	return func(o *options) { o.specialistTimeout = d }
}

// WithMaxAttempts sets the refinement budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithPlannerSystem replaces the orchestrator's decomposition system prompt.
func WithPlannerSystem(s string) Option {
	return func(o *options) { o.plannerSystem = s }
}

func newOptions(opts []Option) options {
	o := options{maxAttempts: DefaultMaxAttempts, plannerSystem: defaultPlannerSystem}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrDiscard(o.logger)
	return o
}

func (o options) emit(ev ProgressEvent) {
	if o.progress != nil {
		o.progress(ev)
	}
}
