package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/extract"
	"github.com/dusk-indust/agentflow/internal/oracle"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// RefineState is the terminal state of a refinement loop.
type RefineState string

const (
	StateApproved  RefineState = "approved"
	StateExhausted RefineState = "exhausted"
)

// Generator produces a candidate for request. feedback is empty on the first
// attempt and holds the latest evaluator feedback afterwards.
type Generator interface {
	Generate(ctx context.Context, request, feedback string) (string, error)
}

// Evaluator judges a candidate.
type Evaluator interface {
	Evaluate(ctx context.Context, request, candidate string) (domain.Verdict, error)
}

// Attempt is one generate/evaluate round.
type Attempt struct {
	Candidate string         `json:"candidate"`
	Verdict   domain.Verdict `json:"verdict"`
}

// Outcome is the result of a refinement loop. On exhaustion Candidate and
// Verdict are those of the last attempt.
type Outcome struct {
	Candidate string         `json:"candidate"`
	Verdict   domain.Verdict `json:"verdict"`
	Attempts  int            `json:"attempts"`
	State     RefineState    `json:"state"`
	History   []Attempt      `json:"history"`
}

// Refiner alternates generation and evaluation until the evaluator approves
// or the attempt budget is spent.
type Refiner struct {
	gen  Generator
	eval Evaluator
	opts options
}

// NewRefiner creates a Refiner. The budget defaults to DefaultMaxAttempts.
func NewRefiner(gen Generator, eval Evaluator, opts ...Option) *Refiner {
	return &Refiner{gen: gen, eval: eval, opts: newOptions(opts)}
}

// MaxAttempts returns the attempt budget.
func (r *Refiner) MaxAttempts() int { return r.opts.maxAttempts }

// Refine runs the loop. Exhausting the budget is not an error; generator
// and evaluator errors are. An error after at least one completed attempt
// still returns the outcome so far, in the exhausted state.
func (r *Refiner) Refine(ctx context.Context, request string) (out *Outcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "pattern.refine")
	defer func() { tracing.End(span, err) }()

	out = &Outcome{State: StateExhausted}
	feedback := ""
	for attempt := 1; attempt <= r.opts.maxAttempts; attempt++ {
		step := fmt.Sprintf("attempt %d", attempt)
		r.opts.emit(ProgressEvent{Pattern: PatternRefine, Step: step, Status: ProgressWorking})

		candidate, err := r.gen.Generate(ctx, request, feedback)
		if err != nil {
			r.opts.emit(ProgressEvent{Pattern: PatternRefine, Step: step, Status: ProgressFailed, Message: err.Error()})
			return partial(out), fmt.Errorf("generate (attempt %d): %w", attempt, err)
		}
		verdict, err := r.eval.Evaluate(ctx, request, candidate)
		if err != nil {
			r.opts.emit(ProgressEvent{Pattern: PatternRefine, Step: step, Status: ProgressFailed, Message: err.Error()})
			return partial(out), fmt.Errorf("evaluate (attempt %d): %w", attempt, err)
		}

		out.Candidate, out.Verdict, out.Attempts = candidate, verdict, attempt
		out.History = append(out.History, Attempt{Candidate: candidate, Verdict: verdict})

		if verdict.Approved {
			r.opts.emit(ProgressEvent{Pattern: PatternRefine, Step: step, Status: ProgressComplete, Message: "approved"})
			out.State = StateApproved
			break
		}
		r.opts.emit(ProgressEvent{Pattern: PatternRefine, Step: step, Status: ProgressComplete, Message: "rejected"})
		r.opts.logger.Info("candidate rejected", "attempt", attempt, "max_attempts", r.opts.maxAttempts)
		feedback = verdict.Feedback
	}

	span.SetAttributes(tracing.Int("refine.attempts", out.Attempts), tracing.Bool("refine.approved", out.State == StateApproved))
	if out.State == StateExhausted {
		r.opts.logger.Warn("refinement budget exhausted", "attempts", out.Attempts)
	}
	return out, nil
}

// partial returns out when an attempt has completed, nil otherwise.
func partial(out *Outcome) *Outcome {
	if out.Attempts == 0 {
		return nil
	}
	return out
}

// NewOracleRefiner builds a Refiner whose generator and evaluator both use
// o with the default prompts.
func NewOracleRefiner(o oracle.Client, checklist []string, token string, opts ...Option) *Refiner {
	return NewRefiner(
		&OracleGenerator{Oracle: o, System: DefaultGeneratorSystem, StrictSystem: DefaultStrictGeneratorSystem},
		&OracleEvaluator{Oracle: o, Checklist: checklist, Token: token},
		opts...,
	)
}

// OracleGenerator generates candidates with the oracle. StrictSystem, when
// set, replaces System once there is feedback to address.
type OracleGenerator struct {
	Oracle       oracle.Client
	System       string
	StrictSystem string
}

// Generate implements Generator.
func (g *OracleGenerator) Generate(ctx context.Context, request, feedback string) (string, error) {
	system := g.System
	if feedback != "" && g.StrictSystem != "" {
		system = g.StrictSystem
	}
	return g.Oracle.Invoke(ctx, system, generationInput(request, feedback))
}

// OracleEvaluator judges candidates with the oracle against a checklist.
// The reply approves when its first token is Token.
type OracleEvaluator struct {
	Oracle    oracle.Client
	Checklist []string
	Token     string
}

// Evaluate implements Evaluator.
func (e *OracleEvaluator) Evaluate(ctx context.Context, request, candidate string) (domain.Verdict, error) {
	token := e.Token
	if token == "" {
		token = extract.DefaultApprovalToken
	}
	reply, err := e.Oracle.Invoke(ctx, evaluatorPrompt(e.Checklist, token), evaluationInput(request, candidate))
	if err != nil {
		return domain.Verdict{}, err
	}
	return extract.Verdict(reply, token), nil
}
