package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/tracing"
)

// DefaultPollInterval is how often a Remote polls a task that an agent
// returned before it finished.
const DefaultPollInterval = 500 * time.Millisecond

// resultMetadata travels in the artifact metadata of a completed task.
type resultMetadata struct {
	Warnings []string `json:"warnings,omitempty"`
}

// Remote invokes an agent served over A2A.
type Remote struct {
	Name         string
	Description  string
	Endpoint     string
	Client       a2a.Client
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Descriptor returns the registry handle for r.
func (r *Remote) Descriptor() Descriptor {
	return Descriptor{Name: r.Name, Description: r.Description, Invoke: r.Invoke}
}

// Invoke sends task as a blocking message and waits for a terminal state.
// Transport failures match domain.ErrReasoningUnavailable.
func (r *Remote) Invoke(ctx context.Context, task domain.Task) (res domain.Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "agent.remote")
	span.SetAttributes(tracing.String("agent.name", r.Name), tracing.String("agent.endpoint", r.Endpoint))
	defer func() { tracing.End(span, err) }()

	data, err := a2a.DataPart(task)
	if err != nil {
		return domain.Result{}, fmt.Errorf("agent %q: encode task: %w", r.Name, err)
	}
	req := a2a.SendMessageRequest{
		Message: a2a.Message{
			MessageID: a2a.NewTaskID(),
			Role:      a2a.RoleUser,
			Parts:     []a2a.Part{a2a.TextPart(task.Instruction), data},
		},
		Configuration: &a2a.SendMessageConfig{Blocking: true},
	}

	t, err := r.Client.SendMessage(ctx, r.Endpoint, req)
	if err != nil {
		return domain.Result{}, domain.Unavailable("agent "+r.Name, err)
	}
	if !t.Status.State.IsTerminal() {
		if t, err = r.wait(ctx, t.ID); err != nil {
			return domain.Result{}, err
		}
	}
	return r.result(t)
}

func (r *Remote) wait(ctx context.Context, id string) (*a2a.Task, error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best effort; the caller's context is already gone.
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			_, _ = r.Client.CancelTask(cctx, r.Endpoint, a2a.CancelTaskRequest{ID: id})
			cancel()
			return nil, ctx.Err()
		case <-ticker.C:
			t, err := r.Client.GetTask(ctx, r.Endpoint, a2a.GetTaskRequest{ID: id})
			if err != nil {
				return nil, domain.Unavailable("agent "+r.Name, err)
			}
			if t.Status.State.IsTerminal() {
				return t, nil
			}
		}
	}
}

func (r *Remote) result(t *a2a.Task) (domain.Result, error) {
	switch t.Status.State {
	case a2a.TaskStateCompleted:
	case a2a.TaskStateFailed, a2a.TaskStateRejected:
		reason := "no reason given"
		if t.Status.Message != nil {
			reason = t.Status.Message.Text()
		}
		return domain.Result{}, fmt.Errorf("agent %q: task %s: %s", r.Name, t.Status.State, reason)
	default:
		return domain.Result{}, fmt.Errorf("agent %q: task ended in state %q", r.Name, t.Status.State)
	}

	res := domain.Result{Output: t.Text()}
	for _, a := range t.Artifacts {
		if len(a.Metadata) == 0 {
			continue
		}
		var md resultMetadata
		if err := json.Unmarshal(a.Metadata, &md); err != nil {
			logging.OrDiscard(r.Logger).Warn("ignoring artifact metadata", "agent", r.Name, "error", err)
			continue
		}
		res.Warnings = append(res.Warnings, md.Warnings...)
	}
	return res, nil
}
