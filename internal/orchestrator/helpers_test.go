package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/dusk-indust/agentflow/internal/agent"
	"github.com/dusk-indust/agentflow/internal/domain"
)

// call is one recorded oracle invocation.
type call struct {
	system string
	user   string
}

// scriptedOracle replies from a fixed script in order and records prompts.
// Running off the end of the script is an error.
type scriptedOracle struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	calls   []call
}

func script(replies ...string) *scriptedOracle {
	return &scriptedOracle{replies: replies}
}

func (o *scriptedOracle) failAt(i int, err error) *scriptedOracle {
	if o.errs == nil {
		o.errs = make(map[int]error)
	}
	o.errs[i] = err
	return o
}

func (o *scriptedOracle) Invoke(_ context.Context, system, user string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := len(o.calls)
	o.calls = append(o.calls, call{system: system, user: user})
	if err, ok := o.errs[i]; ok {
		return "", err
	}
	if i >= len(o.replies) {
		return "", errors.New("script exhausted")
	}
	return o.replies[i], nil
}

func (o *scriptedOracle) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

// recorder is an agent that records the tasks it receives.
type recorder struct {
	mu     sync.Mutex
	name   string
	output string
	err    error
	tasks  []domain.Task
}

func (r *recorder) descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:        r.name,
		Description: r.name + " specialist",
		Invoke: func(_ context.Context, task domain.Task) (domain.Result, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.tasks = append(r.tasks, task)
			if r.err != nil {
				return domain.Result{}, r.err
			}
			return domain.Result{Output: r.output}, nil
		},
	}
}

func (r *recorder) received() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Task(nil), r.tasks...)
}

// collect gathers progress events from any goroutine.
type collect struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (c *collect) emit(ev ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collect) statuses(step string) []ProgressStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ProgressStatus
	for _, ev := range c.events {
		if ev.Step == step {
			out = append(out, ev.Status)
		}
	}
	return out
}

func mustRegistry(descs ...agent.Descriptor) *agent.Registry {
	reg, err := agent.NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return reg
}
