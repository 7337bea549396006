package agent

import (
	"context"
	"sync"

	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/oracle"
)

// recordingOracle answers with reply and keeps every prompt it received.
type recordingOracle struct {
	mu      sync.Mutex
	reply   string
	err     error
	systems []string
	users   []string
}

func (o *recordingOracle) Invoke(_ context.Context, system, user string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.systems = append(o.systems, system)
	o.users = append(o.users, user)
	return o.reply, o.err
}

var _ oracle.Client = (*recordingOracle)(nil)

// echo returns a descriptor whose output names itself and the focus.
func echo(name string) Descriptor {
	return Descriptor{
		Name:        name,
		Description: name + " agent",
		Invoke: func(_ context.Context, task domain.Task) (domain.Result, error) {
			return domain.Result{Output: name + ":" + task.Focus}, nil
		},
	}
}
