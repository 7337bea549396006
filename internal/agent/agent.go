// Package agent holds the named invocation handles the orchestration
// patterns dispatch to, the registry that resolves them, and the adapters
// that back them with an oracle or a remote A2A agent.
package agent

import (
	"context"
	"fmt"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// InvokeFunc runs an agent on one task.
type InvokeFunc func(ctx context.Context, task domain.Task) (domain.Result, error)

// Descriptor is a named invocation handle. It is immutable once registered.
type Descriptor struct {
	Name        string
	Description string
	Invoke      InvokeFunc
}

// Validate reports whether d can be registered.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: agent name is empty", domain.ErrInvalidInput)
	}
	if d.Invoke == nil {
		return fmt.Errorf("%w: agent %q has no invoke function", domain.ErrInvalidInput, d.Name)
	}
	return nil
}

// Static returns a descriptor that always answers with output. It is useful
// for fixtures and for wiring canned responses into a pattern.
func Static(name, description, output string) Descriptor {
	return Descriptor{
		Name:        name,
		Description: description,
		Invoke: func(context.Context, domain.Task) (domain.Result, error) {
			return domain.Result{Output: output}, nil
		},
	}
}
