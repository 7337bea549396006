package agent

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dusk-indust/agentflow/internal/domain"
)

// binding maps lower-cased kind markers to a registered agent.
type binding struct {
	name    string
	markers []string
}

// Registry is an ordered set of uniquely named agents plus the dispatch
// table that resolves subtask kinds to workers. It is built once per run
// and then only read, so it carries no lock.
type Registry struct {
	agents   []Descriptor
	index    map[string]int
	bindings []binding
	fallback string
}

// NewRegistry returns a Registry holding descs in order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{index: make(map[string]int)}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends d. Names must be unique.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, exists := r.index[d.Name]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateAgent, d.Name)
	}
	r.index[d.Name] = len(r.agents)
	r.agents = append(r.agents, d)
	return nil
}

// Lookup returns the agent registered under exactly name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.agents[i], true
}

// Descriptors returns the registered agents in registration order.
func (r *Registry) Descriptors() []Descriptor {
	return slices.Clone(r.agents)
}

// Names returns the registered agent names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.agents))
	for i, d := range r.agents {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.agents) }

// Bind routes every subtask kind containing one of markers to the agent
// called name. Bindings are consulted in the order they were added.
func (r *Registry) Bind(name string, markers ...string) error {
	if _, ok := r.index[name]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownAgent, name)
	}
	var lowered []string
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	if len(lowered) == 0 {
		return fmt.Errorf("%w: binding for %q has no markers", domain.ErrInvalidInput, name)
	}
	r.bindings = append(r.bindings, binding{name: name, markers: lowered})
	return nil
}

// SetFallback designates the worker used for kinds no binding matches.
func (r *Registry) SetFallback(name string) error {
	if _, ok := r.index[name]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownAgent, name)
	}
	r.fallback = name
	return nil
}

// Fallback returns the generic worker, if one is set.
func (r *Registry) Fallback() (Descriptor, bool) {
	if r.fallback == "" {
		return Descriptor{}, false
	}
	return r.Lookup(r.fallback)
}

// Worker resolves a subtask kind. The first binding with a marker contained
// in the lower-cased kind wins; otherwise the fallback is used. Without a
// fallback an unmatched kind is a *domain.NoCapabilityError.
func (r *Registry) Worker(kind string) (Descriptor, error) {
	k := strings.ToLower(kind)
	for _, b := range r.bindings {
		for _, m := range b.markers {
			if strings.Contains(k, m) {
				d, _ := r.Lookup(b.name)
				return d, nil
			}
		}
	}
	if d, ok := r.Fallback(); ok {
		return d, nil
	}
	return Descriptor{}, &domain.NoCapabilityError{Kind: kind}
}
