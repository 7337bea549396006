// Package oracle is the boundary to the text-reasoning capability. Every
// backend takes a system prompt and user content and returns text; failures
// match domain.ErrReasoningUnavailable.
package oracle

import (
	"context"
	"fmt"
)

// Client invokes the reasoning capability. Returned text is untrusted.
type Client interface {
	Invoke(ctx context.Context, system, user string) (string, error)
}

// Func adapts an ordinary function to Client.
type Func func(ctx context.Context, system, user string) (string, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// Name returns a backend's name for logs and spans.
func Name(c Client) string {
	if n, ok := c.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", c)
}
