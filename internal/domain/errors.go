package domain

import (
	"errors"
	"fmt"
)

// Pattern-level sentinels. Typed errors below match them through Is.
var (
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
	ErrMalformedStructure   = errors.New("malformed structure")
	ErrRoutingAmbiguous     = errors.New("routing ambiguous")
	ErrNoCapability         = errors.New("no capability for kind")
	ErrEmptyPlan            = errors.New("decomposition produced no subtasks")
)

// Supporting sentinels.
var (
	ErrDuplicateAgent = errors.New("duplicate agent name")
	ErrUnknownAgent   = errors.New("unknown agent")
	ErrInvalidInput   = errors.New("invalid input")

	// Oracle transport classes. All of them are also reasoning failures.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded: %w", ErrReasoningUnavailable)
	ErrAuthInvalid = fmt.Errorf("authentication failed: %w", ErrReasoningUnavailable)
	ErrCircuitOpen = fmt.Errorf("circuit open: %w", ErrReasoningUnavailable)
)

// MalformedStructureError reports an expected tag missing from oracle text.
// It is used as a warning: callers fall back to the raw text.
type MalformedStructureError struct {
	Tag string
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("malformed structure: <%s> section missing, using raw text", e.Tag)
}

// Is reports whether target is ErrMalformedStructure.
func (e *MalformedStructureError) Is(target error) bool {
	return target == ErrMalformedStructure
}

// RoutingAmbiguousError carries the classification text that matched no agent.
type RoutingAmbiguousError struct {
	Raw string
}

func (e *RoutingAmbiguousError) Error() string {
	return fmt.Sprintf("routing ambiguous: classification %q matches no registered agent", e.Raw)
}

// Is reports whether target is ErrRoutingAmbiguous.
func (e *RoutingAmbiguousError) Is(target error) bool {
	return target == ErrRoutingAmbiguous
}

// NoCapabilityError reports a subtask kind that no worker handles.
type NoCapabilityError struct {
	Kind string
}

func (e *NoCapabilityError) Error() string {
	return fmt.Sprintf("no capability for kind %q", e.Kind)
}

// Is reports whether target is ErrNoCapability.
func (e *NoCapabilityError) Is(target error) bool {
	return target == ErrNoCapability
}

// Unavailable prefixes err with op and makes it match
// ErrReasoningUnavailable. Errors that already match are only prefixed.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrReasoningUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrReasoningUnavailable, err)
}
