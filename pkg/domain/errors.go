package domain

import (
	"errors"
	"fmt"
)

// Graph mutation errors.
var (
	// ErrNotFound is returned when an id references a removed or nonexistent node or port.
	ErrNotFound = errors.New("not found")
	// ErrTypeMismatch is returned when two ports of different types are connected,
	// or a value does not satisfy a port type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrPortOccupied is returned when a port cannot accept another edge.
	ErrPortOccupied = errors.New("port occupied")
	// ErrInvalidPort is returned when a port definition is not acceptable for a node.
	ErrInvalidPort = errors.New("invalid port")
)

// Compilation errors.
var (
	// ErrValidationFailed is returned when compilation is refused because of fatal validation issues.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUnknownBehavior is returned when a node names a behavior no provider supplies.
	ErrUnknownBehavior = errors.New("unknown behavior")
)

// Execution errors.
var (
	// ErrBrokenTransition signals a compiler/validator invariant violation at runtime.
	// The flow state is marked invalid and cannot be stepped again.
	ErrBrokenTransition = errors.New("broken transition")
	// ErrInvalidEvent is returned for unknown or out-of-range event data. The state is unchanged.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrAlreadyTerminated is returned when stepping a state that reached an Exit node.
	ErrAlreadyTerminated = errors.New("flow already terminated")
	// ErrInvalidState is returned when stepping a state previously halted by a broken transition.
	ErrInvalidState = errors.New("flow state is invalid")
	// ErrBehaviorFailed is returned when a predicate or action fails. The state is unchanged.
	ErrBehaviorFailed = errors.New("behavior failed")
	// ErrInvalidBinding is returned when initial variable bindings do not match the declared variables.
	ErrInvalidBinding = errors.New("invalid variable binding")
	// ErrBreakpoint is returned together with a committed state when the
	// cursor arrives at a node marked as a breakpoint.
	ErrBreakpoint = errors.New("breakpoint")
	// ErrSubflowRecursion is returned when a subflow would run a flow that is already running.
	ErrSubflowRecursion = errors.New("subflow recursion not allowed")
)

// ErrInstanceNotFound is returned when an instance id cannot be found in the store.
var ErrInstanceNotFound = errors.New("flow instance not found")

// PortError describes a rejected graph mutation on a specific port.
type PortError struct {
	Op     string
	Node   NodeID
	Port   int
	Reason string
	Err    error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("%s: node %d port %d: %s: %v", e.Op, e.Node, e.Port, e.Reason, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// TransitionError describes a runtime transition that could not be resolved.
type TransitionError struct {
	Index  int
	Node   string
	Branch string
}

func (e *TransitionError) Error() string {
	if e.Branch != "" {
		return fmt.Sprintf("node %d (%s) has no edge for branch %q", e.Index, e.Node, e.Branch)
	}
	return fmt.Sprintf("node %d (%s) has no outgoing edge", e.Index, e.Node)
}

func (e *TransitionError) Unwrap() error { return ErrBrokenTransition }

// EventError describes a rejected event.
type EventError struct {
	Event  string
	Reason string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %q rejected: %s", e.Event, e.Reason)
}

func (e *EventError) Unwrap() error { return ErrInvalidEvent }

// BehaviorError wraps a failure raised by (or about) a node behavior.
type BehaviorError struct {
	Node     string
	Behavior string
	Err      error
}

func (e *BehaviorError) Error() string {
	return fmt.Sprintf("behavior %q on node %s failed: %v", e.Behavior, e.Node, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *BehaviorError) Unwrap() []error { return []error{ErrBehaviorFailed, e.Err} }
