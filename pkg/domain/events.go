package domain

import (
	"context"
	"log/slog"
	"time"
)

// Event is the external input handed to a Step. An empty Name is a tick: it
// carries no payload and is accepted by every flow.
type Event struct {
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Tick returns the empty event.
func Tick() Event { return Event{} }

// Scope is everything a behavior may read while a node is evaluated.
// Maps are copies; behaviors cannot mutate the flow state through them.
type Scope struct {
	Index     int
	Node      string
	Params    map[string]any
	Inputs    map[string]any
	Variables map[string]any
	Event     Event

	// Flow is the name of the running flow and Steps the number of
	// transitions the instance committed before this one.
	Flow  string
	Steps int
	// Logger carries the instance and node attributes. It is never nil
	// inside a running engine.
	Logger *slog.Logger
}

// Predicate decides the branch taken by a Condition node.
type Predicate func(ctx context.Context, s Scope) (bool, error)

// ActionFunc computes the variable updates applied by an Action node.
// A nil value deletes the variable. A key naming a value output of the node
// is written to that output's variable.
type ActionFunc func(ctx context.Context, s Scope) (map[string]any, error)

// HookType identifies a lifecycle notification.
type HookType string

const (
	HookNodeEnter HookType = "node_enter"
	HookNodeLeave HookType = "node_leave"
	HookAction    HookType = "action"
	HookTerminate HookType = "terminate"
)

// EventBase contains common fields for all lifecycle notifications.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       HookType  `json:"type"`
	InstanceID string    `json:"instance_id,omitempty"`
	Flow       string    `json:"flow,omitempty"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	Index int      `json:"index"`
	Node  string   `json:"node"`
	Kind  NodeKind `json:"kind"`
	Port  string   `json:"port,omitempty"`
}

// ActionEvent represents an applied Action node.
type ActionEvent struct {
	EventBase
	Index    int            `json:"index"`
	Node     string         `json:"node"`
	Behavior string         `json:"behavior,omitempty"`
	Updates  map[string]any `json:"updates,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks fire only for committed transitions.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnAction    func(context.Context, *ActionEvent)
	OnTerminate func(context.Context, *NodeEvent)
}
