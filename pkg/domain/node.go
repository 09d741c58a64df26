package domain

import (
	"fmt"
	"strings"
)

// NodeID identifies a node inside a Graph. IDs are never reused, so they stay
// stable across edits. Zero is not a valid id.
type NodeID uint64

// NodeKind is the closed set of node behaviours understood by the engine.
type NodeKind uint8

const (
	// KindEntry is the single starting point of a flow. It has no inputs.
	KindEntry NodeKind = iota + 1
	// KindState is a plain waypoint that advances unconditionally.
	KindState
	// KindCondition evaluates a predicate and follows its "true" or "false" branch.
	KindCondition
	// KindAction applies a side-effect to the flow variables, then advances.
	KindAction
	// KindExit terminates the flow instance. It has no outputs.
	KindExit
)

var kindNames = map[NodeKind]string{
	KindEntry:     "entry",
	KindState:     "state",
	KindCondition: "condition",
	KindAction:    "action",
	KindExit:      "exit",
}

// Kinds lists every node kind in declaration order.
func Kinds() []NodeKind {
	return []NodeKind{KindEntry, KindState, KindCondition, KindAction, KindExit}
}

// Valid reports whether k is one of the declared kinds.
func (k NodeKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseNodeKind converts a textual kind ("entry", "State", ...) into a NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	clean := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == clean {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid node kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Branch names used by Condition nodes.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Default port names.
const (
	PortIn  = "in"
	PortOut = "out"
)

// Payload is the opaque behaviour reference carried by a node.
// The engine only interprets Behavior (a registry key); Params are handed to
// the behaviour untouched.
type Payload struct {
	Behavior string         `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Clone returns a deep copy of the payload with normalized values.
func (p Payload) Clone() Payload {
	out := Payload{Behavior: p.Behavior}
	if len(p.Params) > 0 {
		out.Params = NormalizeMap(p.Params)
	}
	return out
}

// IsZero reports whether the payload carries nothing.
func (p Payload) IsZero() bool {
	return p.Behavior == "" && len(p.Params) == 0
}

// Node is a single vertex of a flow graph.
type Node struct {
	ID      NodeID   `json:"id" yaml:"id"`
	Kind    NodeKind `json:"kind" yaml:"kind"`
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Inputs  []Port   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []Port   `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Payload Payload  `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	out.Inputs = clonePorts(n.Inputs)
	out.Outputs = clonePorts(n.Outputs)
	out.Payload = n.Payload.Clone()
	return out
}

// Ports returns the ordered port list for the given direction.
func (n *Node) Ports(dir Direction) []Port {
	if dir == In {
		return n.Inputs
	}
	return n.Outputs
}

// Port returns the port at index in the given direction.
func (n *Node) Port(dir Direction, index int) (Port, bool) {
	ports := n.Ports(dir)
	if index < 0 || index >= len(ports) {
		return Port{}, false
	}
	return ports[index], true
}

// PortIndex returns the index of the named port, or -1.
func (n *Node) PortIndex(dir Direction, name string) int {
	for i, p := range n.Ports(dir) {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// defaultPorts returns the fixed execution ports of a kind.
func defaultPorts(id NodeID, kind NodeKind) (inputs, outputs []Port) {
	execIn := Port{Node: id, Name: PortIn, Direction: In, Type: Exec()}
	execOut := func(name string) Port {
		return Port{Node: id, Name: name, Direction: Out, Type: Exec()}
	}

	switch kind {
	case KindEntry:
		return nil, []Port{execOut(PortOut)}
	case KindState, KindAction:
		return []Port{execIn}, []Port{execOut(PortOut)}
	case KindCondition:
		return []Port{execIn}, []Port{execOut(BranchTrue), execOut(BranchFalse)}
	case KindExit:
		return []Port{execIn}, nil
	}
	return nil, nil
}

func clonePorts(ports []Port) []Port {
	if len(ports) == 0 {
		return nil
	}
	out := make([]Port, len(ports))
	for i, p := range ports {
		out[i] = p.Clone()
	}
	return out
}
