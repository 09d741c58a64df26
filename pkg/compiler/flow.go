package compiler

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Version is the compiled flow format version.
const Version = 1

// NoTarget marks an output port without an outgoing execution edge.
const NoTarget = -1

// Flow is the immutable, index-based executable form of a validated graph.
// It holds no reference to the graph it was compiled from and can be shared
// read-only by any number of running instances.
type Flow struct {
	Version   int                          `json:"version"`
	Name      string                       `json:"name"`
	Entry     int                          `json:"entry"`
	Nodes     []CompiledNode               `json:"nodes"`
	Edges     []CompiledEdge               `json:"edges,omitempty"`
	Variables map[string]string            `json:"variables,omitempty"`
	Events    map[string]map[string]string `json:"events,omitempty"`
}

// CompiledNode is one node addressed by its position in Flow.Nodes.
type CompiledNode struct {
	Index    int             `json:"index"`
	SourceID domain.NodeID   `json:"source_id"`
	Kind     domain.NodeKind `json:"kind"`
	Name     string          `json:"name"`
	Payload  domain.Payload  `json:"payload,omitempty"`

	// Next holds, per output port, the index of the node an execution edge
	// leads to, or NoTarget.
	Next    []int            `json:"next,omitempty"`
	Inputs  []CompiledInput  `json:"inputs,omitempty"`
	Outputs []CompiledOutput `json:"outputs,omitempty"`
}

// CompiledInput describes where a value input reads from.
type CompiledInput struct {
	Name string           `json:"name"`
	Type domain.ValueType `json:"type"`
	// Source is the flow variable written by the connected output, if any.
	Source     string `json:"source,omitempty"`
	Default    any    `json:"default,omitempty"`
	HasDefault bool   `json:"has_default,omitempty"`
}

// CompiledOutput describes an output port. Value outputs name the flow
// variable they write to.
type CompiledOutput struct {
	Name     string           `json:"name"`
	Type     domain.ValueType `json:"type"`
	Variable string           `json:"variable,omitempty"`
}

// CompiledEdge is an edge rewritten to (node index, port index) pairs.
type CompiledEdge struct {
	From     int `json:"from"`
	FromPort int `json:"from_port"`
	To       int `json:"to"`
	ToPort   int `json:"to_port"`
}

// Node returns the node at index, or false when out of range.
func (f *Flow) Node(index int) (*CompiledNode, bool) {
	if index < 0 || index >= len(f.Nodes) {
		return nil, false
	}
	return &f.Nodes[index], true
}

// IndexOf returns the compiled index of a source node id.
func (f *Flow) IndexOf(id domain.NodeID) (int, bool) {
	for i := range f.Nodes {
		if f.Nodes[i].SourceID == id {
			return i, true
		}
	}
	return NoTarget, false
}

// OutputIndex returns the index of the named output port, or -1.
func (n *CompiledNode) OutputIndex(name string) int {
	for i, o := range n.Outputs {
		if o.Name == name {
			return i
		}
	}
	return -1
}

// MarshalBinary encodes the flow as canonical JSON. Map keys are sorted, so
// equal flows always produce identical bytes.
func (f *Flow) MarshalBinary() ([]byte, error) {
	return sonic.ConfigStd.Marshal(f)
}

// UnmarshalBinary decodes a flow produced by MarshalBinary and checks that it
// is internally consistent.
func (f *Flow) UnmarshalBinary(data []byte) error {
	var decoded Flow
	if err := sonic.ConfigStd.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode flow: %w", err)
	}
	for i := range decoded.Nodes {
		n := &decoded.Nodes[i]
		n.Payload = n.Payload.Clone()
		for j := range n.Inputs {
			n.Inputs[j].Default = domain.NormalizeValue(n.Inputs[j].Default)
		}
	}
	if err := decoded.Check(); err != nil {
		return err
	}
	*f = decoded
	return nil
}

// Check verifies that every index in the flow is in range and that each
// node has the execution outputs of its kind.
func (f *Flow) Check() error {
	if f.Version != Version {
		return fmt.Errorf("unsupported flow version %d (want %d)", f.Version, Version)
	}
	if len(f.Nodes) == 0 {
		return fmt.Errorf("flow %q has no nodes", f.Name)
	}
	if f.Entry < 0 || f.Entry >= len(f.Nodes) {
		return fmt.Errorf("flow %q: entry index %d out of range", f.Name, f.Entry)
	}
	if f.Nodes[f.Entry].Kind != domain.KindEntry {
		return fmt.Errorf("flow %q: entry index %d is a %s node", f.Name, f.Entry, f.Nodes[f.Entry].Kind)
	}
	for i, n := range f.Nodes {
		if n.Index != i {
			return fmt.Errorf("flow %q: node at position %d has index %d", f.Name, i, n.Index)
		}
		if !n.Kind.Valid() {
			return fmt.Errorf("flow %q: node %d has invalid kind", f.Name, i)
		}
		if len(n.Next) != len(n.Outputs) {
			return fmt.Errorf("flow %q: node %d has %d targets for %d outputs", f.Name, i, len(n.Next), len(n.Outputs))
		}
		for p, next := range n.Next {
			if next != NoTarget && (next < 0 || next >= len(f.Nodes)) {
				return fmt.Errorf("flow %q: node %d targets out-of-range index %d", f.Name, i, next)
			}
			if next != NoTarget && !n.Outputs[p].Type.IsExec() {
				return fmt.Errorf("flow %q: node %d value output %q has an execution target", f.Name, i, n.Outputs[p].Name)
			}
		}
		if err := n.checkLayout(); err != nil {
			return fmt.Errorf("flow %q: node %d (%s): %w", f.Name, i, n.Name, err)
		}
	}
	for _, e := range f.Edges {
		if e.From < 0 || e.From >= len(f.Nodes) || e.To < 0 || e.To >= len(f.Nodes) ||
			e.FromPort < 0 || e.FromPort >= len(f.Nodes[e.From].Outputs) ||
			e.ToPort < 0 || e.ToPort >= len(f.Nodes[e.To].Inputs) {
			return fmt.Errorf("flow %q: edge %d:%d->%d:%d out of range", f.Name, e.From, e.FromPort, e.To, e.ToPort)
		}
	}
	return nil
}

// checkLayout verifies the execution outputs the engine relies on for the
// node's kind: one leading "out" for entry, state and action nodes, exactly
// "true" and "false" for conditions and none for exits.
func (n *CompiledNode) checkLayout() error {
	exec := 0
	for _, o := range n.Outputs {
		if o.Type.IsExec() {
			exec++
		}
	}
	switch n.Kind {
	case domain.KindEntry, domain.KindState, domain.KindAction:
		if exec != 1 || !n.Outputs[0].Type.IsExec() {
			return fmt.Errorf("want a single leading execution output, have %d", exec)
		}
	case domain.KindCondition:
		for _, branch := range []string{domain.BranchTrue, domain.BranchFalse} {
			idx := n.OutputIndex(branch)
			if idx < 0 || !n.Outputs[idx].Type.IsExec() {
				return fmt.Errorf("missing %q branch output", branch)
			}
		}
		if exec != 2 {
			return fmt.Errorf("want 2 branch outputs, have %d", exec)
		}
	case domain.KindExit:
		if exec != 0 {
			return fmt.Errorf("exit node has %d execution outputs", exec)
		}
	}
	return nil
}
