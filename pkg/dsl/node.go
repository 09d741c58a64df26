package dsl

import (
	"github.com/aretw0/gameflow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	name     string
	kind     domain.NodeKind
	behavior string
	params   map[string]any
	ports    []domain.Port
	fanOut   []string

	// next maps an execution output to its comma separated targets.
	next      map[string]string
	nextOrder []string

	builder *Builder
}

// Do sets the behavior invoked by an Action node.
func (n *NodeBuilder) Do(behavior string, params map[string]any) *NodeBuilder {
	n.behavior = behavior
	n.params = params
	return n
}

// When sets the predicate evaluated by a Condition node.
func (n *NodeBuilder) When(predicate string, params map[string]any) *NodeBuilder {
	return n.Do(predicate, params)
}

// Go connects the "out" execution port to target.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.on(domain.PortOut, target)
}

// True connects the "true" branch of a Condition node to target.
func (n *NodeBuilder) True(target string) *NodeBuilder {
	return n.on(domain.BranchTrue, target)
}

// False connects the "false" branch of a Condition node to target.
func (n *NodeBuilder) False(target string) *NodeBuilder {
	return n.on(domain.BranchFalse, target)
}

func (n *NodeBuilder) on(port, target string) *NodeBuilder {
	if existing, ok := n.next[port]; ok {
		n.next[port] = existing + "," + target
		return n
	}
	n.next[port] = target
	n.nextOrder = append(n.nextOrder, port)
	return n
}

// FanOut allows the named execution output to carry several edges.
func (n *NodeBuilder) FanOut(port string) *NodeBuilder {
	n.fanOut = append(n.fanOut, port)
	return n
}

// Input adds a value input. typ is "bool", "data<T>" or a bare schema tag.
func (n *NodeBuilder) Input(name, typ string) *NodeBuilder {
	return n.port(domain.Port{Name: name, Direction: domain.In}, typ)
}

// InputDefault adds a value input with a default value.
func (n *NodeBuilder) InputDefault(name, typ string, value any) *NodeBuilder {
	return n.port(domain.Port{Name: name, Direction: domain.In, Default: value, HasDefault: true}, typ)
}

// Output adds a value output writing to the variable named after the port.
func (n *NodeBuilder) Output(name, typ string) *NodeBuilder {
	return n.OutputTo(name, typ, name)
}

// OutputTo adds a value output writing to variable.
func (n *NodeBuilder) OutputTo(name, typ, variable string) *NodeBuilder {
	return n.port(domain.Port{Name: name, Direction: domain.Out, Variable: variable}, typ)
}

func (n *NodeBuilder) port(p domain.Port, typ string) *NodeBuilder {
	vt, err := ParsePortType(typ)
	if err != nil {
		n.builder.errs = append(n.builder.errs, err)
		return n
	}
	p.Type = vt
	n.ports = append(n.ports, p)
	return n
}

// Builder returns the graph builder the node belongs to.
func (n *NodeBuilder) Builder() *Builder {
	return n.builder
}
