package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Builder constructs a domain.Graph with nodes addressed by name.
// Nodes receive ids in declaration order.
type Builder struct {
	name      string
	order     []*NodeBuilder
	nodes     map[string]*NodeBuilder
	variables [][2]string
	events    []eventDecl
	links     [][2]string
	errs      []error
}

type eventDecl struct {
	name   string
	fields map[string]string
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Entry declares the entry node.
func (b *Builder) Entry(name string) *NodeBuilder { return b.add(name, domain.KindEntry) }

// State declares a state node.
func (b *Builder) State(name string) *NodeBuilder { return b.add(name, domain.KindState) }

// Condition declares a condition node.
func (b *Builder) Condition(name string) *NodeBuilder { return b.add(name, domain.KindCondition) }

// Action declares an action node.
func (b *Builder) Action(name string) *NodeBuilder { return b.add(name, domain.KindAction) }

// Exit declares an exit node.
func (b *Builder) Exit(name string) *NodeBuilder { return b.add(name, domain.KindExit) }

// Node declares a node of any kind.
func (b *Builder) Node(name string, kind domain.NodeKind) *NodeBuilder { return b.add(name, kind) }

// add returns the builder for name, creating it if needed. Redeclaring a
// name with another kind is reported by Build.
func (b *Builder) add(name string, kind domain.NodeKind) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		if nb.kind != kind {
			b.errs = append(b.errs, fmt.Errorf("node %q declared as both %s and %s", name, nb.kind, kind))
		}
		return nb
	}
	nb := &NodeBuilder{name: name, kind: kind, builder: b, next: make(map[string]string)}
	b.nodes[name] = nb
	b.order = append(b.order, nb)
	return nb
}

// Variable declares a typed flow variable.
func (b *Builder) Variable(name, typ string) *Builder {
	b.variables = append(b.variables, [2]string{name, typ})
	return b
}

// Event declares an event and its payload schema.
func (b *Builder) Event(name string, fields map[string]string) *Builder {
	b.events = append(b.events, eventDecl{name: name, fields: fields})
	return b
}

// Link connects two value ports given as "node.port".
func (b *Builder) Link(from, to string) *Builder {
	b.links = append(b.links, [2]string{from, to})
	return b
}

// Build creates the graph. It reports every declaration error at once.
func (b *Builder) Build() (*domain.Graph, error) {
	errs := append([]error(nil), b.errs...)
	g := domain.NewGraph(b.name)

	for _, v := range b.variables {
		if err := g.DeclareVariable(v[0], v[1]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, ev := range b.events {
		if err := g.DeclareEvent(ev.name, ev.fields); err != nil {
			errs = append(errs, err)
		}
	}

	ids := make(map[string]domain.NodeID, len(b.order))
	for _, nb := range b.order {
		id := g.AddNode(nb.kind, domain.Payload{Behavior: nb.behavior, Params: nb.params})
		ids[nb.name] = id
		if err := g.SetName(id, nb.name); err != nil {
			errs = append(errs, err)
		}
		for _, p := range nb.ports {
			if _, err := g.AddPort(id, p); err != nil {
				errs = append(errs, fmt.Errorf("node %q: %w", nb.name, err))
			}
		}
	}

	for _, nb := range b.order {
		src := ids[nb.name]
		node, _ := g.Node(src)
		for _, fan := range nb.fanOut {
			if err := g.SetFanOut(src, node.PortIndex(domain.Out, fan), true); err != nil {
				errs = append(errs, fmt.Errorf("node %q: %w", nb.name, err))
			}
		}
		for _, out := range nb.nextOrder {
			for _, target := range strings.Split(nb.next[out], ",") {
				dst, ok := ids[target]
				if !ok {
					errs = append(errs, fmt.Errorf("node %q: %s leads to unknown node %q: %w", nb.name, out, target, domain.ErrNotFound))
					continue
				}
				port := node.PortIndex(domain.Out, out)
				if port < 0 {
					errs = append(errs, fmt.Errorf("node %q (%s) has no output %q: %w", nb.name, nb.kind, out, domain.ErrNotFound))
					continue
				}
				if err := g.Connect(src, port, dst, 0); err != nil {
					errs = append(errs, fmt.Errorf("node %q: %w", nb.name, err))
				}
			}
		}
	}

	for _, l := range b.links {
		if err := link(g, ids, l[0], l[1]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("build graph %q: %w", b.name, errors.Join(errs...))
	}
	return g, nil
}

func link(g *domain.Graph, ids map[string]domain.NodeID, from, to string) error {
	src, srcPort, err := resolvePort(g, ids, from, domain.Out)
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", from, to, err)
	}
	dst, dstPort, err := resolvePort(g, ids, to, domain.In)
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", from, to, err)
	}
	if err := g.Connect(src, srcPort, dst, dstPort); err != nil {
		return fmt.Errorf("link %s -> %s: %w", from, to, err)
	}
	return nil
}

func resolvePort(g *domain.Graph, ids map[string]domain.NodeID, ref string, dir domain.Direction) (domain.NodeID, int, error) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return 0, -1, fmt.Errorf("port reference %q must be node.port", ref)
	}
	nodeName, portName := ref[:i], ref[i+1:]
	id, ok := ids[nodeName]
	if !ok {
		return 0, -1, fmt.Errorf("unknown node %q: %w", nodeName, domain.ErrNotFound)
	}
	n, _ := g.Node(id)
	idx := n.PortIndex(dir, portName)
	if idx < 0 {
		return 0, -1, fmt.Errorf("node %q has no %s port %q: %w", nodeName, dir, portName, domain.ErrNotFound)
	}
	return id, idx, nil
}

// ParsePortType converts "bool", "exec", "data<T>" or a bare schema tag T
// into a ValueType.
func ParsePortType(s string) (domain.ValueType, error) {
	if vt, err := domain.ParseValueType(s); err == nil {
		return vt, nil
	}
	tag := strings.TrimSpace(s)
	if tag == "" {
		return domain.ValueType{}, fmt.Errorf("empty port type")
	}
	return domain.Data(tag), nil
}
