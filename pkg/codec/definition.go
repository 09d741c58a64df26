package codec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
)

// Definition is the name-addressed authoring form of a graph.
type Definition struct {
	Name      string                       `yaml:"name"`
	Variables map[string]string            `yaml:"variables,omitempty"`
	Events    map[string]map[string]string `yaml:"events,omitempty"`
	Nodes     []NodeDefinition             `yaml:"nodes"`
	Links     []LinkDefinition             `yaml:"links,omitempty"`
}

// NodeDefinition declares one node and its outgoing execution edges.
type NodeDefinition struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Behavior string         `yaml:"behavior,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`

	Next    Targets `yaml:"next,omitempty"`
	FanOut  bool    `yaml:"fan_out,omitempty"`
	OnTrue  string  `yaml:"on_true,omitempty"`
	OnFalse string  `yaml:"on_false,omitempty"`

	Inputs  []PortDefinition `yaml:"inputs,omitempty"`
	Outputs []PortDefinition `yaml:"outputs,omitempty"`
}

// PortDefinition declares a value port. A nil Default means no default.
type PortDefinition struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Variable string `yaml:"variable,omitempty"`
	Default  any    `yaml:"default,omitempty"`
}

// LinkDefinition connects two value ports given as "node.port".
type LinkDefinition struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Targets lists the nodes an "out" port leads to. It decodes from a single
// name or a sequence of names.
type Targets []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Targets) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*t = Targets{value.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*t = names
		return nil
	}
	return fmt.Errorf("line %d: next must be a node name or a list of names", value.Line)
}

// MarshalYAML writes a single target as a scalar.
func (t Targets) MarshalYAML() (any, error) {
	if len(t) == 1 {
		return t[0], nil
	}
	return []string(t), nil
}

// Build turns the definition into a graph. Nodes get ids in declaration
// order.
func (d *Definition) Build() (*domain.Graph, error) {
	b := dsl.New(d.Name)
	for _, name := range domain.SortedKeys(d.Variables) {
		b.Variable(name, d.Variables[name])
	}
	for _, name := range domain.SortedKeys(d.Events) {
		b.Event(name, d.Events[name])
	}

	for _, nd := range d.Nodes {
		kind, err := domain.ParseNodeKind(nd.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nd.Name, err)
		}
		if nd.Name == "" {
			return nil, fmt.Errorf("%s node without a name", kind)
		}
		n := b.Node(nd.Name, kind)
		if nd.Behavior != "" || len(nd.Params) > 0 {
			n.Do(nd.Behavior, domain.NormalizeMap(nd.Params))
		}
		for _, p := range nd.Inputs {
			if p.Default != nil {
				n.InputDefault(p.Name, p.Type, p.Default)
			} else {
				n.Input(p.Name, p.Type)
			}
		}
		for _, p := range nd.Outputs {
			variable := p.Variable
			if variable == "" {
				variable = p.Name
			}
			n.OutputTo(p.Name, p.Type, variable)
		}
		if nd.FanOut {
			n.FanOut(domain.PortOut)
		}
		for _, target := range nd.Next {
			n.Go(target)
		}
		if nd.OnTrue != "" {
			n.True(nd.OnTrue)
		}
		if nd.OnFalse != "" {
			n.False(nd.OnFalse)
		}
	}
	for _, l := range d.Links {
		b.Link(l.From, l.To)
	}
	return b.Build()
}

// DefinitionOf describes g in authoring form. Node names must be unique and
// non-empty, since edges are written by name.
func DefinitionOf(g *domain.Graph) (*Definition, error) {
	d := &Definition{
		Name:      g.Name(),
		Variables: g.Variables(),
		Events:    g.Events(),
	}

	names := make(map[domain.NodeID]string)
	seen := make(map[string]bool)
	for _, n := range g.Nodes() {
		if n.Name == "" || seen[n.Name] {
			return nil, fmt.Errorf("node %d: name %q is empty or not unique", n.ID, n.Name)
		}
		seen[n.Name] = true
		names[n.ID] = n.Name
	}

	for _, n := range g.Nodes() {
		nd := NodeDefinition{
			Name:     n.Name,
			Kind:     n.Kind.String(),
			Behavior: n.Payload.Behavior,
			Params:   domain.NormalizeMap(n.Payload.Params),
		}
		for _, p := range n.Inputs {
			if !p.Type.IsValue() {
				continue
			}
			pd := PortDefinition{Name: p.Name, Type: p.Type.String()}
			if p.HasDefault {
				pd.Default = domain.NormalizeValue(p.Default)
			}
			nd.Inputs = append(nd.Inputs, pd)
		}
		for _, p := range n.Outputs {
			if p.Type.IsValue() {
				pd := PortDefinition{Name: p.Name, Type: p.Type.String()}
				if p.Variable != p.Name {
					pd.Variable = p.Variable
				}
				nd.Outputs = append(nd.Outputs, pd)
				continue
			}
			nd.FanOut = nd.FanOut || p.FanOut
		}

		for _, e := range g.OutEdges(n.ID) {
			out, _ := n.Port(domain.Out, e.FromPort)
			if out.Type.IsValue() {
				to, _ := g.Node(e.To)
				in, _ := to.Port(domain.In, e.ToPort)
				d.Links = append(d.Links, LinkDefinition{
					From: n.Name + "." + out.Name,
					To:   names[e.To] + "." + in.Name,
				})
				continue
			}
			switch out.Name {
			case domain.BranchTrue:
				nd.OnTrue = names[e.To]
			case domain.BranchFalse:
				nd.OnFalse = names[e.To]
			default:
				nd.Next = append(nd.Next, names[e.To])
			}
		}
		d.Nodes = append(d.Nodes, nd)
	}
	return d, nil
}
