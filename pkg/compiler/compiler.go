package compiler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
	"github.com/aretw0/gameflow/pkg/validator"
)

// ValidationError is returned when compilation is refused.
// It unwraps to domain.ErrValidationFailed.
type ValidationError struct {
	Report validator.Report
}

func (e *ValidationError) Error() string {
	fatal := e.Report.Fatal()
	if len(fatal) == 1 {
		return fmt.Sprintf("%v: %s", domain.ErrValidationFailed, fatal[0])
	}
	return fmt.Sprintf("%v: %d fatal issues", domain.ErrValidationFailed, len(fatal))
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidationFailed }

// Report extracts the validation report from a compile error.
func Report(err error) (validator.Report, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Report, true
	}
	return validator.Report{}, false
}

// Option configures a compilation.
type Option func(*options)

type options struct {
	validation []validator.Option
}

// WithBehaviors checks behavior names against b before compiling.
func WithBehaviors(b ports.Behaviors) Option {
	return func(o *options) {
		o.validation = append(o.validation, validator.WithBehaviors(b))
	}
}

// Compile validates g and lowers it into a Flow. It is a pure function of the
// graph: compiling an unchanged graph always yields an identical flow.
func Compile(g *domain.Graph, opts ...Option) (*Flow, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	report := validator.Validate(g, o.validation...)
	if !report.Valid() {
		return nil, &ValidationError{Report: report}
	}

	order := indexOrder(g)
	index := make(map[domain.NodeID]int, len(order))
	for i, id := range order {
		index[id] = i
	}

	flow := &Flow{
		Version:   Version,
		Name:      g.Name(),
		Entry:     0,
		Nodes:     make([]CompiledNode, len(order)),
		Variables: g.Variables(),
		Events:    g.Events(),
	}

	// variable written by each value output, for input binding
	written := make(map[domain.Edge]string)
	for _, e := range g.Edges() {
		src, _ := g.Node(e.From)
		if p, ok := src.Port(domain.Out, e.FromPort); ok && p.Type.IsValue() {
			written[e] = p.Variable
		}
	}

	for i, id := range order {
		n, _ := g.Node(id)
		cn := CompiledNode{
			Index:    i,
			SourceID: n.ID,
			Kind:     n.Kind,
			Name:     n.Name,
			Payload:  n.Payload.Clone(),
		}
		for _, p := range n.Outputs {
			cn.Outputs = append(cn.Outputs, CompiledOutput{Name: p.Name, Type: p.Type, Variable: p.Variable})
			cn.Next = append(cn.Next, NoTarget)
		}
		for _, p := range n.Inputs {
			cn.Inputs = append(cn.Inputs, CompiledInput{
				Name:       p.Name,
				Type:       p.Type,
				Default:    domain.NormalizeValue(p.Default),
				HasDefault: p.HasDefault,
			})
		}
		flow.Nodes[i] = cn
	}

	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if index[a.From] != index[b.From] {
			return index[a.From] < index[b.From]
		}
		if a.FromPort != b.FromPort {
			return a.FromPort < b.FromPort
		}
		if index[a.To] != index[b.To] {
			return index[a.To] < index[b.To]
		}
		return a.ToPort < b.ToPort
	})
	for _, e := range edges {
		ce := CompiledEdge{From: index[e.From], FromPort: e.FromPort, To: index[e.To], ToPort: e.ToPort}
		flow.Edges = append(flow.Edges, ce)

		src := &flow.Nodes[ce.From]
		if src.Outputs[ce.FromPort].Type.IsExec() {
			src.Next[ce.FromPort] = ce.To
			continue
		}
		flow.Nodes[ce.To].Inputs[ce.ToPort].Source = written[e]
	}

	return flow, nil
}

// indexOrder returns node ids in compiled order: the entry first, then
// breadth-first discovery over execution edges with successors taken in
// ascending id order, then every undiscovered node in ascending id order.
func indexOrder(g *domain.Graph) []domain.NodeID {
	entries := g.NodesOfKind(domain.KindEntry)
	seen := make(map[domain.NodeID]bool, g.NodeCount())
	var order []domain.NodeID

	if len(entries) > 0 {
		queue := []domain.NodeID{entries[0]}
		seen[entries[0]] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			order = append(order, id)
			for _, next := range execTargets(g, id) {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	for _, id := range g.NodeIDs() {
		if !seen[id] {
			order = append(order, id)
		}
	}
	return order
}

func execTargets(g *domain.Graph, id domain.NodeID) []domain.NodeID {
	n, _ := g.Node(id)
	var out []domain.NodeID
	for _, e := range g.OutEdges(id) {
		if p, ok := n.Port(domain.Out, e.FromPort); ok && p.Type.IsExec() {
			out = append(out, e.To)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
