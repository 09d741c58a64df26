package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// Option configures a validation run.
type Option func(*checker)

// WithBehaviors enables the UnknownBehavior check against a behavior provider.
func WithBehaviors(b ports.Behaviors) Option {
	return func(c *checker) {
		c.behaviors = b
	}
}

// Report is the ordered result of a validation run.
type Report struct {
	Issues []domain.ValidationIssue `json:"issues,omitempty"`
}

// Valid reports whether the graph can be compiled (no fatal issue).
// Warnings may still be present.
func (r Report) Valid() bool {
	return len(r.Fatal()) == 0
}

// Fatal returns the issues that block compilation.
func (r Report) Fatal() []domain.ValidationIssue {
	return r.filter(domain.SeverityFatal)
}

// Warnings returns the issues that do not block compilation.
func (r Report) Warnings() []domain.ValidationIssue {
	return r.filter(domain.SeverityWarning)
}

// ForNode returns the issues attached to one node.
func (r Report) ForNode(id domain.NodeID) []domain.ValidationIssue {
	var out []domain.ValidationIssue
	for _, issue := range r.Issues {
		if issue.NodeID == id {
			out = append(out, issue)
		}
	}
	return out
}

func (r Report) filter(sev domain.Severity) []domain.ValidationIssue {
	var out []domain.ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

func (r Report) String() string {
	if len(r.Issues) == 0 {
		return "valid"
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

type checker struct {
	g         *domain.Graph
	behaviors ports.Behaviors
	issues    []domain.ValidationIssue

	// reachable is nil when reachability could not be computed (no entry).
	reachable map[domain.NodeID]bool
}

// Validate runs every check over g and accumulates the findings.
// Checks run in a fixed order and each check reports nodes in ascending id
// order, so identical graphs always produce identical reports.
func Validate(g *domain.Graph, opts ...Option) Report {
	c := &checker{g: g}
	for _, opt := range opts {
		opt(c)
	}

	c.checkEntry()
	c.checkReachability()
	c.checkLoops()
	c.checkInputs()
	c.checkDeadEnds()
	c.checkAmbiguity()
	c.checkBehaviors()
	c.checkDefaults()

	return Report{Issues: c.issues}
}

func (c *checker) report(id domain.NodeID, kind domain.IssueKind, sev domain.Severity, format string, args ...any) {
	c.issues = append(c.issues, domain.ValidationIssue{
		NodeID:   id,
		Kind:     kind,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) label(n domain.Node) string {
	return fmt.Sprintf("%s %q", n.Kind, n.Name)
}

func (c *checker) checkEntry() {
	entries := c.g.NodesOfKind(domain.KindEntry)
	switch len(entries) {
	case 0:
		c.report(0, domain.IssueMissingEntry, domain.SeverityFatal, "graph has no entry node")
	case 1:
	default:
		for _, id := range entries {
			c.report(id, domain.IssueMultipleEntry, domain.SeverityFatal,
				"graph has %d entry nodes; exactly one is allowed", len(entries))
		}
	}
}

// checkReachability walks execution edges from every entry node.
func (c *checker) checkReachability() {
	entries := c.g.NodesOfKind(domain.KindEntry)
	if len(entries) == 0 {
		return
	}

	c.reachable = make(map[domain.NodeID]bool)
	queue := append([]domain.NodeID(nil), entries...)
	for _, id := range entries {
		c.reachable[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range execSuccessors(c.g, id) {
			if !c.reachable[next] {
				c.reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, n := range c.g.Nodes() {
		if n.Kind != domain.KindEntry && !c.reachable[n.ID] {
			c.report(n.ID, domain.IssueUnreachableNode, domain.SeverityWarning,
				"%s is not reachable from the entry node", c.label(n))
		}
	}
}

// checkLoops reports every strongly connected component made only of State
// nodes joined by execution edges. Such a cycle has nothing able to leave it.
func (c *checker) checkLoops() {
	adj := make(map[domain.NodeID][]domain.NodeID)
	var states []domain.NodeID
	for _, n := range c.g.Nodes() {
		if n.Kind != domain.KindState {
			continue
		}
		states = append(states, n.ID)
		for _, next := range execSuccessors(c.g, n.ID) {
			if m, ok := c.g.Node(next); ok && m.Kind == domain.KindState {
				adj[n.ID] = append(adj[n.ID], next)
			}
		}
	}

	for _, scc := range stronglyConnected(states, adj) {
		if len(scc) == 1 && !contains(adj[scc[0]], scc[0]) {
			continue
		}
		names := make([]string, len(scc))
		for i, id := range scc {
			n, _ := c.g.Node(id)
			names[i] = n.Name
		}
		c.report(scc[0], domain.IssueInfiniteLoop, domain.SeverityFatal,
			"unconditional cycle through state nodes [%s] can never terminate", strings.Join(names, " -> "))
	}
}

func (c *checker) checkInputs() {
	for _, n := range c.g.Nodes() {
		for i, p := range n.Inputs {
			if !p.Type.IsValue() || p.HasDefault {
				continue
			}
			if !hasInEdge(c.g, n.ID, i) {
				c.report(n.ID, domain.IssueUnboundInput, domain.SeverityFatal,
					"%s input %q (%s) is neither connected nor defaulted", c.label(n), p.Name, p.Type)
			}
		}
	}
}

// checkDeadEnds reports execution outputs with nowhere to go. Nodes that can
// never run are skipped; they are already reported as unreachable.
func (c *checker) checkDeadEnds() {
	for _, n := range c.g.Nodes() {
		if c.reachable != nil && !c.reachable[n.ID] {
			continue
		}
		for i, p := range n.Outputs {
			if p.Type.IsExec() && countOutEdges(c.g, n.ID, i) == 0 {
				c.report(n.ID, domain.IssueDeadEnd, domain.SeverityFatal,
					"%s output %q is not connected", c.label(n), p.Name)
			}
		}
	}
}

// checkAmbiguity rejects execution outputs carrying more than one edge: a
// flow state has a single cursor.
func (c *checker) checkAmbiguity() {
	for _, n := range c.g.Nodes() {
		for i, p := range n.Outputs {
			if count := countOutEdges(c.g, n.ID, i); p.Type.IsExec() && count > 1 {
				c.report(n.ID, domain.IssueAmbiguousTransition, domain.SeverityFatal,
					"%s output %q has %d edges; only one can be followed", c.label(n), p.Name, count)
			}
		}
	}
}

func (c *checker) checkBehaviors() {
	for _, n := range c.g.Nodes() {
		behavior := n.Payload.Behavior
		switch n.Kind {
		case domain.KindCondition:
			if behavior == "" {
				if !hasBoolInput(n) {
					c.report(n.ID, domain.IssueUnknownBehavior, domain.SeverityFatal,
						"%s has no predicate and no bool input to branch on", c.label(n))
				}
				continue
			}
			if c.behaviors == nil {
				continue
			}
			if _, ok := c.behaviors.Predicate(behavior); !ok {
				c.report(n.ID, domain.IssueUnknownBehavior, domain.SeverityFatal,
					"%s names unknown predicate %q", c.label(n), behavior)
			}
		case domain.KindAction:
			if behavior == "" || c.behaviors == nil {
				continue
			}
			if _, ok := c.behaviors.Action(behavior); !ok {
				c.report(n.ID, domain.IssueUnknownBehavior, domain.SeverityFatal,
					"%s names unknown action %q", c.label(n), behavior)
			}
		}
	}
}

func (c *checker) checkDefaults() {
	for _, n := range c.g.Nodes() {
		for _, p := range n.Inputs {
			if !p.HasDefault {
				continue
			}
			if err := domain.CheckValue(p.Type, p.Default); err != nil {
				c.report(n.ID, domain.IssueInvalidDefault, domain.SeverityFatal,
					"%s input %q default: %v", c.label(n), p.Name, err)
			}
		}
	}
}

// execSuccessors returns the targets of the execution edges leaving id, ascending.
func execSuccessors(g *domain.Graph, id domain.NodeID) []domain.NodeID {
	n, ok := g.Node(id)
	if !ok {
		return nil
	}
	seen := make(map[domain.NodeID]bool)
	var out []domain.NodeID
	for _, e := range g.OutEdges(id) {
		p, ok := n.Port(domain.Out, e.FromPort)
		if !ok || !p.Type.IsExec() || seen[e.To] {
			continue
		}
		seen[e.To] = true
		out = append(out, e.To)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasInEdge(g *domain.Graph, id domain.NodeID, port int) bool {
	for _, e := range g.InEdges(id) {
		if e.ToPort == port {
			return true
		}
	}
	return false
}

func countOutEdges(g *domain.Graph, id domain.NodeID, port int) int {
	count := 0
	for _, e := range g.OutEdges(id) {
		if e.FromPort == port {
			count++
		}
	}
	return count
}

func hasBoolInput(n domain.Node) bool {
	for _, p := range n.Inputs {
		if p.Type.Kind == domain.KindBool {
			return true
		}
	}
	return false
}

func contains(ids []domain.NodeID, id domain.NodeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
