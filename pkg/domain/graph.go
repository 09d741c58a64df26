package domain

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/aretw0/gameflow/pkg/schema"
)

// Graph is the editable flow graph: an arena of nodes keyed by stable id and a
// separate edge list referencing those ids.
//
// Graph is single-writer. Mutations are synchronous and not safe for
// concurrent use.
type Graph struct {
	name      string
	nodes     map[NodeID]*Node
	edges     []Edge
	nextID    NodeID
	variables map[string]string
	events    map[string]map[string]string
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:   name,
		nodes:  make(map[NodeID]*Node),
		nextID: 1,
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Rename changes the graph name.
func (g *Graph) Rename(name string) { g.name = name }

// AddNode appends a node of the given kind with its default ports and returns its id.
// Ids are never reused. It panics if kind is not one of the declared kinds.
func (g *Graph) AddNode(kind NodeKind, payload Payload) NodeID {
	if !kind.Valid() {
		panic(fmt.Sprintf("domain: AddNode with invalid kind %d", uint8(kind)))
	}
	id := g.nextID
	g.nextID++

	inputs, outputs := defaultPorts(id, kind)
	g.nodes[id] = &Node{
		ID:      id,
		Kind:    kind,
		Name:    fmt.Sprintf("%s_%d", kind, id),
		Inputs:  inputs,
		Outputs: outputs,
		Payload: payload.Clone(),
	}
	return id
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("remove node %d: %w", id, ErrNotFound)
	}
	delete(g.nodes, id)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	return nil
}

// SetName renames a node.
func (g *Graph) SetName(id NodeID, name string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set name on node %d: %w", id, ErrNotFound)
	}
	n.Name = name
	return nil
}

// SetPayload replaces the behavior reference of a node.
func (g *Graph) SetPayload(id NodeID, payload Payload) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set payload on node %d: %w", id, ErrNotFound)
	}
	n.Payload = payload.Clone()
	return nil
}

// AddPort appends a value port (Bool or Data) to a node and returns its index
// in the node's port list for port.Direction.
// Execution ports are fixed by the node kind and cannot be added.
func (g *Graph) AddPort(id NodeID, port Port) (int, error) {
	n, ok := g.nodes[id]
	if !ok {
		return -1, fmt.Errorf("add port to node %d: %w", id, ErrNotFound)
	}
	if err := checkPortDef(n, port); err != nil {
		return -1, err
	}

	port.Node = id
	port.Default = NormalizeValue(port.Default)
	if port.Direction == Out && port.Variable == "" {
		port.Variable = port.Name
	}
	if port.Direction == In {
		n.Inputs = append(n.Inputs, port)
		return len(n.Inputs) - 1, nil
	}
	n.Outputs = append(n.Outputs, port)
	return len(n.Outputs) - 1, nil
}

func checkPortDef(n *Node, port Port) error {
	invalid := func(reason string) error {
		return &PortError{Op: "add port", Node: n.ID, Port: -1, Reason: reason, Err: ErrInvalidPort}
	}
	if port.Name == "" {
		return invalid("port name is empty")
	}
	if !port.Type.IsValue() {
		return invalid(fmt.Sprintf("type %s cannot be added to a node", port.Type))
	}
	if port.Direction == In && n.Kind == KindEntry {
		return invalid("entry nodes have no inputs")
	}
	if port.Direction == Out && n.Kind == KindExit {
		return invalid("exit nodes have no outputs")
	}
	if n.PortIndex(port.Direction, port.Name) >= 0 {
		return invalid(fmt.Sprintf("duplicate %s port %q", port.Direction, port.Name))
	}
	if _, err := schema.ParseType(port.Type.SchemaTag()); err != nil {
		return invalid(err.Error())
	}
	if port.HasDefault {
		if port.Direction != In {
			return invalid("only inputs carry a default value")
		}
		if err := CheckValue(port.Type, port.Default); err != nil {
			return &PortError{Op: "add port", Node: n.ID, Port: -1, Reason: err.Error(), Err: ErrTypeMismatch}
		}
	}
	return nil
}

// SetDefault sets the default value of a value input.
func (g *Graph) SetDefault(id NodeID, input int, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set default on node %d: %w", id, ErrNotFound)
	}
	if input < 0 || input >= len(n.Inputs) {
		return &PortError{Op: "set default", Node: id, Port: input, Reason: "no such input", Err: ErrNotFound}
	}
	p := &n.Inputs[input]
	if !p.Type.IsValue() {
		return &PortError{Op: "set default", Node: id, Port: input, Reason: "execution ports carry no value", Err: ErrTypeMismatch}
	}
	if err := CheckValue(p.Type, value); err != nil {
		return &PortError{Op: "set default", Node: id, Port: input, Reason: err.Error(), Err: ErrTypeMismatch}
	}
	p.Default = NormalizeValue(value)
	p.HasDefault = true
	return nil
}

// ClearDefault removes the default value of an input.
func (g *Graph) ClearDefault(id NodeID, input int) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("clear default on node %d: %w", id, ErrNotFound)
	}
	if input < 0 || input >= len(n.Inputs) {
		return &PortError{Op: "clear default", Node: id, Port: input, Reason: "no such input", Err: ErrNotFound}
	}
	n.Inputs[input].Default = nil
	n.Inputs[input].HasDefault = false
	return nil
}

// SetFanOut marks an execution output as able to carry several edges.
func (g *Graph) SetFanOut(id NodeID, output int, fanOut bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set fan-out on node %d: %w", id, ErrNotFound)
	}
	if output < 0 || output >= len(n.Outputs) {
		return &PortError{Op: "set fan-out", Node: id, Port: output, Reason: "no such output", Err: ErrNotFound}
	}
	if !n.Outputs[output].Type.IsExec() {
		return &PortError{Op: "set fan-out", Node: id, Port: output, Reason: "only execution outputs fan out", Err: ErrInvalidPort}
	}
	n.Outputs[output].FanOut = fanOut
	return nil
}

// Connect adds an edge from output srcPort of src to input dstPort of dst.
// On failure the graph is left unchanged.
func (g *Graph) Connect(src NodeID, srcPort int, dst NodeID, dstPort int) error {
	e := Edge{From: src, FromPort: srcPort, To: dst, ToPort: dstPort}
	if err := g.checkEdge(e); err != nil {
		return err
	}
	g.edges = append(g.edges, e)
	return nil
}

func (g *Graph) checkEdge(e Edge) error {
	from, ok := g.nodes[e.From]
	if !ok {
		return &PortError{Op: "connect", Node: e.From, Port: e.FromPort, Reason: "no such node", Err: ErrNotFound}
	}
	to, ok := g.nodes[e.To]
	if !ok {
		return &PortError{Op: "connect", Node: e.To, Port: e.ToPort, Reason: "no such node", Err: ErrNotFound}
	}
	out, ok := from.Port(Out, e.FromPort)
	if !ok {
		return &PortError{Op: "connect", Node: e.From, Port: e.FromPort, Reason: "no such output", Err: ErrNotFound}
	}
	in, ok := to.Port(In, e.ToPort)
	if !ok {
		return &PortError{Op: "connect", Node: e.To, Port: e.ToPort, Reason: "no such input", Err: ErrNotFound}
	}
	if out.Type != in.Type {
		return &PortError{
			Op: "connect", Node: e.From, Port: e.FromPort,
			Reason: fmt.Sprintf("%s output %q cannot feed %s input %q", out.Type, out.Name, in.Type, in.Name),
			Err:    ErrTypeMismatch,
		}
	}

	for _, existing := range g.edges {
		if existing == e {
			return &PortError{Op: "connect", Node: e.From, Port: e.FromPort, Reason: "edge already exists", Err: ErrPortOccupied}
		}
		if out.Type.IsExec() && !out.FanOut && existing.From == e.From && existing.FromPort == e.FromPort {
			return &PortError{Op: "connect", Node: e.From, Port: e.FromPort, Reason: fmt.Sprintf("output %q already connected", out.Name), Err: ErrPortOccupied}
		}
		if in.Type.IsValue() && existing.To == e.To && existing.ToPort == e.ToPort {
			return &PortError{Op: "connect", Node: e.To, Port: e.ToPort, Reason: fmt.Sprintf("input %q already has a source", in.Name), Err: ErrPortOccupied}
		}
	}
	return nil
}

// Disconnect removes an edge.
func (g *Graph) Disconnect(e Edge) error {
	for i, existing := range g.edges {
		if existing == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("disconnect %s: %w", e, ErrNotFound)
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// Nodes returns copies of every node in ascending id order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, id := range g.NodeIDs() {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// NodeIDs returns every node id in ascending order.
func (g *Graph) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NodesOfKind returns the ids of all nodes of kind, ascending.
func (g *Graph) NodesOfKind(kind NodeKind) []NodeID {
	var ids []NodeID
	for _, id := range g.NodeIDs() {
		if g.nodes[id].Kind == kind {
			ids = append(ids, id)
		}
	}
	return ids
}

// Edges returns a copy of the edge list in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the edges leaving a node.
func (g *Graph) OutEdges(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// InEdges returns the edges arriving at a node.
func (g *Graph) InEdges(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// DeclareVariable declares a typed flow variable. The type is a schema tag
// such as "int" or "[string]".
func (g *Graph) DeclareVariable(name, typ string) error {
	if name == "" {
		return fmt.Errorf("declare variable: empty name")
	}
	if _, err := schema.ParseType(typ); err != nil {
		return fmt.Errorf("declare variable %q: %w", name, err)
	}
	if g.variables == nil {
		g.variables = make(map[string]string)
	}
	g.variables[name] = typ
	return nil
}

// Variables returns a copy of the declared variables.
func (g *Graph) Variables() map[string]string {
	return copyStringMap(g.variables)
}

// DeclareEvent declares an event name and the schema of its payload fields.
func (g *Graph) DeclareEvent(name string, fields map[string]string) error {
	if name == "" {
		return fmt.Errorf("declare event: empty name")
	}
	if _, err := schema.ParseTypeMap(fields); err != nil {
		return fmt.Errorf("declare event %q: %w", name, err)
	}
	if g.events == nil {
		g.events = make(map[string]map[string]string)
	}
	g.events[name] = copyStringMap(fields)
	return nil
}

// Events returns a copy of the declared events.
func (g *Graph) Events() map[string]map[string]string {
	if len(g.events) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(g.events))
	for k, v := range g.events {
		out[k] = copyStringMap(v)
	}
	return out
}

// Clone returns an independent deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		name:      g.name,
		nodes:     make(map[NodeID]*Node, len(g.nodes)),
		edges:     g.Edges(),
		nextID:    g.nextID,
		variables: copyStringMap(g.variables),
		events:    g.Events(),
	}
	for id, n := range g.nodes {
		c := n.Clone()
		out.nodes[id] = &c
	}
	return out
}

// GraphDocument is the canonical, serializable form of a Graph.
// Nodes are ordered by id and edges by Edge.Less, so equal graphs produce
// equal documents.
type GraphDocument struct {
	Name      string                       `json:"name" yaml:"name"`
	NextID    NodeID                       `json:"next_id" yaml:"next_id"`
	Variables map[string]string            `json:"variables,omitempty" yaml:"variables,omitempty"`
	Events    map[string]map[string]string `json:"events,omitempty" yaml:"events,omitempty"`
	Nodes     []Node                       `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges     []Edge                       `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Document returns the canonical form of the graph.
func (g *Graph) Document() GraphDocument {
	doc := GraphDocument{
		Name:      g.name,
		NextID:    g.nextID,
		Variables: copyStringMap(g.variables),
		Events:    g.Events(),
	}
	if len(g.nodes) > 0 {
		doc.Nodes = g.Nodes()
	}
	if len(g.edges) > 0 {
		doc.Edges = g.Edges()
		sort.Slice(doc.Edges, func(i, j int) bool { return doc.Edges[i].Less(doc.Edges[j]) })
	}
	return doc
}

// FromDocument rebuilds a Graph, re-checking every structural invariant.
func FromDocument(doc GraphDocument) (*Graph, error) {
	g := NewGraph(doc.Name)

	var maxID NodeID
	for _, src := range doc.Nodes {
		if src.ID == 0 {
			return nil, fmt.Errorf("node %q has no id", src.Name)
		}
		if _, dup := g.nodes[src.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", src.ID)
		}
		if !src.Kind.Valid() {
			return nil, fmt.Errorf("node %d: invalid kind %d", src.ID, uint8(src.Kind))
		}
		n := src.Clone()
		if err := restorePorts(&n); err != nil {
			return nil, err
		}
		g.nodes[n.ID] = &n
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	g.nextID = doc.NextID
	if g.nextID <= maxID {
		g.nextID = maxID + 1
	}

	for name, typ := range doc.Variables {
		if err := g.DeclareVariable(name, typ); err != nil {
			return nil, err
		}
	}
	for name, fields := range doc.Events {
		if err := g.DeclareEvent(name, fields); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Edges {
		if err := g.Connect(e.From, e.FromPort, e.To, e.ToPort); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// restorePorts checks a decoded node against its kind and restores the
// owning node on every port.
func restorePorts(n *Node) error {
	defIn, defOut := defaultPorts(n.ID, n.Kind)
	check := func(dir Direction, ports, defaults []Port) error {
		if len(ports) < len(defaults) {
			return fmt.Errorf("node %d (%s): missing default %s ports", n.ID, n.Kind, dir)
		}
		for i := range ports {
			p := &ports[i]
			p.Node = n.ID
			p.Direction = dir
			if i < len(defaults) {
				if p.Name != defaults[i].Name || p.Type != defaults[i].Type {
					return fmt.Errorf("node %d (%s): %s port %d must be %s %q", n.ID, n.Kind, dir, i, defaults[i].Type, defaults[i].Name)
				}
				continue
			}
			if !p.Type.IsValue() {
				return fmt.Errorf("node %d: %s port %q: %w", n.ID, dir, p.Name, ErrInvalidPort)
			}
			if p.HasDefault {
				if err := CheckValue(p.Type, p.Default); err != nil {
					return fmt.Errorf("node %d: port %q default: %v: %w", n.ID, p.Name, err, ErrTypeMismatch)
				}
			}
		}
		return nil
	}
	if err := check(In, n.Inputs, defIn); err != nil {
		return err
	}
	return check(Out, n.Outputs, defOut)
}

// Equal reports whether two graphs are structurally equal.
func Equal(a, b *Graph) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a.Document(), b.Document())
}

// CheckValue validates v against the schema of a value type.
func CheckValue(t ValueType, v any) error {
	if !t.IsValue() {
		return fmt.Errorf("%s ports carry no value", t)
	}
	typ, err := schema.ParseType(t.SchemaTag())
	if err != nil {
		return err
	}
	return typ.Validate(NormalizeValue(v))
}

func copyStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
