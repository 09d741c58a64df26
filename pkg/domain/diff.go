package domain

import (
	"reflect"
	"sort"
)

// StateDiff represents the changes between two flow states.
// It is designed to be serialized to JSON for partial updates on a host UI.
type StateDiff struct {
	InstanceID string `json:"instance_id"`

	Current *int    `json:"current,omitempty"`
	Status  *Status `json:"status,omitempty"`

	// Variables contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Variables map[string]any `json:"variables,omitempty"`

	// History contains the indices appended since the old state.
	History []int `json:"history,omitempty"`
}

// DiffStates calculates the difference between oldState and newState.
// If oldState is nil, the diff describes the entire newState.
// It returns nil when nothing changed.
func DiffStates(oldState, newState *FlowState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{InstanceID: newState.InstanceID}
	if oldState == nil || oldState.Current != newState.Current {
		cur := newState.Current
		diff.Current = &cur
	}
	if oldState == nil || oldState.Status != newState.Status {
		st := newState.Status
		diff.Status = &st
	}
	diff.Variables = diffVariables(oldState, newState)
	diff.History = diffHistory(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old, new *FlowState) map[string]any {
	delta := make(map[string]any)
	if old == nil {
		for k, v := range new.Variables {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Variables {
			oldVal, exists := old.Variables[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Variables {
			if _, exists := new.Variables[k]; !exists {
				delta[k] = nil
			}
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory relies on Steps rather than slice length because history is
// trimmed to a bounded window.
func diffHistory(old, new *FlowState) []int {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return append([]int(nil), new.History...)
	}
	added := new.Steps - old.Steps
	if added <= 0 {
		return nil
	}
	if added > len(new.History) {
		added = len(new.History)
	}
	return append([]int(nil), new.History[len(new.History)-added:]...)
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Current == nil &&
		d.Status == nil &&
		len(d.Variables) == 0 &&
		len(d.History) == 0
}

// GraphDiff lists the structural changes between two versions of a graph,
// used by editors to refresh only what moved.
type GraphDiff struct {
	AddedNodes   []NodeID `json:"added_nodes,omitempty"`
	RemovedNodes []NodeID `json:"removed_nodes,omitempty"`
	// ChangedNodes have a different kind, name, payload or port list.
	ChangedNodes []NodeID `json:"changed_nodes,omitempty"`
	// PortChanges lists, per changed node, the port names added or removed.
	PortChanges  map[NodeID]PortDiff `json:"port_changes,omitempty"`
	AddedEdges   []Edge              `json:"added_edges,omitempty"`
	RemovedEdges []Edge              `json:"removed_edges,omitempty"`
}

// PortDiff lists the ports added to or removed from one node.
type PortDiff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// IsEmpty reports whether the two graphs are structurally identical.
func (d *GraphDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ChangedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// DiffGraphs compares two graphs node by node and edge by edge.
// A nil graph is treated as empty.
func DiffGraphs(oldGraph, newGraph *Graph) *GraphDiff {
	if oldGraph == nil {
		oldGraph = NewGraph("")
	}
	if newGraph == nil {
		newGraph = NewGraph("")
	}
	diff := &GraphDiff{}

	for _, id := range newGraph.NodeIDs() {
		oldNode, ok := oldGraph.nodes[id]
		if !ok {
			diff.AddedNodes = append(diff.AddedNodes, id)
			continue
		}
		newNode := newGraph.nodes[id]
		if reflect.DeepEqual(oldNode.Clone(), newNode.Clone()) {
			continue
		}
		diff.ChangedNodes = append(diff.ChangedNodes, id)
		if pd := diffPorts(oldNode, newNode); len(pd.Added)+len(pd.Removed) > 0 {
			if diff.PortChanges == nil {
				diff.PortChanges = make(map[NodeID]PortDiff)
			}
			diff.PortChanges[id] = pd
		}
	}
	for _, id := range oldGraph.NodeIDs() {
		if _, ok := newGraph.nodes[id]; !ok {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	oldEdges := edgeSet(oldGraph.edges)
	newEdges := edgeSet(newGraph.edges)
	for e := range newEdges {
		if !oldEdges[e] {
			diff.AddedEdges = append(diff.AddedEdges, e)
		}
	}
	for e := range oldEdges {
		if !newEdges[e] {
			diff.RemovedEdges = append(diff.RemovedEdges, e)
		}
	}
	sortEdges(diff.AddedEdges)
	sortEdges(diff.RemovedEdges)
	return diff
}

func diffPorts(oldNode, newNode *Node) PortDiff {
	key := func(p Port) string { return p.Direction.String() + ":" + p.Name }
	names := func(n *Node) map[string]bool {
		out := make(map[string]bool)
		for _, p := range n.Inputs {
			out[key(p)] = true
		}
		for _, p := range n.Outputs {
			out[key(p)] = true
		}
		return out
	}
	before, after := names(oldNode), names(newNode)

	var pd PortDiff
	for k := range after {
		if !before[k] {
			pd.Added = append(pd.Added, k)
		}
	}
	for k := range before {
		if !after[k] {
			pd.Removed = append(pd.Removed, k)
		}
	}
	sort.Strings(pd.Added)
	sort.Strings(pd.Removed)
	return pd
}

func edgeSet(edges []Edge) map[Edge]bool {
	out := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		out[e] = true
	}
	return out
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
}
