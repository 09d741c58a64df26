package validator

import (
	"sort"

	"github.com/aretw0/gameflow/pkg/domain"
)

// stronglyConnected returns the strongly connected components of the graph
// given by nodes and adj (Tarjan). Each component is sorted ascending and the
// components are ordered by their smallest id.
func stronglyConnected(nodes []domain.NodeID, adj map[domain.NodeID][]domain.NodeID) [][]domain.NodeID {
	var (
		index   int
		stack   []domain.NodeID
		onStack = make(map[domain.NodeID]bool)
		indices = make(map[domain.NodeID]int)
		lowlink = make(map[domain.NodeID]int)
		result  [][]domain.NodeID
	)

	var visit func(v domain.NodeID)
	visit = func(v domain.NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := indices[w]; !seen {
				visit(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []domain.NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
			result = append(result, scc)
		}
	}

	for _, v := range nodes {
		if _, seen := indices[v]; !seen {
			visit(v)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}
