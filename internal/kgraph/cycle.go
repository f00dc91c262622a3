package kgraph

import (
	"fmt"
	"strings"
)

// CycleWarning reports a cyclic chain of requirements.
//
// Cycles are warnings, not errors: evaluation is cycle-safe and mutual
// implication (A requires B, B requires A) is a legitimate way to express
// that two values always travel together.
type CycleWarning struct {
	Path    []string `json:"path"`    // Node labels: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// Cycles finds strongly connected components of the requirement graph
// using Tarjan's algorithm. Each component with more than one node, or a
// node requiring itself, is reported once. Output order follows node ids.
func (g *Graph) Cycles() []CycleWarning {
	adj := make([][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		adj[e.Pred] = append(adj[e.Pred], e.Succ)
	}

	sccs := tarjanSCC(adj)

	var warnings []CycleWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], adj)) {
			warnings = append(warnings, g.cycleWarning(scc, adj))
		}
	}
	return warnings
}

func hasSelfLoop(node NodeID, adj [][]NodeID) bool {
	for _, n := range adj[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of adj. Nodes are
// visited in id order so the result is deterministic.
func tarjanSCC(adj [][]NodeID) [][]NodeID {
	var (
		index   = 0
		stack   []NodeID
		indices = make(map[NodeID]int)
		lowlink = make(map[NodeID]int)
		onStack = make(map[NodeID]bool)
		sccs    [][]NodeID
	)

	var strongConnect func(NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for node := range adj {
		if _, visited := indices[NodeID(node)]; !visited {
			strongConnect(NodeID(node))
		}
	}
	return sccs
}

func (g *Graph) cycleWarning(scc []NodeID, adj [][]NodeID) CycleWarning {
	ids := reconstructCyclePath(scc, adj)
	path := make([]string, len(ids))
	for i, id := range ids {
		path[i] = g.nodes[id].Label()
	}
	if len(scc) == 1 {
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Self-requiring node detected: %s", path[0]),
			Level:   "warning",
		}
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Requirement cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the component from its lowest
// id until it returns to the start.
func reconstructCyclePath(scc []NodeID, adj [][]NodeID) []NodeID {
	if len(scc) == 0 {
		return nil
	}

	members := make(map[NodeID]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if n < start {
			start = n
		}
	}

	path := []NodeID{start}
	visited := make(map[NodeID]bool)
	for current := start; ; {
		visited[current] = true

		next := NodeID(-1)
		for _, n := range adj[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next < 0 {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
