package kgraph

import (
	"strconv"

	"github.com/roach88/routegraph/internal/ir"
)

// Graph is an immutable knowledge graph. All methods are safe for
// concurrent use.
type Graph struct {
	nodes   []Node
	edges   []Edge
	values  map[ir.DimensionValue]NodeID
	domains []Domain
	preds   [][]int // node -> incoming edge indices, in insertion order
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	if !g.valid(id) {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Lookup returns the node holding v.
func (g *Graph) Lookup(v ir.DimensionValue) (NodeID, bool) {
	id, ok := g.values[v]
	return id, ok
}

// Edges returns a copy of every edge in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Incoming returns the edges into id.
func (g *Graph) Incoming(id NodeID) []Edge {
	if !g.valid(id) {
		return nil
	}
	out := make([]Edge, len(g.preds[id]))
	for i, ei := range g.preds[id] {
		out[i] = g.edges[ei]
	}
	return out
}

// Domains returns the registered domains in registration order.
func (g *Graph) Domains() []Domain {
	out := make([]Domain, len(g.domains))
	copy(out, g.domains)
	return out
}

// Values returns the value of every value node, in node order.
func (g *Graph) Values() []ir.DimensionValue {
	var out []ir.DimensionValue
	for _, n := range g.nodes {
		if n.Kind == ValueNode {
			out = append(out, n.Value)
		}
	}
	return out
}

// Fingerprint returns a content hash of the graph. Graphs built by the same
// call sequence have the same fingerprint.
func (g *Graph) Fingerprint() string {
	lines := make([]string, 0, len(g.nodes)+len(g.edges)+len(g.domains))
	for _, n := range g.nodes {
		lines = append(lines, "n|"+strconv.Itoa(int(n.ID))+"|"+n.Label())
	}
	for _, e := range g.edges {
		lines = append(lines, "e|"+strconv.Itoa(int(e.Pred))+"|"+strconv.Itoa(int(e.Succ))+"|"+
			e.Relation.String()+"|"+e.Strength.String()+"|"+e.Domain)
	}
	for _, d := range g.domains {
		lines = append(lines, "d|"+d.Name)
	}
	return ir.HashLines(ir.DomainGraph, lines)
}
