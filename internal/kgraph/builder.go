package kgraph

import (
	"fmt"

	"github.com/roach88/routegraph/internal/ir"
)

// Builder assembles a Graph. A Builder is not safe for concurrent use.
// Node ids are assigned in call order, so identical call sequences produce
// identical graphs.
type Builder struct {
	nodes   []Node
	edges   []Edge
	values  map[ir.DimensionValue]NodeID
	domains map[string]Domain
	order   []string
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		values:  make(map[ir.DimensionValue]NodeID),
		domains: make(map[string]Domain),
	}
}

// RegisterDomain declares a domain edges may be tagged with.
// Registering the same name twice keeps the first description.
func (b *Builder) RegisterDomain(name, description string) {
	if _, ok := b.domains[name]; ok {
		return
	}
	b.domains[name] = Domain{Name: name, Description: description}
	b.order = append(b.order, name)
}

// Value returns the node for v, creating it on first use.
func (b *Builder) Value(v ir.DimensionValue) NodeID {
	if id, ok := b.values[v]; ok {
		return id
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{ID: id, Kind: ValueNode, Value: v})
	b.values[v] = id
	return id
}

// Group creates a group node. Members become Positive, Normal edges into
// the group; further edges may be added with Edge. A group must end up with
// at least one incoming edge.
func (b *Builder) Group(op GroupOp, meta ir.Metadata, domain string, members ...NodeID) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{ID: id, Kind: GroupNode, Op: op, Metadata: meta})
	for _, m := range members {
		b.Edge(m, id, Positive, Normal, domain, meta)
	}
	return id
}

// AnyValue is shorthand for an Any group over value nodes.
func (b *Builder) AnyValue(meta ir.Metadata, domain string, vals ...ir.DimensionValue) NodeID {
	ids := make([]NodeID, len(vals))
	for i, v := range vals {
		ids[i] = b.Value(v)
	}
	return b.Group(Any, meta, domain, ids...)
}

// Edge adds a requirement edge: succ requires (or excludes) pred.
func (b *Builder) Edge(pred, succ NodeID, rel Relation, strength Strength, domain string, meta ir.Metadata) {
	b.edges = append(b.edges, Edge{
		Pred:     pred,
		Succ:     succ,
		Relation: rel,
		Strength: strength,
		Domain:   domain,
		Metadata: meta,
	})
}

// Require is shorthand for a Positive edge between two values.
func (b *Builder) Require(succ, pred ir.DimensionValue, strength Strength, domain string, meta ir.Metadata) {
	b.Edge(b.Value(pred), b.Value(succ), Positive, strength, domain, meta)
}

// Exclude is shorthand for a Negative edge between two values.
func (b *Builder) Exclude(succ, pred ir.DimensionValue, domain string, meta ir.Metadata) {
	b.Edge(b.Value(pred), b.Value(succ), Negative, Normal, domain, meta)
}

// Build validates the assembled nodes and edges and returns an immutable
// Graph. The builder must not be used afterwards.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		nodes:   b.nodes,
		edges:   b.edges,
		values:  b.values,
		domains: make([]Domain, 0, len(b.order)),
		preds:   make([][]int, len(b.nodes)),
	}
	for _, name := range b.order {
		g.domains = append(g.domains, b.domains[name])
	}

	for i, e := range b.edges {
		if !g.valid(e.Pred) || !g.valid(e.Succ) {
			return nil, &GraphError{
				Code:    ErrUnknownNode,
				Message: fmt.Sprintf("edge %d references unknown node (%d -> %d)", i, e.Pred, e.Succ),
			}
		}
		if e.Domain != "" {
			if _, ok := b.domains[e.Domain]; !ok {
				return nil, &GraphError{
					Code:    ErrUnknownDomain,
					Message: fmt.Sprintf("edge %s -> %s uses unregistered domain %q", g.nodes[e.Pred].Label(), g.nodes[e.Succ].Label(), e.Domain),
				}
			}
		}
		if e.Relation != Positive && e.Relation != Negative {
			return nil, &GraphError{
				Code:    ErrInvalidEdge,
				Message: fmt.Sprintf("edge %d has no relation", i),
			}
		}
		if e.Strength == 0 {
			g.edges[i].Strength = Normal
		}
		g.preds[e.Succ] = append(g.preds[e.Succ], i)
	}

	for _, n := range g.nodes {
		if n.Kind == GroupNode && len(g.preds[n.ID]) == 0 {
			return nil, &GraphError{
				Code:    ErrEmptyGroup,
				Message: fmt.Sprintf("group %s has no members", n.Label()),
			}
		}
	}

	b.nodes, b.edges, b.values = nil, nil, nil
	return g, nil
}
