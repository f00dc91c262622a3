package kgraph

import (
	"github.com/roach88/routegraph/internal/ir"
)

type memoKey struct {
	node NodeID
	rel  Relation
	ctx  string
}

// Memo caches node verdicts together with the trace that explains them.
// A hit replays the cached explanation, so a reused memo yields the same
// verdict and the same trace shape as a fresh one.
// A Memo must not be shared between goroutines.
type Memo struct {
	verdicts map[memoKey]memoEntry
}

// memoEntry is an evaluated node and its subtree. Preds are relative to
// the subtree root at index 0.
type memoEntry struct {
	valid   bool
	subtree []TraceNode
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{verdicts: make(map[memoKey]memoEntry)}
}

// Len returns the number of cached verdicts.
func (m *Memo) Len() int {
	return len(m.verdicts)
}

// CycleCheck holds the nodes on the active evaluation path.
type CycleCheck struct {
	active map[NodeID]bool
}

// NewCycleCheck creates an empty cycle check.
func NewCycleCheck() *CycleCheck {
	return &CycleCheck{active: make(map[NodeID]bool)}
}

// Contains reports whether id is being evaluated.
func (c *CycleCheck) Contains(id NodeID) bool {
	return c.active[id]
}

// Len returns the number of nodes on the active path. It is zero between
// calls.
func (c *CycleCheck) Len() int {
	return len(c.active)
}

// CheckValueValidity decides whether candidate is consistent with ctx.
//
// A candidate with no node, or whose node has no incoming edges, is valid.
// Otherwise every requirement of the node is evaluated against the context,
// recursing into predecessors the context asserts. Revisiting a node that
// is already on the evaluation path counts as valid and is flagged in the
// trace.
//
// domains, when non-nil, limits the check to edges of those domains; edges
// with no domain always apply. memo and cycle may be nil, in which case
// fresh ones are used.
//
// On failure the trace is returned together with *NegationTraceError.
func (g *Graph) CheckValueValidity(candidate ir.DimensionValue, ctx *AnalysisContext, memo *Memo, cycle *CycleCheck, domains []string) (*AnalysisTrace, error) {
	if memo == nil {
		memo = NewMemo()
	}
	if cycle == nil {
		cycle = NewCycleCheck()
	}

	t := &AnalysisTrace{}
	id, ok := g.values[candidate]
	if !ok {
		t.root = t.add(TraceNode{Node: -1, Label: candidate.String(), Valid: true})
		return t, nil
	}
	if len(g.preds[id]) == 0 {
		t.root = t.add(TraceNode{Node: id, Label: candidate.String(), Valid: true})
		return t, nil
	}

	c := &checker{graph: g, ctx: ctx, memo: memo, cycle: cycle, trace: t}
	if domains != nil {
		c.domains = make(map[string]bool, len(domains))
		for _, d := range domains {
			c.domains[d] = true
		}
	}

	t.root = c.node(id, Positive)
	if !t.nodes[t.root].Valid {
		return t, &NegationTraceError{Value: candidate, Trace: t, Metadata: t.failingMetadata()}
	}
	return t, nil
}

type checker struct {
	graph   *Graph
	ctx     *AnalysisContext
	memo    *Memo
	cycle   *CycleCheck
	domains map[string]bool
	trace   *AnalysisTrace
}

func (c *checker) applies(e Edge) bool {
	return c.domains == nil || e.Domain == "" || c.domains[e.Domain]
}

// node evaluates the requirement of id and returns its trace index. The
// trace node's Valid is the verdict under rel: a Negative relation holds
// when the requirement does not.
func (c *checker) node(id NodeID, rel Relation) int {
	n := c.graph.nodes[id]
	key := memoKey{node: id, rel: rel, ctx: c.ctx.Fingerprint()}
	if e, ok := c.memo.verdicts[key]; ok {
		idx := c.replay(e)
		c.trace.nodes[idx].Memoized = true
		return idx
	}

	idx := c.trace.add(TraceNode{Node: id, Label: n.Label()})
	if c.cycle.Contains(id) {
		c.trace.nodes[idx].Valid = true
		c.trace.nodes[idx].Cycle = true
		return idx
	}

	c.cycle.active[id] = true
	holds := c.requirement(n, idx)
	delete(c.cycle.active, id)

	verdict := holds
	if rel == Negative {
		verdict = !holds
	}
	c.trace.nodes[idx].Valid = verdict
	c.memo.verdicts[key] = memoEntry{valid: verdict, subtree: c.subtree(idx)}
	return idx
}

// subtree copies the nodes evaluated under idx. They were appended after
// idx while it was on the path, so they occupy the tail of the arena.
func (c *checker) subtree(idx int) []TraceNode {
	src := c.trace.nodes[idx:]
	out := make([]TraceNode, len(src))
	for i, n := range src {
		n.Preds = rebase(n.Preds, -idx)
		out[i] = n
	}
	return out
}

// replay appends a memoized subtree to the trace and returns the index of
// its root.
func (c *checker) replay(e memoEntry) int {
	base := len(c.trace.nodes)
	for _, n := range e.subtree {
		n.Preds = rebase(n.Preds, base)
		c.trace.nodes = append(c.trace.nodes, n)
	}
	return base
}

func rebase(preds []int, offset int) []int {
	if preds == nil {
		return nil
	}
	out := make([]int, len(preds))
	for i, p := range preds {
		out[i] = p + offset
	}
	return out
}

// requirement combines the incoming edges of n. Value nodes and All groups
// need every edge; Any groups need one. Edges outside the selected domains
// are skipped; a node with no applicable edges holds.
func (c *checker) requirement(n Node, idx int) bool {
	anyOf := n.Kind == GroupNode && n.Op == Any
	considered := false

	for _, ei := range c.graph.preds[n.ID] {
		e := c.graph.edges[ei]
		if !c.applies(e) {
			continue
		}
		considered = true

		child, ok := c.edge(e)
		c.trace.nodes[idx].Preds = append(c.trace.nodes[idx].Preds, child)

		if anyOf && ok {
			return true
		}
		if !anyOf && !ok {
			return false
		}
	}

	if anyOf {
		return !considered
	}
	return true
}

// edge evaluates one requirement edge and returns the trace index of its
// predecessor and whether the edge is satisfied.
func (c *checker) edge(e Edge) (int, bool) {
	pred := c.graph.nodes[e.Pred]

	var idx int
	var ok bool
	if pred.Kind == GroupNode {
		idx = c.node(e.Pred, e.Relation)
		ok = c.trace.nodes[idx].Valid
	} else {
		presence, meta := c.ctx.Presence(pred.Value)
		if e.Relation == Positive && presence == Present {
			idx = c.node(e.Pred, Positive)
			ok = c.trace.nodes[idx].Valid
		} else {
			switch {
			case e.Relation == Positive && presence == Absent:
				ok = false
			case e.Relation == Positive:
				ok = e.Strength != Strong
			case presence == Present:
				ok = false
			default:
				ok = true
			}
			idx = c.trace.add(TraceNode{
				Node:  e.Pred,
				Label: pred.Label(),
				Leaf:  true,
				Valid: ok,
			})
		}
		c.trace.nodes[idx].Presence = presence
		c.trace.nodes[idx].Context = meta
	}

	c.trace.nodes[idx].Relation = e.Relation
	c.trace.nodes[idx].Strength = e.Strength
	c.trace.nodes[idx].Metadata = e.Metadata

	if !ok && e.Strength == Weak {
		c.trace.nodes[idx].Tolerated = true
		ok = true
	}
	return idx, ok
}
