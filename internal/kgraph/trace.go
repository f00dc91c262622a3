package kgraph

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/routegraph/internal/ir"
)

// TraceNode is one step of a validity check.
type TraceNode struct {
	Node  NodeID
	Label string

	// Relation, Strength and Metadata describe the edge that reached this
	// node. They are zero on the root.
	Relation Relation
	Strength Strength
	Metadata ir.Metadata

	// Leaf nodes were decided from the context alone; Presence and Context
	// record what the context said and which entry said it.
	Leaf     bool
	Presence Presence
	Context  ir.Metadata

	Valid     bool
	Tolerated bool // failed, but through a weak edge
	Cycle     bool // reached while already on the evaluation path
	Memoized  bool

	// Preds are indices into the owning trace.
	Preds []int
}

// AnalysisTrace explains a CheckValueValidity verdict. Nodes live in an
// arena and refer to their predecessors by index.
type AnalysisTrace struct {
	nodes []TraceNode
	root  int
}

func (t *AnalysisTrace) add(n TraceNode) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// Len returns the number of trace nodes.
func (t *AnalysisTrace) Len() int {
	return len(t.nodes)
}

// Root returns the index of the candidate's trace node.
func (t *AnalysisTrace) Root() int {
	return t.root
}

// Node returns the trace node at index i.
func (t *AnalysisTrace) Node(i int) TraceNode {
	return t.nodes[i]
}

// Valid reports the overall verdict.
func (t *AnalysisTrace) Valid() bool {
	return len(t.nodes) > 0 && t.nodes[t.root].Valid
}

// HasCycle reports whether the check short-circuited on a cycle anywhere.
func (t *AnalysisTrace) HasCycle() bool {
	for _, n := range t.nodes {
		if n.Cycle {
			return true
		}
	}
	return false
}

// failing returns the first predecessor of i that failed the check.
func (t *AnalysisTrace) failing(i int) (int, bool) {
	for _, p := range t.nodes[i].Preds {
		n := t.nodes[p]
		if !n.Valid && !n.Tolerated {
			return p, true
		}
	}
	return 0, false
}

// FailurePath returns the indices from the root down the first failing
// branch to the deepest failure. Empty when the check passed.
func (t *AnalysisTrace) FailurePath() []int {
	if t.Valid() || len(t.nodes) == 0 {
		return nil
	}
	path := []int{t.root}
	for i := t.root; ; {
		next, ok := t.failing(i)
		if !ok {
			return path
		}
		path = append(path, next)
		i = next
	}
}

// FirstFailure describes the deepest failing step, e.g.
// `requires payment_method = card: absent (rule "r" at routing.cue:4:9)`.
func (t *AnalysisTrace) FirstFailure() string {
	path := t.FailurePath()
	if len(path) < 2 {
		return ""
	}
	n := t.nodes[path[len(path)-1]]
	var b strings.Builder
	b.WriteString(n.prefix())
	b.WriteString(n.Label)
	if n.Leaf {
		b.WriteString(": ")
		b.WriteString(n.Presence.String())
	}
	if !n.Context.IsZero() {
		fmt.Fprintf(&b, " (%s)", n.Context)
	}
	return b.String()
}

// failingMetadata collects edge and context provenance along the failure
// path, skipping empty and repeated entries.
func (t *AnalysisTrace) failingMetadata() []ir.Metadata {
	var out []ir.Metadata
	seen := make(map[ir.Metadata]bool)
	add := func(m ir.Metadata) {
		if m.IsZero() || seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
	}
	for _, i := range t.FailurePath() {
		add(t.nodes[i].Metadata)
		add(t.nodes[i].Context)
	}
	return out
}

func (n TraceNode) prefix() string {
	if n.Relation == 0 {
		return ""
	}
	if n.Strength == Strong || n.Strength == Weak {
		return n.Relation.String() + " " + n.Strength.String() + " "
	}
	return n.Relation.String() + " "
}

func (n TraceNode) status() string {
	var s string
	switch {
	case n.Cycle:
		s = "cycle"
	case n.Tolerated:
		s = "tolerated"
	case n.Valid:
		s = "ok"
	default:
		s = "failed"
	}
	if n.Memoized {
		s += ", memo"
	}
	return s
}

// Render writes the trace as an indented tree, one node per line:
//
//	connector = stripe [failed]
//	  requires any(stripe payment methods) [failed]
//	    requires payment_method = card: absent [failed] - rule "r" at routing.cue:4:9
func (t *AnalysisTrace) Render(w io.Writer) error {
	if len(t.nodes) == 0 {
		return nil
	}
	return t.render(w, t.root, 0)
}

func (t *AnalysisTrace) render(w io.Writer, i, depth int) error {
	n := t.nodes[i]
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.prefix())
	b.WriteString(n.Label)
	if n.Leaf {
		b.WriteString(": ")
		b.WriteString(n.Presence.String())
	}
	fmt.Fprintf(&b, " [%s]", n.status())
	if !n.Context.IsZero() {
		b.WriteString(" - ")
		b.WriteString(n.Context.String())
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	for _, p := range n.Preds {
		if err := t.render(w, p, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// String renders the trace.
func (t *AnalysisTrace) String() string {
	var b strings.Builder
	_ = t.Render(&b)
	return b.String()
}
