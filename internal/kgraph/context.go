package kgraph

import (
	"github.com/roach88/routegraph/internal/ir"
)

// Presence is what a context says about one value.
type Presence int

const (
	// Unknown means the context does not decide the value.
	Unknown Presence = iota

	// Present means the context asserts the value.
	Present

	// Absent means the context excludes the value, directly or by
	// asserting a different value of the same key.
	Absent
)

func (p Presence) String() string {
	switch p {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unknown"
	}
}

type assertion struct {
	value ir.DimensionValue
	meta  ir.Metadata
}

// AnalysisContext is an indexed, read-only view of an ir.Context used by
// CheckValueValidity.
type AnalysisContext struct {
	fingerprint string
	asserted    map[ir.Key][]assertion
	negated     map[ir.DimensionValue]ir.Metadata
}

// NewAnalysisContext indexes ctx. The context must not be modified while
// the view is in use.
func NewAnalysisContext(ctx *ir.Context) *AnalysisContext {
	ac := &AnalysisContext{
		fingerprint: ctx.Fingerprint(),
		asserted:    make(map[ir.Key][]assertion),
		negated:     make(map[ir.DimensionValue]ir.Metadata),
	}
	for _, e := range ctx.Entries {
		switch e.Kind {
		case ir.AssertionEntry:
			ac.asserted[e.Value.Key] = append(ac.asserted[e.Value.Key], assertion{value: e.Value, meta: e.Metadata})
		case ir.NegationEntry:
			for _, v := range e.Values {
				if _, ok := ac.negated[v]; !ok {
					ac.negated[v] = e.Metadata
				}
			}
		}
	}
	return ac
}

// Fingerprint returns the fingerprint of the underlying context.
func (c *AnalysisContext) Fingerprint() string {
	return c.fingerprint
}

// Presence reports whether the context asserts or excludes v, with the
// metadata of the deciding entry.
func (c *AnalysisContext) Presence(v ir.DimensionValue) (Presence, ir.Metadata) {
	if meta, ok := c.negated[v]; ok {
		return Absent, meta
	}
	if v.IsNumber() {
		return c.numberPresence(v)
	}

	asserted := c.asserted[v.Key]
	for _, a := range asserted {
		if a.value == v {
			return Present, a.meta
		}
	}
	if len(asserted) > 0 {
		return Absent, asserted[0].meta
	}
	return Unknown, ir.Metadata{}
}

// numberPresence decides a number predicate from exact amounts.
// A context that only bounds the amount (amount > 500) leaves it Unknown.
func (c *AnalysisContext) numberPresence(v ir.DimensionValue) (Presence, ir.Metadata) {
	for _, a := range c.asserted[v.Key] {
		if a.value.Comparison != ir.Equal {
			continue
		}
		if v.Holds(a.value.Number) {
			return Present, a.meta
		}
		return Absent, a.meta
	}
	return Unknown, ir.Metadata{}
}
