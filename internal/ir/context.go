package ir

import (
	"sort"
	"strconv"
	"strings"
)

// EntryKind distinguishes the two forms of a context entry.
type EntryKind int

const (
	// AssertionEntry requires one exact value.
	AssertionEntry EntryKind = iota + 1

	// NegationEntry excludes a set of values of one key.
	NegationEntry
)

// ContextEntry is one condition on a path through a rule program.
//
// It is a closed variant: Kind selects whether Value (assertion) or
// Values (negation) is meaningful. Use Assertion and Negation to build one.
type ContextEntry struct {
	Kind     EntryKind        `json:"kind"`
	Value    DimensionValue   `json:"value,omitempty"`  // AssertionEntry
	Values   []DimensionValue `json:"values,omitempty"` // NegationEntry, all one key
	Metadata Metadata         `json:"metadata"`
}

// Assertion creates an entry requiring v.
func Assertion(v DimensionValue, meta Metadata) ContextEntry {
	return ContextEntry{Kind: AssertionEntry, Value: v, Metadata: meta}
}

// Negation creates an entry excluding every value in vals.
// All values must share one key.
func Negation(meta Metadata, vals ...DimensionValue) ContextEntry {
	cp := make([]DimensionValue, len(vals))
	copy(cp, vals)
	return ContextEntry{Kind: NegationEntry, Values: cp, Metadata: meta}
}

// Key returns the key the entry constrains.
func (e ContextEntry) Key() Key {
	if e.Kind == NegationEntry {
		if len(e.Values) == 0 {
			return ""
		}
		return e.Values[0].Key
	}
	return e.Value.Key
}

// String renders the entry for display.
func (e ContextEntry) String() string {
	if e.Kind == NegationEntry {
		vals := make([]string, len(e.Values))
		for i, v := range e.Values {
			if v.IsNumber() {
				vals[i] = string(v.Comparison) + " " + strconv.FormatInt(v.Number, 10)
			} else {
				vals[i] = v.Value
			}
		}
		return string(e.Key()) + " != (" + strings.Join(vals, ", ") + ")"
	}
	return e.Value.String()
}

// Context is a conjunctive context: the full set of conditions that must
// hold along one path from a rule program's root to a rule leaf.
//
// Entry order is preserved for display; it never affects analysis.
type Context struct {
	Rule      string           `json:"rule"`
	RuleIndex int              `json:"rule_index"`
	Entries   []ContextEntry   `json:"entries"`
	Output    []DimensionValue `json:"output,omitempty"` // connectors selected at the leaf
}

// NewContext creates a context from entries.
func NewContext(entries ...ContextEntry) *Context {
	return &Context{Entries: entries}
}

// Assertions returns the assertion entries in insertion order.
func (c *Context) Assertions() []ContextEntry {
	return c.filter(AssertionEntry)
}

// Negations returns the negation entries in insertion order.
func (c *Context) Negations() []ContextEntry {
	return c.filter(NegationEntry)
}

func (c *Context) filter(kind EntryKind) []ContextEntry {
	var out []ContextEntry
	for _, e := range c.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Keys returns the distinct keys the context mentions, in first-seen order.
func (c *Context) Keys() []Key {
	seen := make(map[Key]bool)
	var keys []Key
	for _, e := range c.Entries {
		k := e.Key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	out := &Context{
		Rule:      c.Rule,
		RuleIndex: c.RuleIndex,
		Entries:   make([]ContextEntry, len(c.Entries)),
	}
	for i, e := range c.Entries {
		out.Entries[i] = e
		if e.Values != nil {
			out.Entries[i].Values = append([]DimensionValue(nil), e.Values...)
		}
	}
	if c.Output != nil {
		out.Output = append([]DimensionValue(nil), c.Output...)
	}
	return out
}

// String renders the context as "a & b & c != (x, y)".
func (c *Context) String() string {
	if len(c.Entries) == 0 {
		return "<always>"
	}
	parts := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, " & ")
}

// Fingerprint returns an order-independent identity of the context's
// conditions. Metadata, rule name and output are excluded: two contexts
// with the same conditions share a fingerprint.
func (c *Context) Fingerprint() string {
	lines := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		switch e.Kind {
		case AssertionEntry:
			lines = append(lines, "a|"+e.Value.token())
		case NegationEntry:
			toks := make([]string, len(e.Values))
			for i, v := range e.Values {
				toks[i] = v.token()
			}
			sort.Strings(toks)
			lines = append(lines, "n|"+strings.Join(toks, ","))
		}
	}
	return HashLines(DomainContext, lines)
}
