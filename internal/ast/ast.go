// Package ast defines the surface syntax tree of routing programs.
//
// A routing program is a list of named rules. Each rule guards a connector
// selection (its output) behind nested if-statements whose conditions are
// key/value comparisons:
//
//	rule card_usd {
//	    if payment_method == card & currency == [USD, EUR] {
//	        if amount > 500 { }
//	    }
//	    output: priority [stripe, adyen]
//	}
//
// The AST is untyped: keys and values are raw strings and numbers exactly as
// authored. compiler.Lower resolves them against an ir.Schema and produces
// the directed form the analyzer consumes.
package ast

import "fmt"

// Pos is a source position. The zero Pos means "unknown".
type Pos struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Op is a comparison operator.
type Op string

const (
	OpEqual            Op = "=="
	OpNotEqual         Op = "!="
	OpGreaterThan      Op = ">"
	OpGreaterThanEqual Op = ">="
	OpLessThan         Op = "<"
	OpLessThanEqual    Op = "<="
)

// ValueKind tags the shape of a comparison's right-hand side.
type ValueKind int

const (
	StringValue ValueKind = iota + 1
	StringListValue
	NumberValue
	NumberListValue
)

func (k ValueKind) String() string {
	switch k {
	case StringValue:
		return "string"
	case StringListValue:
		return "string list"
	case NumberValue:
		return "number"
	case NumberListValue:
		return "number list"
	default:
		return "unknown"
	}
}

// Value is the right-hand side of a comparison. Kind selects the field in use.
type Value struct {
	Kind    ValueKind `json:"kind"`
	Str     string    `json:"str,omitempty"`
	Strs    []string  `json:"strs,omitempty"`
	Number  int64     `json:"number,omitempty"`
	Numbers []int64   `json:"numbers,omitempty"`
}

// Len returns the number of alternatives the value lists.
func (v Value) Len() int {
	switch v.Kind {
	case StringListValue:
		return len(v.Strs)
	case NumberListValue:
		return len(v.Numbers)
	case StringValue, NumberValue:
		return 1
	default:
		return 0
	}
}

// Comparison is one condition: lhs op value.
type Comparison struct {
	LHS   string `json:"lhs"`
	Op    Op     `json:"op"`
	Value Value  `json:"value"`
	Pos   Pos    `json:"pos"`
}

// IfStatement is a block guarded by the conjunction of its conditions.
type IfStatement struct {
	Condition []Comparison  `json:"condition"`
	Nested    []IfStatement `json:"nested,omitempty"`
	Pos       Pos           `json:"pos"`
}

// OutputKind names the shape of a connector selection.
type OutputKind string

const (
	Priority            OutputKind = "priority"
	VolumeSplit         OutputKind = "volume_split"
	VolumeSplitPriority OutputKind = "volume_split_priority"
)

// Split routes Weight percent of traffic to one connector.
type Split struct {
	Connector string `json:"connector"`
	Weight    int    `json:"weight"`
}

// SplitPriority routes Weight percent of traffic to an ordered connector list.
type SplitPriority struct {
	Connectors []string `json:"connectors"`
	Weight     int      `json:"weight"`
}

// Output is a connector selection.
type Output struct {
	Kind            OutputKind      `json:"kind"`
	Priority        []string        `json:"priority,omitempty"`
	VolumeSplit     []Split         `json:"volume_split,omitempty"`
	SplitPriorities []SplitPriority `json:"split_priorities,omitempty"`
	Pos             Pos             `json:"pos"`
}

// IsEmpty reports whether the output selects no connector at all.
func (o Output) IsEmpty() bool {
	return len(o.Priority) == 0 && len(o.VolumeSplit) == 0 && len(o.SplitPriorities) == 0
}

// Rule is a named connector selection guarded by if-statements.
// A rule without statements always applies.
type Rule struct {
	Name       string        `json:"name"`
	Output     Output        `json:"output"`
	Statements []IfStatement `json:"statements,omitempty"`
	Pos        Pos           `json:"pos"`
}

// Program is a routing program as authored.
type Program struct {
	Name     string            `json:"name"`
	Default  Output            `json:"default"`
	Rules    []Rule            `json:"rules"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
