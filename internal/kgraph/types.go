package kgraph

import (
	"fmt"

	"github.com/roach88/routegraph/internal/ir"
)

// NodeID identifies a node within one Graph.
type NodeID int

// NodeKind is the closed set of node variants.
type NodeKind int

const (
	// ValueNode holds one dimension value.
	ValueNode NodeKind = iota + 1

	// GroupNode combines its incoming edges with a GroupOp.
	GroupNode
)

// GroupOp is the aggregation of a group node.
type GroupOp int

const (
	// All requires every incoming edge to hold.
	All GroupOp = iota + 1

	// Any requires at least one incoming edge to hold.
	Any
)

func (op GroupOp) String() string {
	switch op {
	case All:
		return "all"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}

// Relation is the polarity of an edge.
type Relation int

const (
	// Positive edges mean "implies": the predecessor must hold.
	Positive Relation = iota + 1

	// Negative edges mean "excludes": the predecessor must not hold.
	Negative
)

func (r Relation) String() string {
	switch r {
	case Positive:
		return "requires"
	case Negative:
		return "excludes"
	default:
		return "unknown"
	}
}

// Strength controls how an edge treats a key the context does not mention.
type Strength int

const (
	// Normal edges tolerate an unmentioned key.
	Normal Strength = iota + 1

	// Strong edges need positive evidence: an unmentioned key fails.
	Strong

	// Weak edges never fail the check. Unmet weak requirements are
	// recorded in the trace only.
	Weak
)

func (s Strength) String() string {
	switch s {
	case Normal:
		return "normal"
	case Strong:
		return "strong"
	case Weak:
		return "weak"
	default:
		return "unknown"
	}
}

// Node is a graph vertex. Kind selects whether Value or Op is meaningful.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Value    ir.DimensionValue // ValueNode
	Op       GroupOp           // GroupNode
	Metadata ir.Metadata
}

// Label renders the node for traces and reports.
func (n Node) Label() string {
	if n.Kind == ValueNode {
		return n.Value.String()
	}
	if n.Metadata.Description != "" {
		return fmt.Sprintf("%s(%s)", n.Op, n.Metadata.Description)
	}
	return fmt.Sprintf("%s#%d", n.Op, n.ID)
}

// Edge is a requirement from Pred to Succ.
type Edge struct {
	Pred     NodeID
	Succ     NodeID
	Relation Relation
	Strength Strength
	Domain   string // empty means the edge belongs to every domain
	Metadata ir.Metadata
}

// Domain groups edges by origin so a check can be limited to a subset,
// e.g. only the merchant's connector configuration.
type Domain struct {
	Name        string
	Description string
}

// Standard domains used by the built-in knowledge and the routing builder.
const (
	DomainKnowledge = "knowledge"
	DomainConnector = "connector_config"
	DomainFilters   = "filters"
)
