// Package kgraph implements the domain-knowledge graph and its validity check.
//
// A Graph relates dimension values through requirement edges. An edge
// points from a predecessor (the requirement) to the node that needs it:
//
//	payment_method = card  --requires-->  card_network = visa
//
// Nodes are either value nodes, which hold one ir.DimensionValue and need
// every incoming edge to hold, or group nodes, which combine their incoming
// edges with All (and) or Any (or). A Negative edge flips the requirement:
// the predecessor must not hold.
//
// Graphs are built once with a Builder and never mutated afterwards, so a
// single *Graph may be shared by any number of goroutines calling
// CheckValueValidity. The Memo and CycleCheck passed to a check are
// scratch state and must not be shared between goroutines. A memo may be
// reused across checks: hits replay the cached explanation.
//
// A failed check returns *NegationTraceError carrying an AnalysisTrace: an
// arena of trace nodes in which predecessors are referenced by index, so a
// cyclic graph never produces a cyclic trace.
package kgraph
