package kgraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/routegraph/internal/ir"
)

// Graph construction error codes (G100-G199)
const (
	ErrUnknownNode   = "G101" // edge references a node id the builder never issued
	ErrUnknownDomain = "G102" // edge tagged with an unregistered domain
	ErrEmptyGroup    = "G103" // group node has no incoming edges
	ErrInvalidEdge   = "G104" // edge without a relation
)

// GraphError reports a malformed graph at build time.
type GraphError struct {
	Code    string
	Message string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NegationTraceError reports that a candidate value is inconsistent with
// the context. Trace explains the verdict; Metadata collects the provenance
// of every edge and context entry on the failing path.
type NegationTraceError struct {
	Value    ir.DimensionValue
	Trace    *AnalysisTrace
	Metadata []ir.Metadata
}

func (e *NegationTraceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is not valid", e.Value)
	if reason := e.Trace.FirstFailure(); reason != "" {
		b.WriteString(": ")
		b.WriteString(reason)
	}
	return b.String()
}

// IsNegationTrace reports whether err is a graph validity failure.
// Uses errors.As to handle wrapped errors.
func IsNegationTrace(err error) bool {
	var ne *NegationTraceError
	return errors.As(err, &ne)
}
