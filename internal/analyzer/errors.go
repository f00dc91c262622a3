package analyzer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
)

// State machine error codes (S100-S199)
const (
	ErrCodeDepthExceeded   = "S101" // nesting beyond the depth limit
	ErrCodeEmptyComparison = "S102" // lowered comparison without values
	ErrCodeStepBudget      = "S103" // step budget exhausted
)

// StateMachineError reports structurally malformed input to the
// Enumerator. A lowered program from compiler.Lower never triggers one,
// except for the step budget.
type StateMachineError struct {
	Code    string
	Message string
	Steps   int
}

func (e *StateMachineError) Error() string {
	return fmt.Sprintf("[%s] %s (after %d steps)", e.Code, e.Message, e.Steps)
}

// AnalysisErrorCode categorizes program contradictions.
type AnalysisErrorCode string

const (
	// ErrCodeConflictingAssertions indicates one path asserts two values of a key.
	ErrCodeConflictingAssertions AnalysisErrorCode = "CONFLICTING_ASSERTIONS"

	// ErrCodeExhaustiveNegation indicates one path excludes every value of a key.
	ErrCodeExhaustiveNegation AnalysisErrorCode = "EXHAUSTIVE_NEGATION"

	// ErrCodeNegatedAssertion indicates one path asserts and excludes the same value.
	ErrCodeNegatedAssertion AnalysisErrorCode = "NEGATED_ASSERTION"

	// ErrCodeGraphViolation indicates a value the knowledge graph rejects.
	ErrCodeGraphViolation AnalysisErrorCode = "GRAPH_VIOLATION"
)

// AnalysisError is the first contradiction found in a program. Err holds
// the concrete check error.
type AnalysisError struct {
	Code    AnalysisErrorCode
	Rule    string
	Context *ir.Context
	Err     error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: rule %q: %v", e.Code, e.Rule, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// AssertedValue is one asserted value with its provenance.
type AssertedValue struct {
	Value    ir.DimensionValue `json:"value"`
	Metadata ir.Metadata       `json:"metadata"`
}

// ConflictingAssertionsError lists every distinct value a context asserts
// for one enum key.
type ConflictingAssertionsError struct {
	Key    ir.Key
	Values []AssertedValue
}

func (e *ConflictingAssertionsError) Error() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = v.Value.Value
		if !v.Metadata.IsZero() {
			parts[i] += " (" + v.Metadata.String() + ")"
		}
	}
	return fmt.Sprintf("%s asserted with conflicting values: %s", e.Key, strings.Join(parts, ", "))
}

// ExhaustiveNegationError reports a key whose every value is excluded.
type ExhaustiveNegationError struct {
	Key      ir.Key
	Metadata []ir.Metadata
}

func (e *ExhaustiveNegationError) Error() string {
	return fmt.Sprintf("every value of %s is excluded, path is unreachable", e.Key)
}

// NegatedAssertionError reports a value that is both required and excluded.
type NegatedAssertionError struct {
	Value             ir.DimensionValue
	AssertionMetadata ir.Metadata
	NegationMetadata  ir.Metadata
}

func (e *NegatedAssertionError) Error() string {
	return fmt.Sprintf("%s is both asserted (%s) and negated (%s)", e.Value, e.AssertionMetadata, e.NegationMetadata)
}

func hasCode(err error, code AnalysisErrorCode) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// IsConflictingAssertions returns true if err reports conflicting assertions.
// Uses errors.As to handle wrapped errors.
func IsConflictingAssertions(err error) bool {
	return hasCode(err, ErrCodeConflictingAssertions)
}

// IsExhaustiveNegation returns true if err reports an exhaustive negation.
func IsExhaustiveNegation(err error) bool {
	return hasCode(err, ErrCodeExhaustiveNegation)
}

// IsNegatedAssertion returns true if err reports a negated assertion.
func IsNegatedAssertion(err error) bool {
	return hasCode(err, ErrCodeNegatedAssertion)
}

// IsGraphViolation returns true if err reports a knowledge graph violation.
// Matches both AnalysisError with ErrCodeGraphViolation and a bare
// kgraph.NegationTraceError.
func IsGraphViolation(err error) bool {
	return hasCode(err, ErrCodeGraphViolation) || kgraph.IsNegationTrace(err)
}

// IsStateMachineError returns true if err is a StateMachineError.
func IsStateMachineError(err error) bool {
	var se *StateMachineError
	return errors.As(err, &se)
}
