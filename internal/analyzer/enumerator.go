package analyzer

import (
	"fmt"

	"github.com/roach88/routegraph/internal/ir"
)

// DefaultMaxSteps bounds the statements an Enumerator visits.
const DefaultMaxSteps = 100_000

// DefaultMaxDepth bounds statement nesting.
const DefaultMaxDepth = 32

// State is the enumerator state.
type State int

const (
	// Ready means Advance may yield another context.
	Ready State = iota + 1

	// Exhausted means every path has been yielded, or enumeration failed.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// frame is one level of the cursor stack: a sibling list of statements,
// the statement being expanded and the value combination chosen for its
// positive comparisons.
type frame struct {
	stmts []ir.DirIfStatement
	idx   int
	combo []int            // odometer over positive comparisons; nil until entered
	base  []ir.ContextEntry // entries contributed by ancestors
}

// advance moves the frame to its next combination, or its next statement
// once every combination has been produced. The rightmost comparison
// varies fastest.
func (f *frame) advance() {
	stmt := f.stmts[f.idx]
	var sizes []int
	for _, c := range stmt.Condition {
		if c.Logic == ir.Positive {
			sizes = append(sizes, len(c.Values))
		}
	}
	for pos := len(sizes) - 1; pos >= 0; pos-- {
		f.combo[pos]++
		if f.combo[pos] < sizes[pos] {
			return
		}
		f.combo[pos] = 0
	}
	f.idx++
	f.combo = nil
}

// Enumerator yields the conjunctive contexts of a program one at a time,
// in pre-order: rules in authored order, statements left to right, parents
// before children. A positive comparison listing several values yields one
// context per value.
//
// The walk uses an explicit stack, so it can be paused between calls to
// Advance and its work is capped by WithMaxSteps.
type Enumerator struct {
	program  *ir.Program
	maxSteps int
	maxDepth int

	state   State
	steps   int
	rule    int
	started bool // current rule has been entered
	stack   []frame
	err     error
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithMaxSteps sets the statement-visit budget.
//
// Default: 100000 (DefaultMaxSteps)
func WithMaxSteps(n int) EnumeratorOption {
	return func(e *Enumerator) {
		e.maxSteps = n
	}
}

// WithMaxDepth sets the maximum statement nesting.
//
// Default: 32 (DefaultMaxDepth)
func WithMaxDepth(n int) EnumeratorOption {
	return func(e *Enumerator) {
		e.maxDepth = n
	}
}

// NewEnumerator creates an enumerator positioned before the first context.
func NewEnumerator(p *ir.Program, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		program:  p,
		maxSteps: DefaultMaxSteps,
		maxDepth: DefaultMaxDepth,
		state:    Ready,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Enumerator) State() State {
	return e.state
}

// Steps returns how many statements have been visited so far.
func (e *Enumerator) Steps() int {
	return e.steps
}

// Advance returns the next context, or nil when the program is exhausted.
// After an error the enumerator is Exhausted and keeps returning that error.
func (e *Enumerator) Advance() (*ir.Context, error) {
	for {
		if e.state == Exhausted {
			return nil, e.err
		}

		if len(e.stack) == 0 {
			if e.started {
				e.started = false
				e.rule++
			}
			if e.rule >= len(e.program.Rules) {
				e.state = Exhausted
				return nil, nil
			}
			rule := e.program.Rules[e.rule]
			e.started = true
			if len(rule.Statements) == 0 {
				// A rule without conditions always applies.
				if err := e.step(); err != nil {
					return nil, err
				}
				idx := e.rule
				e.started = false
				e.rule++
				return e.context(idx, nil), nil
			}
			e.stack = append(e.stack, frame{stmts: rule.Statements})
			continue
		}

		top := &e.stack[len(e.stack)-1]
		if top.idx >= len(top.stmts) {
			e.stack = e.stack[:len(e.stack)-1]
			if len(e.stack) > 0 {
				e.stack[len(e.stack)-1].advance()
			}
			continue
		}

		stmt := top.stmts[top.idx]
		if top.combo == nil {
			if err := e.step(); err != nil {
				return nil, err
			}
			combo, err := e.enter(stmt)
			if err != nil {
				return nil, err
			}
			top.combo = combo
		}

		entries := e.entries(top.base, stmt, top.combo)
		if len(stmt.Nested) == 0 {
			top.advance()
			return e.context(e.rule, entries), nil
		}

		if len(e.stack) >= e.maxDepth {
			return nil, e.fail(ErrCodeDepthExceeded, fmt.Sprintf("statements nested deeper than %d levels", e.maxDepth))
		}
		e.stack = append(e.stack, frame{stmts: stmt.Nested, base: entries})
	}
}

func (e *Enumerator) step() error {
	e.steps++
	if e.maxSteps > 0 && e.steps > e.maxSteps {
		return e.fail(ErrCodeStepBudget, fmt.Sprintf("enumeration exceeded %d steps", e.maxSteps))
	}
	return nil
}

// enter validates a statement and returns the first value combination.
func (e *Enumerator) enter(stmt ir.DirIfStatement) ([]int, error) {
	n := 0
	for _, c := range stmt.Condition {
		if len(c.Values) == 0 {
			return nil, e.fail(ErrCodeEmptyComparison, fmt.Sprintf("%s comparison has no values (%s)", c.Logic, c.Metadata))
		}
		if c.Logic == ir.Positive {
			n++
		}
	}
	return make([]int, n), nil
}

// entries appends the entries of stmt under combo to a copy of base.
func (e *Enumerator) entries(base []ir.ContextEntry, stmt ir.DirIfStatement, combo []int) []ir.ContextEntry {
	out := make([]ir.ContextEntry, len(base), len(base)+len(stmt.Condition))
	copy(out, base)
	pos := 0
	for _, c := range stmt.Condition {
		if c.Logic == ir.Positive {
			out = append(out, ir.Assertion(c.Values[combo[pos]], c.Metadata))
			pos++
		} else {
			out = append(out, ir.Negation(c.Metadata, c.Values...))
		}
	}
	return out
}

func (e *Enumerator) context(idx int, entries []ir.ContextEntry) *ir.Context {
	rule := e.program.Rules[idx]
	ctx := ir.NewContext(entries...)
	ctx.Rule = rule.Name
	ctx.RuleIndex = idx
	ctx.Output = rule.Output.Connectors()
	return ctx
}

func (e *Enumerator) fail(code, msg string) error {
	e.err = &StateMachineError{Code: code, Message: msg, Steps: e.steps}
	e.state = Exhausted
	e.stack = nil
	return e.err
}
