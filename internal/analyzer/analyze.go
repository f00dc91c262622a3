package analyzer

import (
	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
)

// Report summarizes a successful analysis.
type Report struct {
	Program     string `json:"program"`
	Rules       int    `json:"rules"`
	Contexts    int    `json:"contexts"`
	Steps       int    `json:"steps"`
	GraphChecks int    `json:"graph_checks"`
}

type options struct {
	schema     *ir.Schema
	graph      *kgraph.Graph
	useDefault bool
	domains    []string
	enumOpts   []EnumeratorOption
	visit      func(*ir.Context)
}

// Option configures Analyze.
type Option func(*options)

// WithSchema sets the schema used for key kinds and domains.
//
// Default: ir.DefaultSchema()
func WithSchema(s *ir.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithGraph checks every asserted value and output connector against g.
func WithGraph(g *kgraph.Graph) Option {
	return func(o *options) {
		o.graph = g
	}
}

// WithDefaultGraph checks against kgraph.DefaultGraph() unless WithGraph
// supplies a graph.
func WithDefaultGraph() Option {
	return func(o *options) {
		o.useDefault = true
	}
}

// WithDomains limits graph checks to edges of the named domains.
func WithDomains(domains ...string) Option {
	return func(o *options) {
		o.domains = domains
	}
}

// WithEnumeratorOptions passes options to the underlying Enumerator.
func WithEnumeratorOptions(opts ...EnumeratorOption) Option {
	return func(o *options) {
		o.enumOpts = append(o.enumOpts, opts...)
	}
}

// WithVisitor calls fn with every context that passed all checks.
func WithVisitor(fn func(*ir.Context)) Option {
	return func(o *options) {
		o.visit = fn
	}
}

// Analyze enumerates every context of p and checks each one. The first
// failure aborts the analysis: an *AnalysisError for a contradiction, a
// *StateMachineError for malformed structure.
func Analyze(p *ir.Program, opts ...Option) (*Report, error) {
	o := &options{schema: ir.DefaultSchema()}
	for _, opt := range opts {
		opt(o)
	}

	graph := o.graph
	if graph == nil && o.useDefault {
		g, err := kgraph.DefaultGraph()
		if err != nil {
			return nil, err
		}
		graph = g
	}

	report := &Report{Program: p.Name, Rules: len(p.Rules)}
	en := NewEnumerator(p, o.enumOpts...)
	for {
		ctx, err := en.Advance()
		report.Steps = en.Steps()
		if err != nil {
			return nil, err
		}
		if ctx == nil {
			return report, nil
		}
		report.Contexts++

		if err := checkContext(ctx, o.schema); err != nil {
			return nil, err
		}
		if graph != nil {
			n, err := checkGraph(ctx, graph, o.domains)
			report.GraphChecks += n
			if err != nil {
				return nil, err
			}
		}
		if o.visit != nil {
			o.visit(ctx)
		}
	}
}

// checkContext runs the three contradiction checks in fixed order.
func checkContext(ctx *ir.Context, schema *ir.Schema) error {
	if err := CheckConflictingAssertions(ctx, schema); err != nil {
		return &AnalysisError{Code: ErrCodeConflictingAssertions, Rule: ctx.Rule, Context: ctx, Err: err}
	}
	if err := CheckExhaustiveNegation(ctx, schema); err != nil {
		return &AnalysisError{Code: ErrCodeExhaustiveNegation, Rule: ctx.Rule, Context: ctx, Err: err}
	}
	if err := CheckNegatedAssertions(ctx); err != nil {
		return &AnalysisError{Code: ErrCodeNegatedAssertion, Rule: ctx.Rule, Context: ctx, Err: err}
	}
	return nil
}

// checkGraph validates each asserted value, then each output connector,
// with a fresh memo and cycle check per value. Returns the number of
// checks run.
func checkGraph(ctx *ir.Context, g *kgraph.Graph, domains []string) (int, error) {
	actx := kgraph.NewAnalysisContext(ctx)

	var candidates []ir.DimensionValue
	for _, e := range ctx.Assertions() {
		candidates = append(candidates, e.Value)
	}
	candidates = append(candidates, ctx.Output...)

	for i, v := range candidates {
		if _, err := g.CheckValueValidity(v, actx, kgraph.NewMemo(), kgraph.NewCycleCheck(), domains); err != nil {
			return i + 1, &AnalysisError{Code: ErrCodeGraphViolation, Rule: ctx.Rule, Context: ctx, Err: err}
		}
	}
	return len(candidates), nil
}
