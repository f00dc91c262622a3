package routing

import (
	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
)

// ConnectorChoice is one candidate connector for a payment.
type ConnectorChoice struct {
	Connector string `json:"connector" yaml:"connector"`
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
}

// Rejection records why a candidate was dropped.
type Rejection struct {
	Choice ConnectorChoice       `json:"choice"`
	Reason string                `json:"reason"`
	Err    error                 `json:"-"`
	Trace  *kgraph.AnalysisTrace `json:"-"`
}

// FilterResult splits candidates into eligible and rejected, each in
// input order.
type FilterResult struct {
	Eligible []ConnectorChoice `json:"eligible"`
	Rejected []Rejection       `json:"rejected,omitempty"`
}

type filterOptions struct {
	schema  *ir.Schema
	domains []string
}

// FilterOption configures FilterChoices.
type FilterOption func(*filterOptions)

// WithFilterSchema sets the schema used to resolve connector names.
//
// Default: ir.DefaultSchema()
func WithFilterSchema(s *ir.Schema) FilterOption {
	return func(o *filterOptions) {
		o.schema = s
	}
}

// WithFilterDomains limits the check to edges of the named domains.
func WithFilterDomains(domains ...string) FilterOption {
	return func(o *filterOptions) {
		o.domains = domains
	}
}

// FilterChoices checks every candidate against g under ctx and drops the
// ones that fail. Each candidate gets a fresh memo and cycle check, so one
// candidate's evaluation never affects another's. A candidate whose name
// the schema does not know is rejected.
func FilterChoices(candidates []ConnectorChoice, ctx *ir.Context, g *kgraph.Graph, opts ...FilterOption) FilterResult {
	o := &filterOptions{schema: ir.DefaultSchema()}
	for _, opt := range opts {
		opt(o)
	}

	actx := kgraph.NewAnalysisContext(ctx)
	res := FilterResult{Eligible: make([]ConnectorChoice, 0, len(candidates))}
	for _, c := range candidates {
		v, err := o.schema.ResolveEnum(ir.KeyConnector, c.Connector)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Choice: c, Reason: err.Error(), Err: err})
			continue
		}
		trace, err := g.CheckValueValidity(v, actx, kgraph.NewMemo(), kgraph.NewCycleCheck(), o.domains)
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Choice: c, Reason: trace.FirstFailure(), Err: err, Trace: trace})
			continue
		}
		res.Eligible = append(res.Eligible, c)
	}
	return res
}
