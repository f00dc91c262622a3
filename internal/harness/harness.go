package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap"

	"github.com/roach88/routegraph/internal/analyzer"
	"github.com/roach88/routegraph/internal/ast"
	"github.com/roach88/routegraph/internal/compiler"
	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/routing"
	"github.com/roach88/routegraph/internal/testutil"
)

// Harness runs scenarios with deterministic snapshot ids and versions so
// repeated runs produce identical traces.
type Harness struct {
	logger *zap.Logger
	opts   []analyzer.EnumeratorOption
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the routing service.
//
// Default: zap.NewNop()
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithEnumeratorOptions bounds program enumeration.
func WithEnumeratorOptions(opts ...analyzer.EnumeratorOption) Option {
	return func(h *Harness) {
		h.opts = append(h.opts, opts...)
	}
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and evaluates its assertions.
//
// Contradictions, lowering failures and rejected candidates are outcomes,
// recorded in the result. Only a scenario that cannot be executed at all
// (unparseable CUE, unreadable program file) returns an error.
//
// Execution flow:
// 1. Analyze the program, if any, against the selected graph
// 2. Build the merchant graph through a fresh GraphCache
// 3. Filter each request's candidates in order
// 4. Evaluate assertions
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	key, err := scenario.CacheKey()
	if err != nil {
		return nil, err
	}

	if scenario.Program != "" || scenario.ProgramFile != "" {
		if err := h.analyze(ctx, scenario, key, result); err != nil {
			return nil, err
		}
	}

	if len(scenario.Requests) > 0 {
		h.route(ctx, scenario, key, result)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) analyze(ctx context.Context, s *Scenario, key routing.CacheKey, result *Result) error {
	prog, err := loadProgram(s)
	if err != nil {
		return err
	}

	if errs := compiler.Validate(prog); len(errs) > 0 {
		h.recordAnalysis(result, &AnalysisOutcome{Code: errs[0].Code, Message: errs[0].Error()})
		return nil
	}

	lowered, err := compiler.Lower(prog, nil)
	if err != nil {
		h.recordAnalysis(result, outcomeOf(err))
		return nil
	}

	opts := []analyzer.Option{
		analyzer.WithEnumeratorOptions(h.opts...),
		analyzer.WithVisitor(func(c *ir.Context) {
			result.record(TraceEvent{Type: EventContext, Rule: c.Rule, Detail: c.String()})
		}),
	}
	switch s.Graph {
	case GraphDefault:
		opts = append(opts, analyzer.WithDefaultGraph())
	case GraphMerchant:
		cfg, err := routing.StaticSource(*s.Config).LoadConfig(ctx, key)
		if err != nil {
			return err
		}
		g, err := routing.BuildGraph(cfg, nil)
		if err != nil {
			h.recordAnalysis(result, &AnalysisOutcome{Code: "CONFIG_ERROR", Message: err.Error()})
			return nil
		}
		opts = append(opts, analyzer.WithGraph(g))
	}

	report, err := analyzer.Analyze(lowered, opts...)
	if err != nil {
		h.recordAnalysis(result, outcomeOf(err))
		return nil
	}
	h.recordAnalysis(result, &AnalysisOutcome{Code: AnalysisOK, Report: report})
	return nil
}

func (h *Harness) recordAnalysis(result *Result, out *AnalysisOutcome) {
	result.Analysis = out
	result.record(TraceEvent{Type: EventAnalysis, Rule: out.Rule, Detail: out.Code})
}

// outcomeOf maps a program failure to its code.
func outcomeOf(err error) *AnalysisOutcome {
	out := &AnalysisOutcome{Code: "ERROR", Message: err.Error()}
	var (
		aerr *analyzer.AnalysisError
		serr *analyzer.StateMachineError
		lerr *compiler.LoweringError
	)
	switch {
	case errors.As(err, &aerr):
		out.Code = string(aerr.Code)
		out.Rule = aerr.Rule
	case errors.As(err, &serr):
		out.Code = serr.Code
	case errors.As(err, &lerr):
		out.Code = lerr.Code
		out.Rule = lerr.Metadata.Rule
	}
	return out
}

func (h *Harness) route(ctx context.Context, s *Scenario, key routing.CacheKey, result *Result) {
	clock := testutil.NewManualClock()
	cache := routing.NewGraphCache(routing.StaticSource(*s.Config), h.logger,
		routing.WithIDGenerator(testutil.NewSequenceIDGenerator("snap")),
		routing.WithVersionSource(clock),
		routing.WithNow(clock.Now),
	)
	svc := routing.NewService(cache, h.logger)

	snap, err := cache.GetGraph(ctx, key)
	if err != nil {
		result.record(TraceEvent{Type: EventGraph, Detail: "error: " + err.Error()})
	} else {
		result.record(TraceEvent{Type: EventGraph, Detail: fmt.Sprintf("%s version %d", snap.ID, snap.Version)})
		for _, w := range snap.Warnings {
			result.record(TraceEvent{Type: EventCycle, Detail: w.Message})
		}
	}

	for _, req := range s.Requests {
		candidates := make([]routing.ConnectorChoice, len(req.Candidates))
		for i, c := range req.Candidates {
			candidates[i] = routing.ConnectorChoice{Connector: c}
		}

		res, err := svc.Eligible(ctx, key, req.Input, candidates)
		if res != nil {
			result.Verdicts[req.Name] = res
			h.recordVerdicts(result, req, res)
		}
		switch {
		case err == nil:
		case errors.Is(err, routing.ErrNoEligibleConnector):
			result.record(TraceEvent{Type: EventNoEligible, Request: req.Name})
		default:
			result.RequestErrors[req.Name] = err.Error()
			result.record(TraceEvent{Type: EventRequestError, Request: req.Name, Detail: err.Error()})
		}
	}
}

// recordVerdicts emits one event per candidate in candidate order.
func (h *Harness) recordVerdicts(result *Result, req Request, res *routing.FilterResult) {
	eligible := make(map[string]bool, len(res.Eligible))
	for _, c := range res.Eligible {
		eligible[c.Connector] = true
	}
	for _, c := range req.Candidates {
		typ := EventRejected
		if eligible[c] {
			typ = EventEligible
		}
		result.record(TraceEvent{Type: typ, Request: req.Name, Connector: c})
	}
}

// loadProgram compiles the scenario's program into an AST. An inline
// program is a bare program struct and takes the scenario name unless it
// sets one. A program file holds exactly one program under "routing".
func loadProgram(s *Scenario) (*ast.Program, error) {
	if s.ProgramFile != "" {
		data, err := os.ReadFile(s.ProgramFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read program file: %w", err)
		}
		v := cuecontext.New().CompileBytes(data, cue.Filename(s.ProgramFile))
		progs, err := compiler.CompilePrograms(v)
		if err != nil {
			return nil, fmt.Errorf("failed to compile program: %w", err)
		}
		if len(progs) != 1 {
			return nil, fmt.Errorf("program file %s: want 1 program, found %d", s.ProgramFile, len(progs))
		}
		return progs[0], nil
	}

	v := cuecontext.New().CompileString(s.Program, cue.Filename(s.Name+".cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}
	prog, err := compiler.CompileProgram(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile program: %w", err)
	}
	if prog.Name == "" {
		prog.Name = s.Name
	}
	return prog, nil
}
