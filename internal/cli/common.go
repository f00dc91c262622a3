package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/routegraph/internal/analyzer"
	"github.com/roach88/routegraph/internal/ast"
	"github.com/roach88/routegraph/internal/compiler"
	"github.com/roach88/routegraph/internal/config"
	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
	"github.com/roach88/routegraph/internal/routing"
	"github.com/roach88/routegraph/internal/store"
)

// keyFlags binds the flags that select one merchant graph.
type keyFlags struct {
	Tenant          string
	Merchant        string
	Profile         string
	TransactionType string
}

// register adds the merchant flags. withProfile adds profile and
// transaction type, which only graph lookups need.
func (k *keyFlags) register(cmd *cobra.Command, withProfile bool) {
	cmd.Flags().StringVar(&k.Tenant, "tenant", "public", "tenant id")
	cmd.Flags().StringVar(&k.Merchant, "merchant", "", "merchant id")
	if withProfile {
		cmd.Flags().StringVar(&k.Profile, "profile", "default", "business profile id")
		cmd.Flags().StringVar(&k.TransactionType, "transaction-type", string(routing.Payment), "transaction type (payment|payout)")
	}
}

func (k *keyFlags) merchant() (store.Merchant, error) {
	if k.Merchant == "" {
		return store.Merchant{}, fmt.Errorf("--merchant is required")
	}
	return store.Merchant{Tenant: k.Tenant, Merchant: k.Merchant}, nil
}

func (k *keyFlags) cacheKey() (routing.CacheKey, error) {
	tt, err := routing.ParseTransactionType(k.TransactionType)
	if err != nil {
		return routing.CacheKey{}, err
	}
	key := routing.CacheKey{
		Tenant:          k.Tenant,
		Merchant:        k.Merchant,
		Profile:         k.Profile,
		TransactionType: tt,
	}
	if err := key.Validate(); err != nil {
		return routing.CacheKey{}, err
	}
	return key, nil
}

// openStore opens the database named by --db. Read-only commands pass
// mustExist so a typo does not silently create an empty database.
func openStore(opts *RootOptions, mustExist bool) (*store.Store, error) {
	if mustExist && opts.DB != ":memory:" {
		if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found: %s", opts.DB)
		}
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// enumeratorOptions returns the enumeration bounds from the environment.
func enumeratorOptions() []analyzer.EnumeratorOption {
	return []analyzer.EnumeratorOption{
		analyzer.WithMaxSteps(config.EnumeratorMaxSteps()),
		analyzer.WithMaxDepth(config.EnumeratorMaxDepth()),
	}
}

// Program check statuses.
const (
	StatusOK            = "ok"
	StatusInvalid       = "invalid"       // structural validation failed
	StatusLoweringError = "lowering_error" // keys or values did not resolve
	StatusContradiction = "contradiction" // analysis found an unsatisfiable context
	StatusAborted       = "aborted"       // enumeration hit its step or depth budget
)

// ProgramReport is the verdict on one program.
type ProgramReport struct {
	Name     string                     `json:"name"`
	Status   string                     `json:"status"`
	Code     string                     `json:"code,omitempty"`
	Rule     string                     `json:"rule,omitempty"`
	Message  string                     `json:"message,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Report   *analyzer.Report           `json:"report,omitempty"`
	Contexts []string                   `json:"contexts,omitempty"`

	Lowered *ir.Program `json:"-"`
}

// OK reports whether the program passed every stage.
func (r *ProgramReport) OK() bool {
	return r.Status == StatusOK
}

// checkProgram validates, lowers and analyzes one program. A nil graph
// analyzes without domain knowledge. Failures are part of the report,
// never returned as errors.
func checkProgram(p *ast.Program, g *kgraph.Graph, collectContexts bool) *ProgramReport {
	rep := &ProgramReport{Name: p.Name}

	if errs := compiler.Validate(p); len(errs) > 0 {
		rep.Status = StatusInvalid
		rep.Code = errs[0].Code
		rep.Message = errs[0].Message
		rep.Errors = errs
		return rep
	}

	lowered, err := compiler.Lower(p, nil)
	if err != nil {
		rep.Status = StatusLoweringError
		rep.Message = err.Error()
		var lerr *compiler.LoweringError
		if errors.As(err, &lerr) {
			rep.Code = lerr.Code
			rep.Rule = lerr.Metadata.Rule
		}
		return rep
	}
	rep.Lowered = lowered

	opts := []analyzer.Option{analyzer.WithEnumeratorOptions(enumeratorOptions()...)}
	if g != nil {
		opts = append(opts, analyzer.WithGraph(g))
	}
	if collectContexts {
		opts = append(opts, analyzer.WithVisitor(func(c *ir.Context) {
			rep.Contexts = append(rep.Contexts, fmt.Sprintf("%s: %s", c.Rule, c))
		}))
	}

	report, err := analyzer.Analyze(lowered, opts...)
	if err != nil {
		rep.Message = err.Error()
		var (
			aerr *analyzer.AnalysisError
			serr *analyzer.StateMachineError
		)
		switch {
		case errors.As(err, &aerr):
			rep.Status = StatusContradiction
			rep.Code = string(aerr.Code)
			rep.Rule = aerr.Rule
		case errors.As(err, &serr):
			rep.Status = StatusAborted
			rep.Code = serr.Code
		default:
			rep.Status = StatusAborted
			rep.Code = ErrCodeGeneric
		}
		return rep
	}
	rep.Status = StatusOK
	rep.Report = report
	return rep
}
