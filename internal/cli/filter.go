package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/routegraph/internal/config"
	"github.com/roach88/routegraph/internal/routing"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Request string // YAML or JSON request file
	Explain bool   // render the analysis trace of each rejection
	Key     keyFlags
	Input   routing.PaymentInput
	Amount  int64
}

// FilterView is the outcome of one eligibility check.
type FilterView struct {
	Key      string                    `json:"key"`
	Eligible []routing.ConnectorChoice `json:"eligible"`
	Rejected []RejectionView           `json:"rejected"`
}

// RejectionView explains one dropped candidate.
type RejectionView struct {
	Connector string `json:"connector"`
	AccountID string `json:"account_id,omitempty"`
	Reason    string `json:"reason"`
	Trace     string `json:"trace,omitempty"`
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter <connector[:account]>...",
		Short: "Check which connectors may process a payment",
		Long: `Check candidate connectors against a merchant's knowledge graph for one
payment request. Candidates keep their order; rejected ones are listed
with the first requirement they failed.

The request comes from --request (a YAML or JSON file) and the attribute
flags, which override the file.

Exit codes:
  0 - At least one connector is eligible
  1 - Every candidate was rejected
  2 - Command error (bad request, database errors)

Examples:
  routegraph filter stripe adyen --merchant m_1 --profile pro_1 --payment-method card --currency USD
  routegraph filter stripe:acc_1 --merchant m_1 --profile pro_1 --request payment.yaml --explain`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Request, "request", "", "payment request file (YAML or JSON)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "show the analysis trace of each rejection")
	cmd.Flags().StringVar(&opts.Input.PaymentMethod, "payment-method", "", "payment method")
	cmd.Flags().StringVar(&opts.Input.PaymentMethodType, "payment-method-type", "", "payment method type")
	cmd.Flags().StringVar(&opts.Input.CardNetwork, "card-network", "", "card network")
	cmd.Flags().StringVar(&opts.Input.CaptureMethod, "capture-method", "", "capture method")
	cmd.Flags().StringVar(&opts.Input.AuthenticationType, "authentication-type", "", "authentication type")
	cmd.Flags().StringVar(&opts.Input.Currency, "currency", "", "currency")
	cmd.Flags().StringVar(&opts.Input.BillingCountry, "country", "", "billing country")
	cmd.Flags().Int64Var(&opts.Amount, "amount", 0, "amount in minor units")
	opts.Key.register(cmd, true)

	return cmd
}

func runFilter(opts *FilterOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	key, err := opts.Key.cacheKey()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}
	in, err := filterInput(opts, cmd)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}
	candidates, err := parseCandidates(args)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}

	st, err := openStore(opts.RootOptions, true)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	cache := routing.NewGraphCache(st, opts.Logger,
		routing.WithStore(routing.NewMemoryStore(
			routing.WithMaxEntries(config.GraphCacheMaxEntries()),
			routing.WithMaxAge(config.GraphCacheTTL()),
		)),
	)
	svc := routing.NewService(cache, opts.Logger)

	res, err := svc.Eligible(cmd.Context(), key, in, candidates)
	if res == nil {
		var (
			reqErr *routing.RequestError
			cfgErr *routing.ConfigError
		)
		if errors.As(err, &reqErr) || errors.As(err, &cfgErr) {
			return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
		}
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}

	view := newFilterView(key, res, opts.Explain)
	if errors.Is(err, routing.ErrNoEligibleConnector) {
		if formatter.IsJSON() {
			if ferr := formatter.Failure("NO_ELIGIBLE_CONNECTOR", err.Error(), view); ferr != nil {
				return ferr
			}
		} else {
			printFilterView(formatter, view)
			fmt.Fprintln(formatter.Writer, "✗ No eligible connector")
		}
		return WrapExitError(ExitFailure, "filter", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(view)
	}
	printFilterView(formatter, view)
	return nil
}

// filterInput merges the request file with the attribute flags.
func filterInput(opts *FilterOptions, cmd *cobra.Command) (routing.PaymentInput, error) {
	var in routing.PaymentInput
	if opts.Request != "" {
		data, err := os.ReadFile(opts.Request)
		if err != nil {
			return in, fmt.Errorf("failed to read request: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil {
			return in, fmt.Errorf("failed to parse request: %w", err)
		}
	}

	flags := opts.Input
	override := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	override(&in.PaymentMethod, flags.PaymentMethod)
	override(&in.PaymentMethodType, flags.PaymentMethodType)
	override(&in.CardNetwork, flags.CardNetwork)
	override(&in.CaptureMethod, flags.CaptureMethod)
	override(&in.AuthenticationType, flags.AuthenticationType)
	override(&in.Currency, flags.Currency)
	override(&in.BillingCountry, flags.BillingCountry)
	if cmd.Flags().Changed("amount") {
		amount := opts.Amount
		in.Amount = &amount
	}
	return in, nil
}

// parseCandidates reads "connector" or "connector:account" arguments.
func parseCandidates(args []string) ([]routing.ConnectorChoice, error) {
	out := make([]routing.ConnectorChoice, 0, len(args))
	for _, arg := range args {
		connector, account, _ := strings.Cut(arg, ":")
		if connector == "" {
			return nil, fmt.Errorf("invalid candidate %q: connector is required", arg)
		}
		out = append(out, routing.ConnectorChoice{Connector: connector, AccountID: account})
	}
	return out, nil
}

func newFilterView(key routing.CacheKey, res *routing.FilterResult, explain bool) *FilterView {
	view := &FilterView{
		Key:      key.String(),
		Eligible: res.Eligible,
		Rejected: make([]RejectionView, 0, len(res.Rejected)),
	}
	if view.Eligible == nil {
		view.Eligible = []routing.ConnectorChoice{}
	}
	for _, r := range res.Rejected {
		rv := RejectionView{
			Connector: r.Choice.Connector,
			AccountID: r.Choice.AccountID,
			Reason:    r.Reason,
		}
		if explain && r.Trace != nil {
			rv.Trace = r.Trace.String()
		}
		view.Rejected = append(view.Rejected, rv)
	}
	return view
}

func printFilterView(formatter *OutputFormatter, view *FilterView) {
	w := formatter.Writer
	for _, c := range view.Eligible {
		fmt.Fprintf(w, "✓ %s\n", choiceLabel(c.Connector, c.AccountID))
	}
	for _, r := range view.Rejected {
		fmt.Fprintf(w, "✗ %s: %s\n", choiceLabel(r.Connector, r.AccountID), r.Reason)
		if r.Trace != "" {
			for _, line := range strings.Split(strings.TrimRight(r.Trace, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

func choiceLabel(connector, account string) string {
	if account == "" {
		return connector
	}
	return connector + ":" + account
}
