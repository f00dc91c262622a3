package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/routegraph/internal/kgraph"
	"github.com/roach88/routegraph/internal/routing"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Domains []string // only show edges of these domains
	Key     keyFlags
}

// GraphView is the printable form of a knowledge graph.
type GraphView struct {
	Source      string                `json:"source"`
	Fingerprint string                `json:"fingerprint"`
	Nodes       int                   `json:"nodes"`
	Domains     []string              `json:"domains"`
	Edges       []EdgeView            `json:"edges"`
	Cycles      []kgraph.CycleWarning `json:"cycles,omitempty"`
}

// EdgeView is one requirement edge, with node labels in place of ids.
type EdgeView struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
	Strength string `json:"strength"`
	Domain   string `json:"domain,omitempty"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show a knowledge graph",
		Long: `Show the requirement edges of a knowledge graph and any cycles among them.

Without --merchant the built-in payment domain knowledge is shown. With
--merchant the graph is built from the merchant's stored connector
configuration for the given profile and transaction type.

Examples:
  routegraph graph
  routegraph graph --merchant m_1 --profile pro_1
  routegraph graph --merchant m_1 --profile pro_1 --domain filters --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Domains, "domain", nil, "only show edges of these domains")
	opts.Key.register(cmd, true)

	return cmd
}

func runGraph(opts *GraphOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var (
		g      *kgraph.Graph
		source = "default"
	)
	if opts.Key.Merchant == "" {
		var err error
		g, err = kgraph.DefaultGraph()
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("building default graph: %v", err))
		}
	} else {
		key, err := opts.Key.cacheKey()
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
		}
		st, err := openStore(opts.RootOptions, true)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		defer st.Close()

		cfg, err := st.LoadConfig(cmd.Context(), key)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		formatter.VerboseLog("Loaded %d account(s), %d filter(s) for %s", len(cfg.Accounts), len(cfg.Filters), key)

		g, err = routing.BuildGraph(cfg, nil)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
		}
		source = key.String()
	}

	view := newGraphView(g, source, opts.Domains)
	if formatter.IsJSON() {
		return formatter.Success(view)
	}
	printGraphView(formatter, view)
	return nil
}

func newGraphView(g *kgraph.Graph, source string, domains []string) *GraphView {
	view := &GraphView{
		Source:      source,
		Fingerprint: g.Fingerprint(),
		Nodes:       g.Len(),
		Domains:     []string{},
		Edges:       []EdgeView{},
		Cycles:      g.Cycles(),
	}
	for _, d := range g.Domains() {
		view.Domains = append(view.Domains, d.Name)
	}
	for _, e := range g.Edges() {
		if len(domains) > 0 && !slices.Contains(domains, e.Domain) {
			continue
		}
		view.Edges = append(view.Edges, EdgeView{
			From:     nodeLabel(g, e.Pred),
			To:       nodeLabel(g, e.Succ),
			Relation: e.Relation.String(),
			Strength: e.Strength.String(),
			Domain:   e.Domain,
		})
	}
	return view
}

func nodeLabel(g *kgraph.Graph, id kgraph.NodeID) string {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Sprintf("#%d", id)
	}
	return n.Label()
}

func printGraphView(formatter *OutputFormatter, view *GraphView) {
	w := formatter.Writer
	fmt.Fprintf(w, "Knowledge graph %s\n", view.Source)
	fmt.Fprintf(w, "  %d node(s), %d edge(s), fingerprint %s\n", view.Nodes, len(view.Edges), view.Fingerprint)
	fmt.Fprintf(w, "  domains: %v\n\n", view.Domains)

	for _, e := range view.Edges {
		domain := e.Domain
		if domain == "" {
			domain = "*"
		}
		fmt.Fprintf(w, "  %s -> %s [%s, %s, %s]\n", e.From, e.To, e.Relation, e.Strength, domain)
	}

	if len(view.Cycles) > 0 {
		fmt.Fprintln(w)
		for _, c := range view.Cycles {
			fmt.Fprintf(w, "⚠ %s\n", c.Message)
		}
	}
}
