package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/routegraph/internal/kgraph"
	"github.com/roach88/routegraph/internal/routing"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Programs string // CUE programs to store alongside the config
	Key      keyFlags
}

// ImportResult summarizes what was stored.
type ImportResult struct {
	Tenant   string         `json:"tenant"`
	Merchant string         `json:"merchant"`
	Accounts int            `json:"accounts"`
	Filters  int            `json:"filters"`
	Programs []SavedProgram `json:"programs,omitempty"`
}

// SavedProgram is a stored program and its content hash.
type SavedProgram struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <config.yaml>",
		Short: "Store a merchant's connector configuration",
		Long: `Replace a merchant's connector accounts and filters with the contents of
a YAML file. The configuration must build a valid knowledge graph for
every profile it names before anything is written.

With --programs, the routing programs under a CUE path are analyzed
against the default knowledge graph and stored by content hash. Any
contradiction aborts the import.

Examples:
  routegraph import merchant.yaml --merchant m_1
  routegraph import merchant.yaml --merchant m_1 --programs ./routing`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Programs, "programs", "", "CUE directory or file of programs to store")
	opts.Key.register(cmd, false)

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	m, err := opts.Key.merchant()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}
	if err := checkConfig(cfg); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}

	var reports []*ProgramReport
	if opts.Programs != "" {
		loadResult, loadErrors := LoadPrograms(opts.Programs, LoadModeFailFast)
		if len(loadErrors) > 0 {
			return outputLoadErrors(formatter, loadErrors)
		}
		g, err := kgraph.DefaultGraph()
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("building default graph: %v", err))
		}
		for _, prog := range loadResult.Programs {
			rep := checkProgram(prog, g, false)
			if !rep.OK() {
				return fail(formatter, ExitFailure, rep.Code, fmt.Sprintf("program %s: %s", rep.Name, rep.Message))
			}
			reports = append(reports, rep)
		}
	}

	st, err := openStore(opts.RootOptions, false)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	if err := st.ImportConfig(ctx, m, cfg); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	opts.Logger.Info("imported connector config",
		zap.String("tenant", m.Tenant),
		zap.String("merchant", m.Merchant),
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Int("filters", len(cfg.Filters)))

	result := &ImportResult{
		Tenant:   m.Tenant,
		Merchant: m.Merchant,
		Accounts: len(cfg.Accounts),
		Filters:  len(cfg.Filters),
	}
	for _, rep := range reports {
		hash, err := st.SaveProgram(ctx, m, rep.Lowered)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		formatter.VerboseLog("Stored program %s as %s", rep.Name, hash)
		result.Programs = append(result.Programs, SavedProgram{Name: rep.Name, Hash: hash})
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Imported %d account(s), %d filter(s) for %s/%s\n",
		result.Accounts, result.Filters, result.Tenant, result.Merchant)
	for _, p := range result.Programs {
		fmt.Fprintf(w, "  %s %s\n", p.Hash, p.Name)
	}
	return nil
}

// LoadConfigFile reads a connector configuration from YAML.
// Unknown fields are rejected.
func LoadConfigFile(path string) (routing.Config, error) {
	var cfg routing.Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// checkConfig builds the graph of every profile and transaction type the
// configuration names, so bad values are caught before the store is touched.
func checkConfig(cfg routing.Config) error {
	seen := make(map[routing.CacheKey]bool)
	for _, a := range cfg.Accounts {
		key := routing.CacheKey{Profile: a.Profile, TransactionType: a.TransactionType}
		if seen[key] {
			continue
		}
		seen[key] = true
		scoped, _ := routing.StaticSource(cfg).LoadConfig(context.Background(), key)
		if _, err := routing.BuildGraph(scoped, nil); err != nil {
			return err
		}
	}
	if len(cfg.Accounts) == 0 {
		if _, err := routing.BuildGraph(cfg, nil); err != nil {
			return err
		}
	}
	return nil
}
