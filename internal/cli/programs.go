package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/routegraph/internal/analyzer"
	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/store"
)

// ProgramsOptions holds flags for the programs command.
type ProgramsOptions struct {
	*RootOptions
	Key keyFlags
}

// StoredProgram is a stored program with its re-analysis report.
type StoredProgram struct {
	Hash    string           `json:"hash"`
	Program *ir.Program      `json:"program"`
	Report  *analyzer.Report `json:"report"`
}

// NewProgramsCommand creates the programs command.
func NewProgramsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProgramsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "programs [hash]",
		Short: "List or show stored programs",
		Long: `Without arguments, list a merchant's stored programs, oldest first.
With a hash, load that program, analyze it again and print it.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowProgram(opts, args[0], cmd)
			}
			return runListPrograms(opts, cmd)
		},
	}

	opts.Key.register(cmd, false)

	return cmd
}

func runListPrograms(opts *ProgramsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	m, err := opts.Key.merchant()
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
	}
	st, err := openStore(opts.RootOptions, true)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	records, err := st.ListPrograms(cmd.Context(), m)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}

	if formatter.IsJSON() {
		return formatter.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintf(formatter.Writer, "No programs stored for %s/%s.\n", m.Tenant, m.Merchant)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %s (ir %s)\n", r.Seq, r.Hash, r.Name, r.IRVersion)
	}
	return nil
}

func runShowProgram(opts *ProgramsOptions, hash string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts.RootOptions, true)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	defer st.Close()

	prog, err := st.LoadProgram(cmd.Context(), hash)
	if errors.Is(err, store.ErrNotFound) {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, err.Error())
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}

	report, err := analyzer.Analyze(prog, analyzer.WithEnumeratorOptions(enumeratorOptions()...))
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeGeneric, fmt.Sprintf("stored program %s: %v", hash, err))
	}

	if formatter.IsJSON() {
		return formatter.Success(StoredProgram{Hash: hash, Program: prog, Report: report})
	}
	w := formatter.Writer
	fmt.Fprintf(w, "%s %s\n", hash, prog.Name)
	fmt.Fprintf(w, "  default: %v\n", connectorNames(prog.Default))
	for _, r := range prog.Rules {
		fmt.Fprintf(w, "  rule %s: %v\n", r.Name, connectorNames(r.Output))
	}
	fmt.Fprintf(w, "✓ %d context(s), no contradictions\n", report.Contexts)
	return nil
}

func connectorNames(o ir.DirOutput) []string {
	vals := o.Connectors()
	names := make([]string, len(vals))
	for i, v := range vals {
		names[i] = v.Value
	}
	return names
}
