package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
	"github.com/roach88/routegraph/internal/routing"
)

// Graph modes for analyze.
const (
	GraphNone     = "none"
	GraphDefault  = "default"
	GraphMerchant = "merchant"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Graph    string // none | default | merchant
	Output   string // lowered programs output file
	Contexts bool   // list every enumerated context
	Key      keyFlags
}

// AnalysisResult holds the verdict on every program under a path.
type AnalysisResult struct {
	Programs []*ProgramReport `json:"programs"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Find contradictions in routing programs",
		Long: `Compile the routing programs under a CUE directory or file, lower them
and enumerate every rule context looking for conditions that can never hold.

With --graph default the contexts and selected connectors are also checked
against built-in payment domain knowledge. With --graph merchant they are
checked against the knowledge graph of a stored merchant configuration.

Exit codes:
  0 - Every program is free of contradictions
  1 - A program is invalid or contradictory
  2 - Command error (invalid paths, CUE errors, database errors)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Graph, "graph", GraphNone, "knowledge graph to check against (none|default|merchant)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write lowered programs to this file")
	cmd.Flags().BoolVar(&opts.Contexts, "contexts", false, "list every enumerated context")
	opts.Key.register(cmd, true)

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	g, err := analysisGraph(opts, cmd)
	if err != nil {
		return err
	}

	loadResult, loadErrors := LoadPrograms(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	result := &AnalysisResult{Programs: make([]*ProgramReport, 0, len(loadResult.Programs))}
	for _, prog := range loadResult.Programs {
		formatter.VerboseLog("Analyzing program: %s", prog.Name)
		rep := checkProgram(prog, g, opts.Contexts)
		result.Programs = append(result.Programs, rep)
		if rep.OK() {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Output != "" && result.Failed == 0 {
		if err := writeLowered(result.Programs, opts.Output); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputAnalysis(formatter, result, opts.Output)
}

// analysisGraph resolves --graph to a knowledge graph. GraphNone yields nil.
func analysisGraph(opts *AnalyzeOptions, cmd *cobra.Command) (*kgraph.Graph, error) {
	formatter := newFormatter(opts.RootOptions, cmd)

	switch opts.Graph {
	case GraphNone:
		return nil, nil
	case GraphDefault:
		g, err := kgraph.DefaultGraph()
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeGeneric, fmt.Sprintf("building default graph: %v", err))
		}
		return g, nil
	case GraphMerchant:
		key, err := opts.Key.cacheKey()
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
		}
		st, err := openStore(opts.RootOptions, true)
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		defer st.Close()

		cfg, err := st.LoadConfig(cmd.Context(), key)
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeDatabase, err.Error())
		}
		g, err := routing.BuildGraph(cfg, nil)
		if err != nil {
			return nil, fail(formatter, ExitCommandError, ErrCodeBadInput, err.Error())
		}
		formatter.VerboseLog("Loaded merchant graph %s: %d nodes", key, g.Len())
		return g, nil
	default:
		return nil, fail(formatter, ExitCommandError, ErrCodeBadInput,
			fmt.Sprintf("invalid graph %q: must be one of none, default, merchant", opts.Graph))
	}
}

// outputAnalysis prints the per-program verdicts.
func outputAnalysis(formatter *OutputFormatter, result *AnalysisResult, outputFile string) error {
	var firstFailure *ProgramReport
	for _, rep := range result.Programs {
		if !rep.OK() {
			firstFailure = rep
			break
		}
	}

	if formatter.IsJSON() {
		if firstFailure == nil {
			return formatter.Success(result)
		}
		if err := formatter.Failure(firstFailure.Code, firstFailure.Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d program(s) failed analysis", result.Failed))
	}

	w := formatter.Writer
	for _, rep := range result.Programs {
		if rep.OK() {
			fmt.Fprintf(w, "✓ %s: %d rule(s), %d context(s), %d graph check(s)\n",
				rep.Name, rep.Report.Rules, rep.Report.Contexts, rep.Report.GraphChecks)
		} else {
			fmt.Fprintf(w, "✗ %s: %s\n", rep.Name, rep.Status)
			fmt.Fprintf(w, "  %s: %s\n", rep.Code, rep.Message)
			for _, e := range rep.Errors[min(1, len(rep.Errors)):] {
				fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
			}
		}
		for _, c := range rep.Contexts {
			fmt.Fprintf(w, "    %s\n", c)
		}
	}
	fmt.Fprintln(w)

	if firstFailure != nil {
		fmt.Fprintf(w, "Analysis Summary: %d passed, %d failed\n", result.Passed, result.Failed)
		return NewExitError(ExitFailure, fmt.Sprintf("%d program(s) failed analysis", result.Failed))
	}
	fmt.Fprintf(w, "✓ Analyzed %d program(s), no contradictions\n", result.Passed)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote lowered programs to %s\n", outputFile)
	}
	return nil
}

// outputLoadErrors reports errors that stopped programs from loading.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	code, message := parseLoadError(errs[0])
	if formatter.IsJSON() {
		details := make([]string, len(errs))
		for i, err := range errs {
			details[i] = err.Error()
		}
		_ = formatter.Error(code, message, details)
	} else {
		for _, err := range errs {
			c, m := parseLoadError(err)
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
					loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", c, m)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeLowered writes the lowered programs as indented JSON.
func writeLowered(reports []*ProgramReport, filename string) error {
	progs := make([]*ir.Program, 0, len(reports))
	for _, rep := range reports {
		progs = append(progs, rep.Lowered)
	}
	data, err := json.MarshalIndent(progs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling programs: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
