package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/routegraph/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Programs int                        `json:"programs"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate programs without analysis",
		Long: `Validate routing programs without enumerating their contexts.

Checks CUE syntax, program shape, structural rules and that every key and
value resolves against the dimension schema. Reports every error found.
Faster than analyze for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadPrograms(path, LoadModeCollectAll)
	if loadResult == nil {
		code, message := parseLoadError(loadErrors[0])
		return fail(formatter, ExitCommandError, code, message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, loadValidationError(err))
	}

	for _, prog := range loadResult.Programs {
		formatter.VerboseLog("Validating program: %s", prog.Name)

		if errs := compiler.Validate(prog); len(errs) > 0 {
			validationErrors = append(validationErrors, errs...)
			continue
		}
		if _, err := compiler.Lower(prog, nil); err != nil {
			validationErrors = append(validationErrors, loweringValidationError(prog.Name, err))
		}
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors, len(loadResult.Programs))
	}
	return outputValidateSuccess(formatter, len(loadResult.Programs))
}

func loadValidationError(err error) compiler.ValidationError {
	code, message := parseLoadError(err)
	var loadErr *LoadError
	line := 0
	if errors.As(err, &loadErr) {
		line = getLineFromCuePos(loadErr.Pos)
	}
	return compiler.ValidationError{Field: "load", Message: message, Code: code, Line: line}
}

func loweringValidationError(program string, err error) compiler.ValidationError {
	ve := compiler.ValidationError{Field: program, Message: err.Error(), Code: ErrCodeGeneric}
	var lerr *compiler.LoweringError
	if errors.As(err, &lerr) {
		ve.Code = lerr.Code
		ve.Line = lerr.Metadata.Line
	}
	return ve
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, programs int) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Programs: programs})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d program(s) valid\n", programs)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError, programs int) error {
	if formatter.IsJSON() {
		result := ValidationResult{
			Valid:    false,
			Programs: programs,
			Errors:   errs,
		}
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
