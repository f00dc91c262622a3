package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/routegraph/internal/ast"
)

// Validation error codes (E100-E199)
const (
	// Program errors (E101-E104)
	ErrProgramNoDefault  = "E101" // default output selects no connector
	ErrDuplicateRuleName = "E102" // two rules share a name
	ErrRuleNameEmpty     = "E103" // rule name is blank
	ErrRuleNoOutput      = "E104" // rule output selects no connector

	// Statement errors (E110-E119)
	ErrEmptyCondition = "E110" // if-statement has no conditions
	ErrNestingTooDeep = "E111" // statements nested beyond MaxNestingDepth
	ErrEmptyKey       = "E112" // comparison has a blank key

	// Output errors (E120-E129)
	ErrSplitWeightSum     = "E120" // volume split weights do not sum to 100
	ErrSplitWeightInvalid = "E121" // weight outside 1..100
	ErrEmptyConnector     = "E122" // blank connector name
)

// MaxNestingDepth bounds how deeply if-statements may nest.
const MaxNestingDepth = 32

// ValidationError represents a structural validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks the structure of a program AST.
// Returns all errors found (does not fail-fast). Key and value resolution
// against a schema happens in Lower.
func Validate(p *ast.Program) []ValidationError {
	var errs []ValidationError

	// E101: default must select something
	if p.Default.IsEmpty() {
		errs = append(errs, ValidationError{
			Field:   "default",
			Message: "default output must select at least one connector",
			Code:    ErrProgramNoDefault,
			Line:    p.Default.Pos.Line,
		})
	} else {
		errs = append(errs, validateOutput(p.Default, "default")...)
	}

	names := make(map[string]bool)
	for i, rule := range p.Rules {
		field := fmt.Sprintf("rules[%d]", i)

		// E103: rule name is required
		if strings.TrimSpace(rule.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "rule name is required and must be non-empty",
				Code:    ErrRuleNameEmpty,
				Line:    rule.Pos.Line,
			})
		} else if names[rule.Name] {
			// E102: duplicate rule name
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate rule name: %q", rule.Name),
				Code:    ErrDuplicateRuleName,
				Line:    rule.Pos.Line,
			})
		}
		names[rule.Name] = true

		// E104: rule must select something
		if rule.Output.IsEmpty() {
			errs = append(errs, ValidationError{
				Field:   field + ".output",
				Message: fmt.Sprintf("rule %q must select at least one connector", rule.Name),
				Code:    ErrRuleNoOutput,
				Line:    rule.Pos.Line,
			})
		} else {
			errs = append(errs, validateOutput(rule.Output, field+".output")...)
		}

		errs = append(errs, validateStatements(rule.Statements, field+".statements", 1)...)
	}

	return errs
}

// validateStatements walks nested statements collecting structural errors.
func validateStatements(stmts []ast.IfStatement, field string, depth int) []ValidationError {
	var errs []ValidationError

	for i, stmt := range stmts {
		path := fmt.Sprintf("%s[%d]", field, i)

		// E111: nesting depth
		if depth > MaxNestingDepth {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("statements nested deeper than %d levels", MaxNestingDepth),
				Code:    ErrNestingTooDeep,
				Line:    stmt.Pos.Line,
			})
			continue
		}

		// E110: empty condition
		if len(stmt.Condition) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".condition",
				Message: "if-statement must have at least one condition",
				Code:    ErrEmptyCondition,
				Line:    stmt.Pos.Line,
			})
		}

		// E112: blank key
		for j, cmp := range stmt.Condition {
			if strings.TrimSpace(cmp.LHS) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.condition[%d].lhs", path, j),
					Message: "comparison key is required",
					Code:    ErrEmptyKey,
					Line:    cmp.Pos.Line,
				})
			}
		}

		errs = append(errs, validateStatements(stmt.Nested, path+".nested", depth+1)...)
	}

	return errs
}

// validateOutput checks connector names and split weights.
func validateOutput(out ast.Output, field string) []ValidationError {
	var errs []ValidationError

	checkName := func(name, path string) {
		// E122: blank connector
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "connector name is required",
				Code:    ErrEmptyConnector,
				Line:    out.Pos.Line,
			})
		}
	}

	checkWeights := func(weights []int, path string) {
		sum := 0
		for i, w := range weights {
			// E121: each weight in 1..100
			if w <= 0 || w > 100 {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d].weight", path, i),
					Message: fmt.Sprintf("weight %d must be between 1 and 100", w),
					Code:    ErrSplitWeightInvalid,
					Line:    out.Pos.Line,
				})
			}
			sum += w
		}
		// E120: weights sum to 100
		if len(weights) > 0 && sum != 100 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("split weights sum to %d, expected 100", sum),
				Code:    ErrSplitWeightSum,
				Line:    out.Pos.Line,
			})
		}
	}

	switch out.Kind {
	case ast.Priority:
		for i, c := range out.Priority {
			checkName(c, fmt.Sprintf("%s.priority[%d]", field, i))
		}
	case ast.VolumeSplit:
		weights := make([]int, len(out.VolumeSplit))
		for i, s := range out.VolumeSplit {
			checkName(s.Connector, fmt.Sprintf("%s.volume_split[%d].connector", field, i))
			weights[i] = s.Weight
		}
		checkWeights(weights, field+".volume_split")
	case ast.VolumeSplitPriority:
		weights := make([]int, len(out.SplitPriorities))
		for i, sp := range out.SplitPriorities {
			for j, c := range sp.Connectors {
				checkName(c, fmt.Sprintf("%s.volume_split_priority[%d].connectors[%d]", field, i, j))
			}
			weights[i] = sp.Weight
		}
		checkWeights(weights, field+".volume_split_priority")
	}

	return errs
}
