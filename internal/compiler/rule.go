package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/routegraph/internal/ast"
)

// validOps lists the operators a comparison may use.
var validOps = map[ast.Op]bool{
	ast.OpEqual:            true,
	ast.OpNotEqual:         true,
	ast.OpGreaterThan:      true,
	ast.OpGreaterThanEqual: true,
	ast.OpLessThan:         true,
	ast.OpLessThanEqual:    true,
}

// parseRules parses the rules list in authored order.
func parseRules(v cue.Value) ([]ast.Rule, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []ast.Rule
	for i := 0; iter.Next(); i++ {
		rv := iter.Value()
		rule := ast.Rule{Pos: toPos(rv.Pos())}

		nameVal := rv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("rules[%d].name", i),
				Message: "rule name is required",
				Pos:     rv.Pos(),
			}
		}
		rule.Name, err = nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		outVal := rv.LookupPath(cue.ParsePath("output"))
		if !outVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("rules[%d].output", i),
				Message: fmt.Sprintf("rule %q output is required", rule.Name),
				Pos:     rv.Pos(),
			}
		}
		rule.Output, err = parseOutput(outVal, fmt.Sprintf("rules[%d].output", i))
		if err != nil {
			return nil, err
		}

		stmtsVal := rv.LookupPath(cue.ParsePath("statements"))
		if stmtsVal.Exists() {
			rule.Statements, err = parseStatements(stmtsVal, fmt.Sprintf("rules[%d].statements", i))
			if err != nil {
				return nil, err
			}
		}

		rules = append(rules, rule)
	}
	return rules, nil
}

// parseStatements parses a list of if-statements, recursing into nested blocks.
func parseStatements(v cue.Value, field string) ([]ast.IfStatement, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var stmts []ast.IfStatement
	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		path := fmt.Sprintf("%s[%d]", field, i)
		stmt := ast.IfStatement{Pos: toPos(sv.Pos())}

		condVal := sv.LookupPath(cue.ParsePath("condition"))
		if condVal.Exists() {
			condIter, err := condVal.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for j := 0; condIter.Next(); j++ {
				cmp, err := parseComparison(condIter.Value(), fmt.Sprintf("%s.condition[%d]", path, j))
				if err != nil {
					return nil, err
				}
				stmt.Condition = append(stmt.Condition, cmp)
			}
		}

		nestedVal := sv.LookupPath(cue.ParsePath("nested"))
		if nestedVal.Exists() {
			stmt.Nested, err = parseStatements(nestedVal, path+".nested")
			if err != nil {
				return nil, err
			}
		}

		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// parseComparison parses { lhs: "...", op: "==", value: ... }.
// op defaults to "==".
func parseComparison(v cue.Value, field string) (ast.Comparison, error) {
	cmp := ast.Comparison{Op: ast.OpEqual, Pos: toPos(v.Pos())}

	lhs, err := v.LookupPath(cue.ParsePath("lhs")).String()
	if err != nil {
		return cmp, &CompileError{
			Field:   field + ".lhs",
			Message: "lhs must be a key name",
			Pos:     v.Pos(),
		}
	}
	cmp.LHS = lhs

	if opVal := v.LookupPath(cue.ParsePath("op")); opVal.Exists() {
		op, err := opVal.String()
		if err != nil {
			return cmp, formatCUEError(err)
		}
		if !validOps[ast.Op(op)] {
			return cmp, &CompileError{
				Field:   field + ".op",
				Message: fmt.Sprintf("unknown operator %q", op),
				Pos:     opVal.Pos(),
			}
		}
		cmp.Op = ast.Op(op)
	}

	valVal := v.LookupPath(cue.ParsePath("value"))
	if !valVal.Exists() {
		return cmp, &CompileError{
			Field:   field + ".value",
			Message: "value is required",
			Pos:     v.Pos(),
		}
	}
	cmp.Value, err = parseValue(valVal, field+".value")
	if err != nil {
		return cmp, err
	}
	return cmp, nil
}

// parseValue converts a CUE value to a comparison value.
// Floats are forbidden: amounts are integers in minor units.
func parseValue(v cue.Value, field string) (ast.Value, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return ast.Value{}, formatCUEError(err)
		}
		return ast.Value{Kind: ast.StringValue, Str: s}, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return ast.Value{}, formatCUEError(err)
		}
		return ast.Value{Kind: ast.NumberValue, Number: n}, nil
	case cue.ListKind:
		return parseListValue(v, field)
	case cue.FloatKind, cue.NumberKind:
		return ast.Value{}, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int minor units instead",
			Pos:     v.Pos(),
		}
	default:
		return ast.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// parseListValue parses a homogeneous list of strings or ints.
// An empty list parses as an empty string list; lowering rejects it.
func parseListValue(v cue.Value, field string) (ast.Value, error) {
	iter, err := v.List()
	if err != nil {
		return ast.Value{}, formatCUEError(err)
	}

	out := ast.Value{Kind: ast.StringListValue}
	for i := 0; iter.Next(); i++ {
		item, err := parseValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return ast.Value{}, err
		}
		switch item.Kind {
		case ast.StringValue:
			if len(out.Numbers) > 0 {
				return ast.Value{}, mixedListError(iter.Value(), field)
			}
			out.Strs = append(out.Strs, item.Str)
		case ast.NumberValue:
			if len(out.Strs) > 0 {
				return ast.Value{}, mixedListError(iter.Value(), field)
			}
			out.Kind = ast.NumberListValue
			out.Numbers = append(out.Numbers, item.Number)
		default:
			return ast.Value{}, &CompileError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "nested lists are not allowed",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return out, nil
}

func mixedListError(v cue.Value, field string) error {
	return &CompileError{
		Field:   field,
		Message: "list mixes strings and numbers",
		Pos:     v.Pos(),
	}
}
