package compiler

import (
	"fmt"

	"github.com/roach88/routegraph/internal/ast"
	"github.com/roach88/routegraph/internal/ir"
)

// Lowering error codes (L100-L199)
const (
	ErrUnknownKey         = "L101" // key not in schema
	ErrUnknownValue       = "L102" // enum variant not in key domain
	ErrOperatorNotAllowed = "L103" // operator invalid for key kind or value shape
	ErrEmptyValueList     = "L104" // value list has no entries
	ErrUnknownConnector   = "L105" // output names a connector not in schema
	ErrValueKindMismatch  = "L106" // e.g. number given for an enum key
	ErrInvalidOutput      = "L107" // output has no recognised kind
)

// LoweringError reports a program that references something the schema
// does not know. Lowering stops at the first one.
type LoweringError struct {
	Code     string
	Message  string
	Metadata ir.Metadata
	Err      error
}

func (e *LoweringError) Error() string {
	if e.Metadata.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Metadata, e.Message)
}

func (e *LoweringError) Unwrap() error {
	return e.Err
}

var opComparisons = map[ast.Op]ir.Comparison{
	ast.OpGreaterThan:      ir.GreaterThan,
	ast.OpGreaterThanEqual: ir.GreaterThanEqual,
	ast.OpLessThan:         ir.LessThan,
	ast.OpLessThanEqual:    ir.LessThanEqual,
}

// Lower converts a program AST into directed form, resolving every key and
// value against schema. A nil schema means ir.DefaultSchema().
//
// Lowering also makes implicit conditions explicit: a positive
// payment_method_type comparison adds the parent payment_method assertion
// when nothing on the path already constrains payment_method. Derived
// entries carry Metadata.Derived.
func Lower(p *ast.Program, schema *ir.Schema) (*ir.Program, error) {
	if schema == nil {
		schema = ir.DefaultSchema()
	}
	l := &lowerer{schema: schema}

	out := &ir.Program{Name: p.Name}
	if len(p.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}

	def, err := l.output(p.Default, ir.Metadata{Description: "default output", File: p.Default.Pos.File, Line: p.Default.Pos.Line, Column: p.Default.Pos.Column})
	if err != nil {
		return nil, err
	}
	out.Default = def

	for _, rule := range p.Rules {
		dr, err := l.rule(rule)
		if err != nil {
			return nil, err
		}
		out.Rules = append(out.Rules, dr)
	}
	return out, nil
}

type lowerer struct {
	schema *ir.Schema
}

func (l *lowerer) meta(rule string, pos ast.Pos) ir.Metadata {
	return ir.Metadata{Rule: rule, File: pos.File, Line: pos.Line, Column: pos.Column}
}

func (l *lowerer) rule(r ast.Rule) (ir.DirRule, error) {
	meta := l.meta(r.Name, r.Pos)
	dr := ir.DirRule{Name: r.Name, Metadata: meta}

	var err error
	dr.Output, err = l.output(r.Output, meta)
	if err != nil {
		return dr, err
	}

	dr.Statements, err = l.statements(r.Name, r.Statements, nil)
	if err != nil {
		return dr, err
	}
	return dr, nil
}

// statements lowers a block list. constrained holds the keys already
// mentioned on the path from the rule root.
func (l *lowerer) statements(rule string, stmts []ast.IfStatement, constrained map[ir.Key]bool) ([]ir.DirIfStatement, error) {
	var out []ir.DirIfStatement
	for _, stmt := range stmts {
		path := make(map[ir.Key]bool, len(constrained)+len(stmt.Condition))
		for k := range constrained {
			path[k] = true
		}
		for _, cmp := range stmt.Condition {
			path[ir.Key(cmp.LHS)] = true
		}

		ds := ir.DirIfStatement{}
		for _, cmp := range stmt.Condition {
			dc, err := l.comparison(rule, cmp)
			if err != nil {
				return nil, err
			}
			ds.Condition = append(ds.Condition, dc)
		}
		ds.Condition = append(ds.Condition, l.implied(ds.Condition, path)...)

		nested, err := l.statements(rule, stmt.Nested, path)
		if err != nil {
			return nil, err
		}
		ds.Nested = nested
		out = append(out, ds)
	}
	return out, nil
}

// implied returns derived parent assertions for positive comparisons whose
// values all imply the same parent value. path is updated with the keys
// the derived entries constrain.
func (l *lowerer) implied(conds []ir.DirComparison, path map[ir.Key]bool) []ir.DirComparison {
	var derived []ir.DirComparison
	for _, dc := range conds {
		if dc.Logic != ir.Positive || len(dc.Values) == 0 {
			continue
		}
		parent, ok := l.schema.Implied(dc.Values[0])
		if !ok || path[parent.Key] {
			continue
		}
		same := true
		for _, v := range dc.Values[1:] {
			if p, ok := l.schema.Implied(v); !ok || p != parent {
				same = false
				break
			}
		}
		if !same {
			continue
		}
		meta := dc.Metadata
		meta.Derived = true
		meta.Description = fmt.Sprintf("implied by %s", dc.Values[0].Key)
		derived = append(derived, ir.DirComparison{
			Values:   []ir.DimensionValue{parent},
			Logic:    ir.Positive,
			Metadata: meta,
		})
		path[parent.Key] = true
	}
	return derived
}

func (l *lowerer) comparison(rule string, cmp ast.Comparison) (ir.DirComparison, error) {
	meta := l.meta(rule, cmp.Pos)
	key := ir.Key(cmp.LHS)

	spec, ok := l.schema.Lookup(key)
	if !ok {
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrUnknownKey,
			Message:  fmt.Sprintf("unknown key %q", cmp.LHS),
			Metadata: meta,
		}
	}
	if cmp.Value.Len() == 0 {
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrEmptyValueList,
			Message:  fmt.Sprintf("%s: value list is empty", key),
			Metadata: meta,
		}
	}

	switch spec.Kind {
	case ir.EnumKind, ir.StrKind:
		return l.stringComparison(spec, cmp, meta)
	case ir.NumberKind:
		return l.numberComparison(spec, cmp, meta)
	default:
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrUnknownKey,
			Message:  fmt.Sprintf("key %q has unsupported kind %s", key, spec.Kind),
			Metadata: meta,
		}
	}
}

func equalityLogic(op ast.Op) (ir.Logic, bool) {
	switch op {
	case ast.OpEqual:
		return ir.Positive, true
	case ast.OpNotEqual:
		return ir.Negative, true
	default:
		return 0, false
	}
}

func (l *lowerer) stringComparison(spec ir.KeySpec, cmp ast.Comparison, meta ir.Metadata) (ir.DirComparison, error) {
	logic, ok := equalityLogic(cmp.Op)
	if !ok {
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrOperatorNotAllowed,
			Message:  fmt.Sprintf("operator %s not allowed on %s key %q", cmp.Op, spec.Kind, spec.Key),
			Metadata: meta,
		}
	}

	var raws []string
	switch cmp.Value.Kind {
	case ast.StringValue:
		raws = []string{cmp.Value.Str}
	case ast.StringListValue:
		raws = cmp.Value.Strs
	default:
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrValueKindMismatch,
			Message:  fmt.Sprintf("%s key %q cannot compare against %s", spec.Kind, spec.Key, cmp.Value.Kind),
			Metadata: meta,
		}
	}

	dc := ir.DirComparison{Logic: logic, Metadata: meta}
	seen := make(map[ir.DimensionValue]bool, len(raws))
	for _, raw := range raws {
		v := ir.StrValue(spec.Key, raw)
		if spec.Kind == ir.EnumKind {
			var err error
			v, err = l.schema.ResolveEnum(spec.Key, raw)
			if err != nil {
				return ir.DirComparison{}, &LoweringError{
					Code:     ErrUnknownValue,
					Message:  fmt.Sprintf("unknown %s variant %q", spec.Key, raw),
					Metadata: meta,
					Err:      err,
				}
			}
		}
		if !seen[v] {
			seen[v] = true
			dc.Values = append(dc.Values, v)
		}
	}
	return dc, nil
}

func (l *lowerer) numberComparison(spec ir.KeySpec, cmp ast.Comparison, meta ir.Metadata) (ir.DirComparison, error) {
	var nums []int64
	switch cmp.Value.Kind {
	case ast.NumberValue:
		nums = []int64{cmp.Value.Number}
	case ast.NumberListValue:
		nums = cmp.Value.Numbers
	default:
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrValueKindMismatch,
			Message:  fmt.Sprintf("number key %q cannot compare against %s", spec.Key, cmp.Value.Kind),
			Metadata: meta,
		}
	}

	// Ordering operators take one bound and always assert.
	if c, ok := opComparisons[cmp.Op]; ok {
		if len(nums) != 1 {
			return ir.DirComparison{}, &LoweringError{
				Code:     ErrOperatorNotAllowed,
				Message:  fmt.Sprintf("operator %s on %q requires a single number", cmp.Op, spec.Key),
				Metadata: meta,
			}
		}
		return ir.DirComparison{
			Values:   []ir.DimensionValue{ir.NumberValue(spec.Key, c, nums[0])},
			Logic:    ir.Positive,
			Metadata: meta,
		}, nil
	}

	// Equality is membership: == asserts one of the amounts, != excludes them.
	logic, ok := equalityLogic(cmp.Op)
	if !ok {
		return ir.DirComparison{}, &LoweringError{
			Code:     ErrOperatorNotAllowed,
			Message:  fmt.Sprintf("unknown operator %q", cmp.Op),
			Metadata: meta,
		}
	}
	dc := ir.DirComparison{Logic: logic, Metadata: meta}
	seen := make(map[int64]bool, len(nums))
	for _, n := range nums {
		if !seen[n] {
			seen[n] = true
			dc.Values = append(dc.Values, ir.NumberValue(spec.Key, ir.Equal, n))
		}
	}
	return dc, nil
}

// output resolves connector names to connector values.
func (l *lowerer) output(out ast.Output, meta ir.Metadata) (ir.DirOutput, error) {
	resolve := func(name string) (ir.DimensionValue, error) {
		v, err := l.schema.ResolveEnum(ir.KeyConnector, name)
		if err != nil {
			return ir.DimensionValue{}, &LoweringError{
				Code:     ErrUnknownConnector,
				Message:  fmt.Sprintf("unknown connector %q", name),
				Metadata: meta,
				Err:      err,
			}
		}
		return v, nil
	}

	do := ir.DirOutput{}
	switch out.Kind {
	case ast.Priority:
		do.Kind = ir.OutputPriority
		for _, name := range out.Priority {
			v, err := resolve(name)
			if err != nil {
				return do, err
			}
			do.Priority = append(do.Priority, v)
		}
	case ast.VolumeSplit:
		do.Kind = ir.OutputVolumeSplit
		for _, s := range out.VolumeSplit {
			v, err := resolve(s.Connector)
			if err != nil {
				return do, err
			}
			do.VolumeSplit = append(do.VolumeSplit, ir.VolumeSplit{Connector: v, Weight: s.Weight})
		}
	case ast.VolumeSplitPriority:
		do.Kind = ir.OutputVolumeSplitPriority
		for _, sp := range out.SplitPriorities {
			dsp := ir.VolumeSplitPriority{Weight: sp.Weight}
			for _, name := range sp.Connectors {
				v, err := resolve(name)
				if err != nil {
					return do, err
				}
				dsp.Connectors = append(dsp.Connectors, v)
			}
			do.SplitPriorities = append(do.SplitPriorities, dsp)
		}
	default:
		return do, &LoweringError{
			Code:     ErrInvalidOutput,
			Message:  fmt.Sprintf("unknown output kind %q", out.Kind),
			Metadata: meta,
		}
	}
	return do, nil
}
