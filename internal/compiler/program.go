package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/routegraph/internal/ast"
)

// CompileProgram parses a CUE value into a routing program AST.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`routing: checkout: { default: {...}, rules: [...] }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.checkout")))
func CompileProgram(v cue.Value) (*ast.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &ast.Program{}

	// Program name comes from the struct label unless set explicitly
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		prog.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		prog.Name = name
	}

	// Parse default (required)
	defVal := v.LookupPath(cue.ParsePath("default"))
	if !defVal.Exists() {
		return nil, &CompileError{
			Field:   "default",
			Message: "default output is required",
			Pos:     v.Pos(),
		}
	}
	def, err := parseOutput(defVal, "default")
	if err != nil {
		return nil, err
	}
	prog.Default = def

	// Parse rules (optional; a program may route everything to the default)
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		prog.Rules, err = parseRules(rulesVal)
		if err != nil {
			return nil, err
		}
	}

	// Parse metadata (optional string map)
	metaVal := v.LookupPath(cue.ParsePath("metadata"))
	if metaVal.Exists() {
		iter, err := metaVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		prog.Metadata = make(map[string]string)
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			prog.Metadata[iter.Label()] = s
		}
	}

	return prog, nil
}

// parseOutput parses one connector selection. Exactly one of priority,
// volume_split or volume_split_priority must be present.
func parseOutput(v cue.Value, field string) (ast.Output, error) {
	out := ast.Output{Pos: toPos(v.Pos())}
	present := 0

	if pVal := v.LookupPath(cue.ParsePath("priority")); pVal.Exists() {
		present++
		out.Kind = ast.Priority
		conns, err := parseStringList(pVal)
		if err != nil {
			return out, err
		}
		out.Priority = conns
	}

	if vsVal := v.LookupPath(cue.ParsePath("volume_split")); vsVal.Exists() {
		present++
		out.Kind = ast.VolumeSplit
		iter, err := vsVal.List()
		if err != nil {
			return out, formatCUEError(err)
		}
		for iter.Next() {
			item := iter.Value()
			conn, err := item.LookupPath(cue.ParsePath("connector")).String()
			if err != nil {
				return out, formatCUEError(err)
			}
			weight, err := parseWeight(item, field)
			if err != nil {
				return out, err
			}
			out.VolumeSplit = append(out.VolumeSplit, ast.Split{Connector: conn, Weight: weight})
		}
	}

	if vspVal := v.LookupPath(cue.ParsePath("volume_split_priority")); vspVal.Exists() {
		present++
		out.Kind = ast.VolumeSplitPriority
		iter, err := vspVal.List()
		if err != nil {
			return out, formatCUEError(err)
		}
		for iter.Next() {
			item := iter.Value()
			conns, err := parseStringList(item.LookupPath(cue.ParsePath("connectors")))
			if err != nil {
				return out, err
			}
			weight, err := parseWeight(item, field)
			if err != nil {
				return out, err
			}
			out.SplitPriorities = append(out.SplitPriorities, ast.SplitPriority{Connectors: conns, Weight: weight})
		}
	}

	if present != 1 {
		return out, &CompileError{
			Field:   field,
			Message: "output must have exactly one of priority, volume_split or volume_split_priority",
			Pos:     v.Pos(),
		}
	}
	return out, nil
}

func parseWeight(v cue.Value, field string) (int, error) {
	wVal := v.LookupPath(cue.ParsePath("weight"))
	if !wVal.Exists() {
		return 0, &CompileError{
			Field:   field + ".weight",
			Message: "weight is required",
			Pos:     v.Pos(),
		}
	}
	w, err := wVal.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(w), nil
}

func parseStringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompilePrograms compiles every program under the top-level "routing"
// struct of v, in declaration order. The first failure aborts.
func CompilePrograms(v cue.Value) ([]*ast.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	routingVal := v.LookupPath(cue.ParsePath("routing"))
	if !routingVal.Exists() {
		return nil, &CompileError{Field: "routing", Message: "no routing programs found", Pos: v.Pos()}
	}
	iter, err := routingVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var progs []*ast.Program
	for iter.Next() {
		p, err := CompileProgram(iter.Value())
		if err != nil {
			return nil, err
		}
		progs = append(progs, p)
	}
	if len(progs) == 0 {
		return nil, &CompileError{Field: "routing", Message: "no routing programs found", Pos: routingVal.Pos()}
	}
	return progs, nil
}

func toPos(p token.Pos) ast.Pos {
	if !p.IsValid() {
		return ast.Pos{}
	}
	return ast.Pos{File: p.Filename(), Line: p.Line(), Column: p.Column()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
