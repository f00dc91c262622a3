package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/ast"
)

func TestCompileProgramBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: checkout: {
			default: priority: ["stripe", "adyen"]

			rules: [{
				name: "card_usd"
				output: priority: ["stripe"]
				statements: [{
					condition: [
						{lhs: "payment_method", value: "card"},
						{lhs: "currency", op: "==", value: ["USD", "EUR"]},
					]
					nested: [{
						condition: [{lhs: "amount", op: ">", value: 500}]
					}]
				}]
			}, {
				name: "split"
				output: volume_split: [
					{connector: "adyen", weight: 60},
					{connector: "checkout", weight: 40},
				]
			}]

			metadata: owner: "payments"
		}
	`)

	require.NoError(t, v.Err())
	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.checkout")))
	require.NoError(t, err)

	assert.Equal(t, "checkout", prog.Name)
	assert.Equal(t, ast.Priority, prog.Default.Kind)
	assert.Equal(t, []string{"stripe", "adyen"}, prog.Default.Priority)
	assert.Equal(t, "payments", prog.Metadata["owner"])
	require.Len(t, prog.Rules, 2)

	r := prog.Rules[0]
	assert.Equal(t, "card_usd", r.Name)
	require.Len(t, r.Statements, 1)
	require.Len(t, r.Statements[0].Condition, 2)

	pm := r.Statements[0].Condition[0]
	assert.Equal(t, "payment_method", pm.LHS)
	assert.Equal(t, ast.OpEqual, pm.Op, "op defaults to ==")
	assert.Equal(t, ast.Value{Kind: ast.StringValue, Str: "card"}, pm.Value)
	assert.True(t, pm.Pos.IsValid())

	cur := r.Statements[0].Condition[1]
	assert.Equal(t, ast.Value{Kind: ast.StringListValue, Strs: []string{"USD", "EUR"}}, cur.Value)

	require.Len(t, r.Statements[0].Nested, 1)
	amt := r.Statements[0].Nested[0].Condition[0]
	assert.Equal(t, ast.OpGreaterThan, amt.Op)
	assert.Equal(t, ast.Value{Kind: ast.NumberValue, Number: 500}, amt.Value)

	split := prog.Rules[1]
	assert.Equal(t, ast.VolumeSplit, split.Output.Kind)
	assert.Equal(t, []ast.Split{{Connector: "adyen", Weight: 60}, {Connector: "checkout", Weight: 40}}, split.Output.VolumeSplit)
	assert.Empty(t, split.Statements)
}

func TestCompileProgramExplicitName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: p: {
			name: "renamed"
			default: volume_split_priority: [{connectors: ["stripe", "adyen"], weight: 100}]
		}
	`)

	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.p")))
	require.NoError(t, err)
	assert.Equal(t, "renamed", prog.Name)
	require.Len(t, prog.Default.SplitPriorities, 1)
	assert.Equal(t, []string{"stripe", "adyen"}, prog.Default.SplitPriorities[0].Connectors)
}

func TestCompileProgramMissingDefault(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			rules: []
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
	assert.Contains(t, err.Error(), "required")
}

func TestCompileProgramAmbiguousOutput(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			default: {
				priority: ["stripe"]
				volume_split: [{connector: "adyen", weight: 100}]
			}
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestCompileProgramRejectsFloat(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			default: priority: ["stripe"]
			rules: [{
				name: "r"
				output: priority: ["stripe"]
				statements: [{condition: [{lhs: "amount", op: ">", value: 10.5}]}]
			}]
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompileProgramRejectsMixedList(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			default: priority: ["stripe"]
			rules: [{
				name: "r"
				output: priority: ["stripe"]
				statements: [{condition: [{lhs: "currency", value: ["USD", 10]}]}]
			}]
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixes")
}

func TestCompileProgramUnknownOperator(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			default: priority: ["stripe"]
			rules: [{
				name: "r"
				output: priority: ["stripe"]
				statements: [{condition: [{lhs: "currency", op: "~=", value: "USD"}]}]
			}]
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Field, ".op")
}

func TestCompileProgramMissingRuleName(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: bad: {
			default: priority: ["stripe"]
			rules: [{output: priority: ["stripe"]}]
		}
	`)

	_, err := CompileProgram(v.LookupPath(cue.ParsePath("routing.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules[0].name")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "default", Message: "default output is required"}
	assert.Equal(t, "default: default output is required", err.Error())
}

func TestCompilePrograms(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: {
			checkout: default: priority: ["stripe"]
			payouts: {
				name: "payouts_v2"
				default: priority: ["adyen"]
			}
		}
	`)

	progs, err := CompilePrograms(v)
	require.NoError(t, err)
	require.Len(t, progs, 2)
	assert.Equal(t, "checkout", progs[0].Name)
	assert.Equal(t, "payouts_v2", progs[1].Name)
}

func TestCompileProgramsMissingRouting(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)

	_, err := CompilePrograms(v)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "routing", ce.Field)
}

func TestCompileProgramsStopsAtFirstError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		routing: {
			good: default: priority: ["stripe"]
			bad: rules: []
		}
	`)

	_, err := CompilePrograms(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default output is required")
}
