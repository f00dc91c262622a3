package analyzer

import (
	"github.com/roach88/routegraph/internal/ir"
)

func enum(k ir.Key, v string) ir.DimensionValue {
	return ir.EnumValue(k, v)
}

func pos(line int, vals ...ir.DimensionValue) ir.DirComparison {
	return ir.DirComparison{Values: vals, Logic: ir.Positive, Metadata: ir.Metadata{Line: line}}
}

func neg(line int, vals ...ir.DimensionValue) ir.DirComparison {
	return ir.DirComparison{Values: vals, Logic: ir.Negative, Metadata: ir.Metadata{Line: line}}
}

func stmt(conds ...ir.DirComparison) ir.DirIfStatement {
	return ir.DirIfStatement{Condition: conds}
}

func nest(s ir.DirIfStatement, nested ...ir.DirIfStatement) ir.DirIfStatement {
	s.Nested = nested
	return s
}

func rule(name string, stmts ...ir.DirIfStatement) ir.DirRule {
	return ir.DirRule{
		Name:       name,
		Output:     ir.DirOutput{Kind: ir.OutputPriority, Priority: []ir.DimensionValue{enum(ir.KeyConnector, "stripe")}},
		Statements: stmts,
	}
}

func program(rules ...ir.DirRule) *ir.Program {
	return &ir.Program{Name: "test", Rules: rules}
}

var (
	card   = enum(ir.KeyPaymentMethod, "card")
	wallet = enum(ir.KeyPaymentMethod, "wallet")
	bank   = enum(ir.KeyPaymentMethod, "bank_transfer")
	usd    = enum(ir.KeyCurrency, "USD")
	eur    = enum(ir.KeyCurrency, "EUR")
	gbp    = enum(ir.KeyCurrency, "GBP")
	visa   = enum(ir.KeyCardNetwork, "visa")
	over   = ir.NumberValue(ir.KeyAmount, ir.GreaterThan, 500)
)
