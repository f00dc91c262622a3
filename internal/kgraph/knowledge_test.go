package kgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/ir"
)

func TestDefaultGraphBuildsOnce(t *testing.T) {
	g1, err := DefaultGraph()
	require.NoError(t, err)
	g2, err := DefaultGraph()
	require.NoError(t, err)

	assert.Same(t, g1, g2)
	assert.Empty(t, g1.Cycles(), "built-in knowledge is acyclic")
}

func TestDefaultKnowledge(t *testing.T) {
	g, err := DefaultGraph()
	require.NoError(t, err)

	enum := func(k ir.Key, v string) ir.DimensionValue { return ir.EnumValue(k, v) }
	bank := enum(ir.KeyPaymentMethod, "bank_transfer")
	redirect := enum(ir.KeyPaymentMethod, "bank_redirect")
	offSession := enum(ir.KeySetupFutureUsage, "off_session")

	tests := []struct {
		name      string
		candidate ir.DimensionValue
		ctx       *AnalysisContext
		valid     bool
	}{
		{"network on card", visa, actx(asserted(card)), true},
		{"network without method", visa, actx(), true},
		{"network on wallet", visa, actx(asserted(wallet)), false},
		{"subtype matches parent", enum(ir.KeyPaymentMethodType, "apple_pay"), actx(asserted(wallet)), true},
		{"subtype contradicts parent", enum(ir.KeyPaymentMethodType, "credit"), actx(asserted(wallet)), false},
		{"manual capture on bank transfer", manualCap, actx(asserted(bank)), false},
		{"manual capture on pay later", manualCap, actx(asserted(payLater)), true},
		{"ach in EUR", enum(ir.KeyPaymentMethodType, "ach"), actx(asserted(bank), asserted(eur)), false},
		{"ach in USD", enum(ir.KeyPaymentMethodType, "ach"), actx(asserted(bank), asserted(usd)), true},
		{"three ds on wallet", enum(ir.KeyAuthenticationType, "three_ds"), actx(asserted(wallet)), false},
		{"mandate without usage", enum(ir.KeyMandateType, "multi_use"), actx(), false},
		{"mandate off session", enum(ir.KeyMandateType, "multi_use"), actx(asserted(offSession), asserted(card)), true},
		{"off session redirect", offSession, actx(asserted(redirect)), false},
		{"scheduled capture on wallet", enum(ir.KeyCaptureMethod, "scheduled"), actx(asserted(wallet)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.CheckValueValidity(tt.candidate, tt.ctx, nil, nil, nil)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAddDefaultKnowledgeSkipsMissingKeys(t *testing.T) {
	schema := ir.MustSchema(
		ir.KeySpec{Key: ir.KeyPaymentMethod, Kind: ir.EnumKind, Values: []string{"card"}},
		ir.KeySpec{Key: ir.KeyCardNetwork, Kind: ir.EnumKind, Values: []string{"visa"}},
	)
	b := NewBuilder()
	AddDefaultKnowledge(b, schema)

	g, err := b.Build()
	require.NoError(t, err)

	// only the network rule applies
	assert.Equal(t, []ir.DimensionValue{card, visa}, g.Values())
	assert.Len(t, g.Edges(), 1)
	_, err = g.CheckValueValidity(visa, actx(asserted(card)), nil, nil, nil)
	assert.NoError(t, err)
}
