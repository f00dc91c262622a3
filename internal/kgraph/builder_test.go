package kgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/ir"
)

var (
	card      = ir.EnumValue(ir.KeyPaymentMethod, "card")
	wallet    = ir.EnumValue(ir.KeyPaymentMethod, "wallet")
	payLater  = ir.EnumValue(ir.KeyPaymentMethod, "pay_later")
	visa      = ir.EnumValue(ir.KeyCardNetwork, "visa")
	usd       = ir.EnumValue(ir.KeyCurrency, "USD")
	eur       = ir.EnumValue(ir.KeyCurrency, "EUR")
	stripe    = ir.EnumValue(ir.KeyConnector, "stripe")
	adyen     = ir.EnumValue(ir.KeyConnector, "adyen")
	manualCap = ir.EnumValue(ir.KeyCaptureMethod, "manual")
)

func TestBuilderDeduplicatesValues(t *testing.T) {
	b := NewBuilder()
	id1 := b.Value(card)
	id2 := b.Value(card)
	id3 := b.Value(wallet)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, id3)

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []ir.DimensionValue{card, wallet}, g.Values())

	id, ok := g.Lookup(wallet)
	require.True(t, ok)
	assert.Equal(t, id3, id)
}

func TestBuilderRejectsEmptyGroup(t *testing.T) {
	b := NewBuilder()
	b.Group(Any, ir.Metadata{Description: "nothing"}, "")

	_, err := b.Build()
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrEmptyGroup, ge.Code)
	assert.Contains(t, ge.Error(), "any(nothing)")
}

func TestBuilderRejectsUnknownDomain(t *testing.T) {
	b := NewBuilder()
	b.Require(visa, card, Normal, "mystery", ir.Metadata{})

	_, err := b.Build()
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrUnknownDomain, ge.Code)
}

func TestBuilderRejectsUnknownNode(t *testing.T) {
	b := NewBuilder()
	b.Edge(b.Value(card), NodeID(42), Positive, Normal, "", ir.Metadata{})

	_, err := b.Build()
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, ErrUnknownNode, ge.Code)
}

func TestBuilderDefaultsStrength(t *testing.T) {
	b := NewBuilder()
	b.Edge(b.Value(card), b.Value(visa), Positive, 0, "", ir.Metadata{})

	g, err := b.Build()
	require.NoError(t, err)
	require.Len(t, g.Edges(), 1)
	assert.Equal(t, Normal, g.Edges()[0].Strength)
}

func TestGraphFingerprintDeterministic(t *testing.T) {
	build := func() *Graph {
		b := NewBuilder()
		b.RegisterDomain(DomainKnowledge, "test")
		b.Require(visa, card, Normal, DomainKnowledge, ir.Metadata{})
		b.AnyValue(ir.Metadata{Description: "holders"}, DomainKnowledge, card, wallet)
		g, err := b.Build()
		require.NoError(t, err)
		return g
	}

	g1, g2 := build(), build()
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())

	b := NewBuilder()
	b.Require(visa, card, Strong, "", ir.Metadata{})
	g3, err := b.Build()
	require.NoError(t, err)
	assert.NotEqual(t, g1.Fingerprint(), g3.Fingerprint())
}

func TestGraphIncomingAndDomains(t *testing.T) {
	b := NewBuilder()
	b.RegisterDomain(DomainConnector, "connectors")
	b.RegisterDomain(DomainConnector, "ignored")
	b.Require(stripe, card, Normal, DomainConnector, ir.Metadata{})
	b.Require(stripe, usd, Normal, DomainConnector, ir.Metadata{})

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []Domain{{Name: DomainConnector, Description: "connectors"}}, g.Domains())

	id, _ := g.Lookup(stripe)
	in := g.Incoming(id)
	require.Len(t, in, 2)
	assert.Equal(t, Positive, in[0].Relation)
	assert.Nil(t, g.Incoming(NodeID(99)))

	_, ok := g.Node(NodeID(99))
	assert.False(t, ok)
}
