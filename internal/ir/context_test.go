package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFingerprintIgnoresOrderAndMetadata(t *testing.T) {
	card := EnumValue(KeyPaymentMethod, "card")
	usd := EnumValue(KeyCurrency, "USD")

	c1 := NewContext(
		Assertion(card, Metadata{Rule: "a", Line: 1}),
		Assertion(usd, Metadata{Rule: "a", Line: 2}),
	)
	c2 := NewContext(
		Assertion(usd, Metadata{Rule: "b", Line: 9}),
		Assertion(card, Metadata{}),
	)

	assert.Equal(t, c1.Fingerprint(), c2.Fingerprint())
}

func TestContextFingerprintDistinguishesAssertionFromNegation(t *testing.T) {
	card := EnumValue(KeyPaymentMethod, "card")

	asserted := NewContext(Assertion(card, Metadata{}))
	negated := NewContext(Negation(Metadata{}, card))

	assert.NotEqual(t, asserted.Fingerprint(), negated.Fingerprint())
}

func TestContextFingerprintNegationSetOrder(t *testing.T) {
	card := EnumValue(KeyPaymentMethod, "card")
	wallet := EnumValue(KeyPaymentMethod, "wallet")

	c1 := NewContext(Negation(Metadata{}, card, wallet))
	c2 := NewContext(Negation(Metadata{}, wallet, card))

	assert.Equal(t, c1.Fingerprint(), c2.Fingerprint())
}

func TestContextAccessors(t *testing.T) {
	card := EnumValue(KeyPaymentMethod, "card")
	eur := EnumValue(KeyCurrency, "EUR")
	ctx := NewContext(
		Assertion(card, Metadata{}),
		Negation(Metadata{}, eur),
		Assertion(NumberValue(KeyAmount, GreaterThan, 500), Metadata{}),
	)

	require.Len(t, ctx.Assertions(), 2)
	require.Len(t, ctx.Negations(), 1)
	assert.Equal(t, []Key{KeyPaymentMethod, KeyCurrency, KeyAmount}, ctx.Keys())
	assert.Equal(t, "payment_method = card & currency != (EUR) & amount > 500", ctx.String())
}

func TestContextCloneIsDeep(t *testing.T) {
	eur := EnumValue(KeyCurrency, "EUR")
	ctx := NewContext(Negation(Metadata{}, eur))
	ctx.Output = []DimensionValue{EnumValue(KeyConnector, "stripe")}

	clone := ctx.Clone()
	clone.Entries[0].Values[0] = EnumValue(KeyCurrency, "GBP")
	clone.Output[0] = EnumValue(KeyConnector, "adyen")

	assert.Equal(t, eur, ctx.Entries[0].Values[0])
	assert.Equal(t, "stripe", ctx.Output[0].Value)
}

func TestEmptyContextString(t *testing.T) {
	assert.Equal(t, "<always>", NewContext().String())
}
