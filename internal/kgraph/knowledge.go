package kgraph

import (
	"sync"

	"github.com/roach88/routegraph/internal/ir"
)

var (
	defaultGraphOnce sync.Once
	defaultGraph     *Graph
	defaultGraphErr  error
)

// DefaultGraph returns the built-in domain-knowledge graph over
// ir.DefaultSchema(). It is built once and shared.
func DefaultGraph() (*Graph, error) {
	defaultGraphOnce.Do(func() {
		b := NewBuilder()
		AddDefaultKnowledge(b, ir.DefaultSchema())
		defaultGraph, defaultGraphErr = b.Build()
	})
	return defaultGraph, defaultGraphErr
}

// AddDefaultKnowledge adds the built-in payment domain rules to b, tagged
// with DomainKnowledge. Rules that mention keys or variants schema lacks
// are skipped.
func AddDefaultKnowledge(b *Builder, schema *ir.Schema) {
	b.RegisterDomain(DomainKnowledge, "built-in payment domain knowledge")

	has := func(k ir.Key, variant string) bool {
		_, err := schema.ResolveEnum(k, variant)
		return err == nil
	}
	pm := func(v string) ir.DimensionValue { return ir.EnumValue(ir.KeyPaymentMethod, v) }
	card := pm("card")

	// Card networks only apply to cards.
	if networks, ok := schema.Domain(ir.KeyCardNetwork); ok && has(ir.KeyPaymentMethod, "card") {
		meta := ir.Metadata{Description: "card networks apply to card payments"}
		for _, n := range networks {
			b.Require(n, card, Normal, DomainKnowledge, meta)
		}
	}

	// Subtypes require their parent method.
	if types, ok := schema.Domain(ir.KeyPaymentMethodType); ok {
		for _, t := range types {
			if parent, ok := schema.Implied(t); ok {
				b.Require(t, parent, Normal, DomainKnowledge, ir.Metadata{Description: "subtype of " + parent.Value})
			}
		}
	}

	// Manual capture is only offered for authorize-then-capture methods.
	var holders []ir.DimensionValue
	for _, m := range []string{"card", "wallet", "pay_later"} {
		if has(ir.KeyPaymentMethod, m) {
			holders = append(holders, pm(m))
		}
	}
	var manual []ir.DimensionValue
	for _, cm := range []string{"manual", "manual_multiple"} {
		if has(ir.KeyCaptureMethod, cm) {
			manual = append(manual, ir.EnumValue(ir.KeyCaptureMethod, cm))
		}
	}
	if len(holders) > 0 && len(manual) > 0 {
		meta := ir.Metadata{Description: "manual capture methods"}
		group := b.AnyValue(meta, DomainKnowledge, holders...)
		for _, cm := range manual {
			b.Edge(group, b.Value(cm), Positive, Normal, DomainKnowledge, meta)
		}
	}
	if has(ir.KeyCaptureMethod, "scheduled") && has(ir.KeyPaymentMethod, "card") {
		b.Require(ir.EnumValue(ir.KeyCaptureMethod, "scheduled"), card, Weak, DomainKnowledge,
			ir.Metadata{Description: "scheduled capture is usually card only"})
	}

	// Bank schemes settle in one currency.
	for _, sc := range []struct{ typ, currency string }{
		{"ach", "USD"},
		{"sepa", "EUR"},
		{"bacs", "GBP"},
		{"ideal", "EUR"},
		{"upi_collect", "INR"},
	} {
		if has(ir.KeyPaymentMethodType, sc.typ) && has(ir.KeyCurrency, sc.currency) {
			b.Require(ir.EnumValue(ir.KeyPaymentMethodType, sc.typ), ir.EnumValue(ir.KeyCurrency, sc.currency),
				Normal, DomainKnowledge, ir.Metadata{Description: sc.typ + " settles in " + sc.currency})
		}
	}

	if has(ir.KeyAuthenticationType, "three_ds") && has(ir.KeyPaymentMethod, "card") {
		b.Require(ir.EnumValue(ir.KeyAuthenticationType, "three_ds"), card, Normal, DomainKnowledge,
			ir.Metadata{Description: "3DS authenticates card payments"})
	}

	// Mandates exist to charge the customer later, off session.
	if has(ir.KeySetupFutureUsage, "off_session") {
		offSession := ir.EnumValue(ir.KeySetupFutureUsage, "off_session")
		if mandates, ok := schema.Domain(ir.KeyMandateType); ok {
			for _, m := range mandates {
				b.Require(m, offSession, Strong, DomainKnowledge, ir.Metadata{Description: "mandates require off-session usage"})
			}
		}
		if has(ir.KeyPaymentMethod, "bank_redirect") {
			b.Exclude(offSession, pm("bank_redirect"), DomainKnowledge,
				ir.Metadata{Description: "redirect methods cannot be reused off session"})
		}
	}
}
