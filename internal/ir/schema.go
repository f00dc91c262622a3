package ir

import (
	"fmt"
	"strings"
	"sync"
)

// KeySpec describes one dimension key and its domain.
type KeySpec struct {
	Key         Key
	Kind        KeyKind
	Values      []string // ordered domain for EnumKind; empty otherwise
	Description string

	// Implies maps a variant to a value it logically requires on another key,
	// e.g. payment_method_type=apple_pay implies payment_method=wallet.
	// Used by lowering to add derived assertions.
	Implies map[string]DimensionValue
}

// Schema is the set of keys a routing program may reference.
// A Schema is immutable once constructed.
type Schema struct {
	specs map[Key]KeySpec
	order []Key
}

// SchemaError reports an invalid schema definition or an unresolvable value.
type SchemaError struct {
	Key     Key
	Value   string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Key, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// NewSchema builds a schema from key specs in declaration order.
func NewSchema(specs ...KeySpec) (*Schema, error) {
	s := &Schema{specs: make(map[Key]KeySpec, len(specs))}
	for _, spec := range specs {
		if spec.Key == "" {
			return nil, &SchemaError{Message: "key name is required"}
		}
		if _, dup := s.specs[spec.Key]; dup {
			return nil, &SchemaError{Key: spec.Key, Message: "duplicate key"}
		}
		if spec.Kind == EnumKind && len(spec.Values) == 0 {
			return nil, &SchemaError{Key: spec.Key, Message: "enum key requires at least one variant"}
		}
		seen := make(map[string]bool, len(spec.Values))
		for _, v := range spec.Values {
			if seen[v] {
				return nil, &SchemaError{Key: spec.Key, Value: v, Message: "duplicate variant"}
			}
			seen[v] = true
		}
		s.specs[spec.Key] = spec
		s.order = append(s.order, spec.Key)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Use only for package-level schemas known to be valid.
func MustSchema(specs ...KeySpec) *Schema {
	s, err := NewSchema(specs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Keys returns the schema keys in declaration order.
func (s *Schema) Keys() []Key {
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}

// Lookup returns the spec for a key.
func (s *Schema) Lookup(k Key) (KeySpec, bool) {
	spec, ok := s.specs[k]
	return spec, ok
}

// Kind returns the kind of a key, or 0 if the key is unknown.
func (s *Schema) Kind(k Key) KeyKind {
	return s.specs[k].Kind
}

// Domain returns every value of an enumerable key in declaration order.
// Returns false for unknown or non-enumerable keys.
func (s *Schema) Domain(k Key) ([]DimensionValue, bool) {
	spec, ok := s.specs[k]
	if !ok || !spec.Kind.Enumerable() {
		return nil, false
	}
	out := make([]DimensionValue, len(spec.Values))
	for i, v := range spec.Values {
		out[i] = EnumValue(k, v)
	}
	return out, true
}

// ResolveEnum resolves a raw variant name to its canonical DimensionValue.
// Matching is case-insensitive; the schema spelling wins.
func (s *Schema) ResolveEnum(k Key, raw string) (DimensionValue, error) {
	spec, ok := s.specs[k]
	if !ok {
		return DimensionValue{}, &SchemaError{Key: k, Message: "unknown key"}
	}
	if spec.Kind != EnumKind {
		return DimensionValue{}, &SchemaError{Key: k, Value: raw, Message: fmt.Sprintf("key is %s, not enum", spec.Kind)}
	}
	for _, v := range spec.Values {
		if strings.EqualFold(v, raw) {
			return EnumValue(k, v), nil
		}
	}
	return DimensionValue{}, &SchemaError{Key: k, Value: raw, Message: "unknown variant"}
}

// Implied returns the value a variant logically requires, if any.
func (s *Schema) Implied(v DimensionValue) (DimensionValue, bool) {
	spec, ok := s.specs[v.Key]
	if !ok || spec.Implies == nil {
		return DimensionValue{}, false
	}
	implied, ok := spec.Implies[v.Value]
	return implied, ok
}

var (
	defaultSchemaOnce sync.Once
	defaultSchema     *Schema
)

// DefaultSchema returns the built-in payment dimension schema.
func DefaultSchema() *Schema {
	defaultSchemaOnce.Do(func() {
		defaultSchema = MustSchema(defaultKeySpecs()...)
	})
	return defaultSchema
}

func defaultKeySpecs() []KeySpec {
	pm := func(v string) DimensionValue { return EnumValue(KeyPaymentMethod, v) }
	return []KeySpec{
		{
			Key:         KeyPaymentMethod,
			Kind:        EnumKind,
			Values:      []string{"card", "wallet", "pay_later", "bank_transfer", "bank_redirect", "crypto", "upi"},
			Description: "payment method family",
		},
		{
			Key:  KeyPaymentMethodType,
			Kind: EnumKind,
			Values: []string{
				"credit", "debit",
				"apple_pay", "google_pay", "paypal",
				"klarna", "affirm", "afterpay_clearpay",
				"ach", "sepa", "bacs",
				"ideal", "sofort",
				"crypto_currency", "upi_collect",
			},
			Description: "payment method subtype",
			Implies: map[string]DimensionValue{
				"credit":            pm("card"),
				"debit":             pm("card"),
				"apple_pay":         pm("wallet"),
				"google_pay":        pm("wallet"),
				"paypal":            pm("wallet"),
				"klarna":            pm("pay_later"),
				"affirm":            pm("pay_later"),
				"afterpay_clearpay": pm("pay_later"),
				"ach":               pm("bank_transfer"),
				"sepa":              pm("bank_transfer"),
				"bacs":              pm("bank_transfer"),
				"ideal":             pm("bank_redirect"),
				"sofort":            pm("bank_redirect"),
				"crypto_currency":   pm("crypto"),
				"upi_collect":       pm("upi"),
			},
		},
		{
			Key:         KeyCardNetwork,
			Kind:        EnumKind,
			Values:      []string{"visa", "mastercard", "amex", "discover", "jcb", "diners_club", "rupay"},
			Description: "card scheme",
		},
		{
			Key:         KeyCaptureMethod,
			Kind:        EnumKind,
			Values:      []string{"automatic", "manual", "manual_multiple", "scheduled"},
			Description: "when funds are captured",
		},
		{
			Key:         KeyAuthenticationType,
			Kind:        EnumKind,
			Values:      []string{"three_ds", "no_three_ds"},
			Description: "customer authentication",
		},
		{
			Key:         KeyCurrency,
			Kind:        EnumKind,
			Values:      []string{"USD", "EUR", "GBP", "INR", "JPY", "AUD", "CAD", "SGD", "CHF", "BRL"},
			Description: "ISO 4217 currency",
		},
		{
			Key:         KeyBillingCountry,
			Kind:        EnumKind,
			Values:      []string{"US", "GB", "DE", "FR", "NL", "IN", "JP", "AU", "CA", "SG", "CH", "BR"},
			Description: "ISO 3166 billing country",
		},
		{
			Key:         KeySetupFutureUsage,
			Kind:        EnumKind,
			Values:      []string{"on_session", "off_session"},
			Description: "intent to reuse the payment method",
		},
		{
			Key:         KeyMandateType,
			Kind:        EnumKind,
			Values:      []string{"single_use", "multi_use"},
			Description: "mandate kind",
		},
		{
			Key:         KeyPayoutType,
			Kind:        EnumKind,
			Values:      []string{"card", "bank", "wallet"},
			Description: "payout destination",
		},
		{
			Key:  KeyConnector,
			Kind: EnumKind,
			Values: []string{
				"stripe", "adyen", "checkout", "braintree", "paypal",
				"klarna", "worldpay", "razorpay", "cybersource", "bluesnap",
			},
			Description: "downstream payment processor",
		},
		{
			Key:         KeyAmount,
			Kind:        NumberKind,
			Description: "amount in minor units",
		},
		{
			Key:         KeyCardBin,
			Kind:        StrKind,
			Description: "issuer identification number",
		},
	}
}
