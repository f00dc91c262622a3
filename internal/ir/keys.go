package ir

// Key identifies a routable dimension of a payment request.
// Keys are plain strings so they compare and hash cheaply.
type Key string

// Built-in dimension keys.
const (
	KeyPaymentMethod      Key = "payment_method"
	KeyPaymentMethodType  Key = "payment_method_type"
	KeyCardNetwork        Key = "card_network"
	KeyCaptureMethod      Key = "capture_method"
	KeyAuthenticationType Key = "authentication_type"
	KeyCurrency           Key = "currency"
	KeyBillingCountry     Key = "billing_country"
	KeySetupFutureUsage   Key = "setup_future_usage"
	KeyMandateType        Key = "mandate_type"
	KeyPayoutType         Key = "payout_type"
	KeyConnector          Key = "connector"
	KeyAmount             Key = "amount"
	KeyCardBin            Key = "card_bin"
)

// KeyKind determines the domain of a key.
type KeyKind int

const (
	// EnumKind keys range over a finite, enumerable set of variants.
	EnumKind KeyKind = iota + 1

	// NumberKind keys range over ordered int64 values (amounts in minor units).
	NumberKind

	// StrKind keys hold free-form strings. Not enumerable.
	StrKind
)

// String returns the kind name used in diagnostics.
func (k KeyKind) String() string {
	switch k {
	case EnumKind:
		return "enum"
	case NumberKind:
		return "number"
	case StrKind:
		return "string"
	default:
		return "unknown"
	}
}

// Enumerable reports whether the full domain of the kind can be listed.
// Only enumerable kinds admit exhaustive-negation analysis.
func (k KeyKind) Enumerable() bool {
	return k == EnumKind
}
