package routing

import (
	"fmt"
	"strings"

	"github.com/roach88/routegraph/internal/ir"
)

// PaymentInput carries the routable attributes of one payment request.
// Empty fields are not known for the request.
type PaymentInput struct {
	PaymentMethod      string `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	PaymentMethodType  string `json:"payment_method_type,omitempty" yaml:"payment_method_type,omitempty"`
	CardNetwork        string `json:"card_network,omitempty" yaml:"card_network,omitempty"`
	CaptureMethod      string `json:"capture_method,omitempty" yaml:"capture_method,omitempty"`
	AuthenticationType string `json:"authentication_type,omitempty" yaml:"authentication_type,omitempty"`
	Currency           string `json:"currency,omitempty" yaml:"currency,omitempty"`
	BillingCountry     string `json:"billing_country,omitempty" yaml:"billing_country,omitempty"`
	SetupFutureUsage   string `json:"setup_future_usage,omitempty" yaml:"setup_future_usage,omitempty"`
	MandateType        string `json:"mandate_type,omitempty" yaml:"mandate_type,omitempty"`
	PayoutType         string `json:"payout_type,omitempty" yaml:"payout_type,omitempty"`
	CardBin            string `json:"card_bin,omitempty" yaml:"card_bin,omitempty"`
	Amount             *int64 `json:"amount,omitempty" yaml:"amount,omitempty"` // minor units
}

// RequestError reports a request attribute the schema cannot resolve.
type RequestError struct {
	Field string
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.Field, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// RequestContext converts a payment request into a context of exact
// assertions. A payment method type implies its parent method when the
// request leaves the method out. A nil schema means ir.DefaultSchema().
func RequestContext(in PaymentInput, schema *ir.Schema) (*ir.Context, error) {
	if schema == nil {
		schema = ir.DefaultSchema()
	}
	meta := ir.Metadata{Description: "request"}
	ctx := ir.NewContext()

	fields := []struct {
		key ir.Key
		raw string
	}{
		{ir.KeyPaymentMethod, in.PaymentMethod},
		{ir.KeyPaymentMethodType, in.PaymentMethodType},
		{ir.KeyCardNetwork, in.CardNetwork},
		{ir.KeyCaptureMethod, in.CaptureMethod},
		{ir.KeyAuthenticationType, in.AuthenticationType},
		{ir.KeyCurrency, in.Currency},
		{ir.KeyBillingCountry, in.BillingCountry},
		{ir.KeySetupFutureUsage, in.SetupFutureUsage},
		{ir.KeyMandateType, in.MandateType},
		{ir.KeyPayoutType, in.PayoutType},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		v, err := schema.ResolveEnum(f.key, raw)
		if err != nil {
			return nil, &RequestError{Field: string(f.key), Err: err}
		}
		ctx.Entries = append(ctx.Entries, ir.Assertion(v, meta))
	}

	if in.PaymentMethod == "" && in.PaymentMethodType != "" {
		t, _ := schema.ResolveEnum(ir.KeyPaymentMethodType, strings.TrimSpace(in.PaymentMethodType))
		if parent, ok := schema.Implied(t); ok {
			ctx.Entries = append(ctx.Entries, ir.Assertion(parent, ir.Metadata{
				Description: "implied by payment_method_type",
				Derived:     true,
			}))
		}
	}

	if bin := strings.TrimSpace(in.CardBin); bin != "" {
		ctx.Entries = append(ctx.Entries, ir.Assertion(ir.StrValue(ir.KeyCardBin, bin), meta))
	}
	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, &RequestError{Field: string(ir.KeyAmount), Err: fmt.Errorf("negative amount %d", *in.Amount)}
		}
		ctx.Entries = append(ctx.Entries, ir.Assertion(ir.NumberValue(ir.KeyAmount, ir.Equal, *in.Amount), meta))
	}
	return ctx, nil
}
