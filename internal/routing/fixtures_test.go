package routing

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/ir"
)

func amount(n int64) *int64 {
	return &n
}

// merchantConfig is a small merchant with four connectors:
// stripe takes cards over 1.00 in USD/EUR and two wallets, adyen takes
// bank transfers with SEPA limited to DE/NL, checkout has no payment
// method restrictions and paypal is disabled.
func merchantConfig() Config {
	return Config{
		Accounts: []ConnectorAccount{
			{
				ID:              "acc_stripe",
				Connector:       "stripe",
				Profile:         "pro_1",
				TransactionType: Payment,
				PaymentMethods: []PaymentMethodConfig{
					{PaymentMethod: "card", Currencies: []string{"USD", "EUR"}, MinAmount: amount(100)},
					{PaymentMethod: "wallet", Types: []string{"apple_pay", "google_pay"}},
				},
			},
			{
				ID:              "acc_adyen",
				Connector:       "adyen",
				Profile:         "pro_1",
				TransactionType: Payment,
				PaymentMethods: []PaymentMethodConfig{
					{PaymentMethod: "bank_transfer", Types: []string{"ach", "sepa"}},
				},
			},
			{
				ID:              "acc_checkout",
				Connector:       "checkout",
				Profile:         "pro_1",
				TransactionType: Payment,
			},
			{
				ID:              "acc_paypal",
				Connector:       "paypal",
				Profile:         "pro_1",
				TransactionType: Payment,
				Disabled:        true,
				PaymentMethods:  []PaymentMethodConfig{{PaymentMethod: "wallet"}},
			},
			{
				ID:              "acc_payout",
				Connector:       "adyen",
				Profile:         "pro_1",
				TransactionType: Payout,
				PaymentMethods:  []PaymentMethodConfig{{PaymentMethod: "card"}},
			},
		},
		Filters: []FilterConfig{
			{Connector: "adyen", PaymentMethodType: "sepa", Countries: []string{"DE", "NL"}},
		},
	}
}

var testKey = CacheKey{Tenant: "public", Merchant: "m_1", Profile: "pro_1", TransactionType: Payment}

func choices(names ...string) []ConnectorChoice {
	out := make([]ConnectorChoice, len(names))
	for i, n := range names {
		out[i] = ConnectorChoice{Connector: n, AccountID: "acc_" + n}
	}
	return out
}

func names(cs []ConnectorChoice) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Connector
	}
	return out
}

// countingSource wraps a StaticSource and counts loads.
type countingSource struct {
	cfg   Config
	loads atomic.Int32
	err   error
}

func (s *countingSource) LoadConfig(ctx context.Context, key CacheKey) (Config, error) {
	s.loads.Add(1)
	if s.err != nil {
		return Config{}, s.err
	}
	return StaticSource(s.cfg).LoadConfig(ctx, key)
}

func mustContext(in PaymentInput) *ir.Context {
	ctx, err := RequestContext(in, nil)
	if err != nil {
		panic(err)
	}
	return ctx
}

func (s StaticSource) mustLoad(t *testing.T) Config {
	t.Helper()
	cfg, err := s.LoadConfig(context.Background(), testKey)
	require.NoError(t, err)
	return cfg
}
