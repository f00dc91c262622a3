package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
)

func TestBuildGraphIsDeterministic(t *testing.T) {
	cfg := merchantConfig()
	g1, err := BuildGraph(cfg, nil)
	require.NoError(t, err)

	reversed := merchantConfig()
	for i, j := 0, len(reversed.Accounts)-1; i < j; i, j = i+1, j-1 {
		reversed.Accounts[i], reversed.Accounts[j] = reversed.Accounts[j], reversed.Accounts[i]
	}
	g2, err := BuildGraph(reversed, nil)
	require.NoError(t, err)

	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())
	assert.Equal(t, g1.Len(), g2.Len())
}

func TestBuildGraphConnectors(t *testing.T) {
	g, err := BuildGraph(merchantConfig(), nil)
	require.NoError(t, err)

	stripe, ok := g.Lookup(ir.EnumValue(ir.KeyConnector, "stripe"))
	require.True(t, ok)
	assert.Len(t, g.Incoming(stripe), 1)

	_, ok = g.Lookup(ir.EnumValue(ir.KeyConnector, "paypal"))
	assert.False(t, ok, "disabled accounts add no node")

	_, ok = g.Lookup(ir.EnumValue(ir.KeyConnector, "checkout"))
	assert.False(t, ok, "unrestricted accounts add no node")

	var names []string
	for _, d := range g.Domains() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{kgraph.DomainKnowledge, kgraph.DomainConnector, kgraph.DomainFilters}, names)
}

func TestBuildGraphConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		source string
		field  string
	}{
		{
			name: "unknown connector",
			cfg: Config{Accounts: []ConnectorAccount{
				{ID: "acc_x", Connector: "acme", PaymentMethods: []PaymentMethodConfig{{PaymentMethod: "card"}}},
			}},
			source: "account acc_x",
			field:  "connector",
		},
		{
			name: "unknown currency",
			cfg: Config{Accounts: []ConnectorAccount{
				{ID: "acc_x", Connector: "stripe", PaymentMethods: []PaymentMethodConfig{
					{PaymentMethod: "card"},
					{PaymentMethod: "card", Currencies: []string{"XYZ"}},
				}},
			}},
			source: "account acc_x",
			field:  "payment_methods[1].currencies",
		},
		{
			name: "unknown filter type",
			cfg: Config{Filters: []FilterConfig{
				{Connector: "adyen", PaymentMethodType: "cheque", Countries: []string{"DE"}},
			}},
			source: "filter adyen/cheque",
			field:  "payment_method_type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(tt.cfg, nil)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.source, ce.Source)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestBuildGraphAcceptsCaseInsensitiveNames(t *testing.T) {
	cfg := Config{Accounts: []ConnectorAccount{
		{ID: "a", Connector: "Stripe", PaymentMethods: []PaymentMethodConfig{{PaymentMethod: "CARD", Currencies: []string{"usd"}}}},
	}}
	g, err := BuildGraph(cfg, nil)
	require.NoError(t, err)

	_, ok := g.Lookup(ir.EnumValue(ir.KeyConnector, "stripe"))
	assert.True(t, ok)
}
