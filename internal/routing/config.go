package routing

import (
	"context"
)

// PaymentMethodConfig is one payment method a connector account accepts.
// Empty lists mean "any"; a nil bound means unbounded.
type PaymentMethodConfig struct {
	PaymentMethod  string   `json:"payment_method" yaml:"payment_method"`
	Types          []string `json:"types,omitempty" yaml:"types,omitempty"`
	Currencies     []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	Countries      []string `json:"countries,omitempty" yaml:"countries,omitempty"`
	MinAmount      *int64   `json:"min_amount,omitempty" yaml:"min_amount,omitempty"`
	MaxAmount      *int64   `json:"max_amount,omitempty" yaml:"max_amount,omitempty"`
	CaptureMethods []string `json:"capture_methods,omitempty" yaml:"capture_methods,omitempty"`
}

// ConnectorAccount is a merchant's account with one connector.
type ConnectorAccount struct {
	ID              string                `json:"id" yaml:"id"`
	Connector       string                `json:"connector" yaml:"connector"`
	Profile         string                `json:"profile" yaml:"profile"`
	TransactionType TransactionType       `json:"transaction_type" yaml:"transaction_type"`
	Disabled        bool                  `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	PaymentMethods  []PaymentMethodConfig `json:"payment_methods" yaml:"payment_methods"`
}

// FilterConfig narrows where a connector may process one payment method
// type. Empty lists leave that dimension unrestricted.
type FilterConfig struct {
	Connector         string   `json:"connector" yaml:"connector"`
	PaymentMethodType string   `json:"payment_method_type" yaml:"payment_method_type"`
	Countries         []string `json:"countries,omitempty" yaml:"countries,omitempty"`
	Currencies        []string `json:"currencies,omitempty" yaml:"currencies,omitempty"`
}

// Config is the live configuration behind one CacheKey.
type Config struct {
	Accounts []ConnectorAccount `json:"accounts" yaml:"accounts"`
	Filters  []FilterConfig     `json:"filters" yaml:"filters"`
}

// ConfigSource loads the connector configuration for a cache key.
type ConfigSource interface {
	LoadConfig(ctx context.Context, key CacheKey) (Config, error)
}

// ConfigSourceFunc adapts a function to ConfigSource.
type ConfigSourceFunc func(ctx context.Context, key CacheKey) (Config, error)

// LoadConfig calls f.
func (f ConfigSourceFunc) LoadConfig(ctx context.Context, key CacheKey) (Config, error) {
	return f(ctx, key)
}

// StaticSource serves the same configuration for every key, filtered to
// the key's profile and transaction type.
type StaticSource Config

// LoadConfig returns the accounts that match key. All filters are returned.
func (s StaticSource) LoadConfig(_ context.Context, key CacheKey) (Config, error) {
	out := Config{Filters: s.Filters}
	for _, a := range s.Accounts {
		if a.Profile != "" && a.Profile != key.Profile {
			continue
		}
		if a.TransactionType != "" && a.TransactionType != key.TransactionType {
			continue
		}
		out.Accounts = append(out.Accounts, a)
	}
	return out, nil
}
