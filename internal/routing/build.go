package routing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/kgraph"
)

// ConfigError reports connector configuration that cannot be expressed in
// the schema, e.g. an unknown currency on an account.
type ConfigError struct {
	Source string // "account acc_1" or "filter stripe/ach"
	Field  string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type filterKey struct {
	connector ir.DimensionValue
	pmType    ir.DimensionValue
}

type graphBuilder struct {
	b       *kgraph.Builder
	schema  *ir.Schema
	filters map[filterKey]FilterConfig
}

// BuildGraph builds the eligibility graph for one merchant configuration.
//
// The graph starts from the built-in domain knowledge. Each enabled
// connector then becomes "connector = X" requiring Any over its accepted
// payment methods, where one payment method is an All group of the method,
// its types, currencies, countries, capture methods and amount bounds.
// A filter for (connector, payment method type) replaces the bare type
// with an All group of the type and the filter's countries and currencies.
//
// Accounts and filters are sorted before construction, so the same
// configuration in any order builds the same graph. A connector with an
// enabled account that lists no payment methods is left unconstrained.
// A nil schema means ir.DefaultSchema().
func BuildGraph(cfg Config, schema *ir.Schema) (*kgraph.Graph, error) {
	if schema == nil {
		schema = ir.DefaultSchema()
	}
	gb := &graphBuilder{
		b:       kgraph.NewBuilder(),
		schema:  schema,
		filters: make(map[filterKey]FilterConfig),
	}

	kgraph.AddDefaultKnowledge(gb.b, schema)
	gb.b.RegisterDomain(kgraph.DomainConnector, "merchant connector accounts")
	gb.b.RegisterDomain(kgraph.DomainFilters, "per-connector country and currency filters")

	if err := gb.indexFilters(cfg.Filters); err != nil {
		return nil, err
	}

	var order []ir.DimensionValue
	methods := make(map[ir.DimensionValue][]kgraph.NodeID)
	open := make(map[ir.DimensionValue]bool)

	for _, a := range sortedAccounts(cfg.Accounts) {
		if a.Disabled {
			continue
		}
		conn, err := schema.ResolveEnum(ir.KeyConnector, a.Connector)
		if err != nil {
			return nil, &ConfigError{Source: "account " + a.ID, Field: "connector", Err: err}
		}
		if _, seen := methods[conn]; !seen && !open[conn] {
			order = append(order, conn)
		}
		if len(a.PaymentMethods) == 0 {
			open[conn] = true
			continue
		}
		for i, pm := range a.PaymentMethods {
			id, err := gb.method(conn, a.ID, pm)
			if err != nil {
				var ce *ConfigError
				if errors.As(err, &ce) && ce.Source == "account "+a.ID {
					ce.Field = fmt.Sprintf("payment_methods[%d].%s", i, ce.Field)
				}
				return nil, err
			}
			methods[conn] = append(methods[conn], id)
		}
	}

	for _, conn := range order {
		if open[conn] {
			continue
		}
		meta := ir.Metadata{Description: conn.Value + " accepted payment methods"}
		group := gb.b.Group(kgraph.Any, meta, kgraph.DomainConnector, methods[conn]...)
		gb.b.Edge(group, gb.b.Value(conn), kgraph.Positive, kgraph.Normal, kgraph.DomainConnector, meta)
	}

	return gb.b.Build()
}

func (gb *graphBuilder) indexFilters(filters []FilterConfig) error {
	sorted := make([]FilterConfig, len(filters))
	copy(sorted, filters)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Connector != sorted[j].Connector {
			return sorted[i].Connector < sorted[j].Connector
		}
		return sorted[i].PaymentMethodType < sorted[j].PaymentMethodType
	})

	for _, f := range sorted {
		source := "filter " + f.Connector + "/" + f.PaymentMethodType
		conn, err := gb.schema.ResolveEnum(ir.KeyConnector, f.Connector)
		if err != nil {
			return &ConfigError{Source: source, Field: "connector", Err: err}
		}
		pmt, err := gb.schema.ResolveEnum(ir.KeyPaymentMethodType, f.PaymentMethodType)
		if err != nil {
			return &ConfigError{Source: source, Field: "payment_method_type", Err: err}
		}
		// first filter wins for a duplicated pair
		k := filterKey{connector: conn, pmType: pmt}
		if _, dup := gb.filters[k]; !dup {
			gb.filters[k] = f
		}
	}
	return nil
}

func sortedAccounts(accounts []ConnectorAccount) []ConnectorAccount {
	out := make([]ConnectorAccount, len(accounts))
	copy(out, accounts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Connector != out[j].Connector {
			return out[i].Connector < out[j].Connector
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// method builds the All group for one accepted payment method.
func (gb *graphBuilder) method(conn ir.DimensionValue, account string, pm PaymentMethodConfig) (kgraph.NodeID, error) {
	source := "account " + account
	meta := ir.Metadata{Rule: account, Description: conn.Value + " accepts " + pm.PaymentMethod}

	method, err := gb.schema.ResolveEnum(ir.KeyPaymentMethod, pm.PaymentMethod)
	if err != nil {
		return 0, &ConfigError{Source: source, Field: "payment_method", Err: err}
	}
	members := []kgraph.NodeID{gb.b.Value(method)}

	if len(pm.Types) > 0 {
		types := make([]kgraph.NodeID, 0, len(pm.Types))
		for _, raw := range pm.Types {
			t, err := gb.schema.ResolveEnum(ir.KeyPaymentMethodType, raw)
			if err != nil {
				return 0, &ConfigError{Source: source, Field: "types", Err: err}
			}
			id, err := gb.typeNode(conn, t)
			if err != nil {
				return 0, err
			}
			types = append(types, id)
		}
		members = append(members, gb.b.Group(kgraph.Any, meta, kgraph.DomainConnector, types...))
	}

	for _, set := range []struct {
		field string
		key   ir.Key
		raw   []string
	}{
		{"currencies", ir.KeyCurrency, pm.Currencies},
		{"countries", ir.KeyBillingCountry, pm.Countries},
		{"capture_methods", ir.KeyCaptureMethod, pm.CaptureMethods},
	} {
		if len(set.raw) == 0 {
			continue
		}
		id, err := gb.anyOf(set.key, set.raw, meta, kgraph.DomainConnector)
		if err != nil {
			return 0, &ConfigError{Source: source, Field: set.field, Err: err}
		}
		members = append(members, id)
	}

	if pm.MinAmount != nil {
		members = append(members, gb.b.Value(ir.NumberValue(ir.KeyAmount, ir.GreaterThanEqual, *pm.MinAmount)))
	}
	if pm.MaxAmount != nil {
		members = append(members, gb.b.Value(ir.NumberValue(ir.KeyAmount, ir.LessThanEqual, *pm.MaxAmount)))
	}

	return gb.b.Group(kgraph.All, meta, kgraph.DomainConnector, members...), nil
}

// typeNode returns the node a connector's payment method type must satisfy:
// the type itself, or the type and its filter when one is configured.
func (gb *graphBuilder) typeNode(conn, t ir.DimensionValue) (kgraph.NodeID, error) {
	f, ok := gb.filters[filterKey{connector: conn, pmType: t}]
	if !ok || (len(f.Countries) == 0 && len(f.Currencies) == 0) {
		return gb.b.Value(t), nil
	}

	source := "filter " + f.Connector + "/" + f.PaymentMethodType
	meta := ir.Metadata{Description: conn.Value + " filter for " + t.Value}
	members := []kgraph.NodeID{gb.b.Value(t)}
	if len(f.Countries) > 0 {
		id, err := gb.anyOf(ir.KeyBillingCountry, f.Countries, meta, kgraph.DomainFilters)
		if err != nil {
			return 0, &ConfigError{Source: source, Field: "countries", Err: err}
		}
		members = append(members, id)
	}
	if len(f.Currencies) > 0 {
		id, err := gb.anyOf(ir.KeyCurrency, f.Currencies, meta, kgraph.DomainFilters)
		if err != nil {
			return 0, &ConfigError{Source: source, Field: "currencies", Err: err}
		}
		members = append(members, id)
	}
	return gb.b.Group(kgraph.All, meta, kgraph.DomainFilters, members...), nil
}

func (gb *graphBuilder) anyOf(k ir.Key, raw []string, meta ir.Metadata, domain string) (kgraph.NodeID, error) {
	vals := make([]ir.DimensionValue, 0, len(raw))
	for _, r := range raw {
		v, err := gb.schema.ResolveEnum(k, r)
		if err != nil {
			return 0, err
		}
		vals = append(vals, v)
	}
	return gb.b.AnyValue(meta, domain, vals...), nil
}
