package store

import (
	"context"
	"fmt"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/routing"
)

// Merchant scopes stored configuration.
type Merchant struct {
	Tenant   string
	Merchant string
}

// SaveAccount inserts or replaces a connector account.
func (s *Store) SaveAccount(ctx context.Context, m Merchant, a routing.ConnectorAccount) error {
	if err := validateAccount(a); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	methods := a.PaymentMethods
	if methods == nil {
		methods = []routing.PaymentMethodConfig{}
	}
	methodsJSON, err := marshalJSON("payment methods", methods)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connector_accounts
		(id, tenant, merchant, profile, connector, transaction_type, disabled, payment_methods)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant = excluded.tenant,
			merchant = excluded.merchant,
			profile = excluded.profile,
			connector = excluded.connector,
			transaction_type = excluded.transaction_type,
			disabled = excluded.disabled,
			payment_methods = excluded.payment_methods
	`,
		a.ID,
		m.Tenant,
		m.Merchant,
		a.Profile,
		a.Connector,
		string(a.TransactionType),
		a.Disabled,
		methodsJSON,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// SetAccountDisabled enables or disables an account.
// Returns ErrNotFound if the account does not exist.
func (s *Store) SetAccountDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE connector_accounts SET disabled = ? WHERE id = ?`, disabled, id)
	if err != nil {
		return fmt.Errorf("set account disabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account disabled: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set account disabled: account %q: %w", id, ErrNotFound)
	}
	return nil
}

// SaveFilter inserts or replaces the filter for a connector and payment
// method type.
func (s *Store) SaveFilter(ctx context.Context, m Merchant, f routing.FilterConfig) error {
	if f.Connector == "" || f.PaymentMethodType == "" {
		return fmt.Errorf("save filter: connector and payment_method_type are required")
	}
	countries, err := marshalStrings("countries", f.Countries)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	currencies, err := marshalStrings("currencies", f.Currencies)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connector_filters
		(tenant, merchant, connector, payment_method_type, countries, currencies)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, merchant, connector, payment_method_type) DO UPDATE SET
			countries = excluded.countries,
			currencies = excluded.currencies
	`,
		m.Tenant,
		m.Merchant,
		f.Connector,
		f.PaymentMethodType,
		countries,
		currencies,
	)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}
	return nil
}

// ImportConfig replaces a merchant's accounts and filters with cfg in one
// transaction. Either all of cfg is stored or none of it.
func (s *Store) ImportConfig(ctx context.Context, m Merchant, cfg routing.Config) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import config: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM connector_accounts WHERE tenant = ? AND merchant = ?`, m.Tenant, m.Merchant); err != nil {
		return fmt.Errorf("import config: clear accounts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connector_filters WHERE tenant = ? AND merchant = ?`, m.Tenant, m.Merchant); err != nil {
		return fmt.Errorf("import config: clear filters: %w", err)
	}

	for _, a := range cfg.Accounts {
		if err := validateAccount(a); err != nil {
			return fmt.Errorf("import config: %w", err)
		}
		methods := a.PaymentMethods
		if methods == nil {
			methods = []routing.PaymentMethodConfig{}
		}
		methodsJSON, err := marshalJSON("payment methods", methods)
		if err != nil {
			return fmt.Errorf("import config: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connector_accounts
			(id, tenant, merchant, profile, connector, transaction_type, disabled, payment_methods)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, m.Tenant, m.Merchant, a.Profile, a.Connector, string(a.TransactionType), a.Disabled, methodsJSON); err != nil {
			return fmt.Errorf("import config: account %q: %w", a.ID, err)
		}
	}

	for _, f := range cfg.Filters {
		countries, err := marshalStrings("countries", f.Countries)
		if err != nil {
			return fmt.Errorf("import config: %w", err)
		}
		currencies, err := marshalStrings("currencies", f.Currencies)
		if err != nil {
			return fmt.Errorf("import config: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connector_filters
			(tenant, merchant, connector, payment_method_type, countries, currencies)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.Tenant, m.Merchant, f.Connector, f.PaymentMethodType, countries, currencies); err != nil {
			return fmt.Errorf("import config: filter %s/%s: %w", f.Connector, f.PaymentMethodType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import config: commit: %w", err)
	}
	return nil
}

// SaveProgram stores a lowered program under its content hash and returns
// the hash. Saving the same program again is a no-op.
func (s *Store) SaveProgram(ctx context.Context, m Merchant, p *ir.Program) (string, error) {
	hash, err := ir.ProgramHash(p)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	programJSON, err := marshalJSON("program", p)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routing_programs
		(hash, tenant, merchant, name, ir_version, program, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM routing_programs))
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		m.Tenant,
		m.Merchant,
		p.Name,
		ir.IRVersion,
		programJSON,
	)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	return hash, nil
}

func validateAccount(a routing.ConnectorAccount) error {
	switch {
	case a.ID == "":
		return fmt.Errorf("account id is required")
	case a.Connector == "":
		return fmt.Errorf("account %q: connector is required", a.ID)
	case a.Profile == "":
		return fmt.Errorf("account %q: profile is required", a.ID)
	case !a.TransactionType.Valid():
		return fmt.Errorf("account %q: invalid transaction type %q", a.ID, a.TransactionType)
	}
	return nil
}
