package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/routegraph/internal/ir"
	"github.com/roach88/routegraph/internal/routing"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProgramRecord describes a stored program without its body.
type ProgramRecord struct {
	Hash      string `json:"hash"`
	Name      string `json:"name"`
	IRVersion string `json:"ir_version"`
	Seq       int64  `json:"seq"`
}

// LoadConfig returns the accounts matching key's profile and transaction
// type, and every filter of key's merchant. Implements routing.ConfigSource.
//
// Returns empty slices (not nil) if nothing is configured.
func (s *Store) LoadConfig(ctx context.Context, key routing.CacheKey) (routing.Config, error) {
	accounts, err := s.readAccounts(ctx, key)
	if err != nil {
		return routing.Config{}, err
	}
	filters, err := s.readFilters(ctx, Merchant{Tenant: key.Tenant, Merchant: key.Merchant})
	if err != nil {
		return routing.Config{}, err
	}
	return routing.Config{Accounts: accounts, Filters: filters}, nil
}

func (s *Store) readAccounts(ctx context.Context, key routing.CacheKey) ([]routing.ConnectorAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, connector, transaction_type, disabled, payment_methods
		FROM connector_accounts
		WHERE tenant = ? AND merchant = ? AND profile = ? AND transaction_type = ?
		ORDER BY connector COLLATE BINARY ASC, id COLLATE BINARY ASC
	`, key.Tenant, key.Merchant, key.Profile, string(key.TransactionType))
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []routing.ConnectorAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(rows *sql.Rows) (routing.ConnectorAccount, error) {
	var a routing.ConnectorAccount
	var txType, methodsJSON string
	if err := rows.Scan(&a.ID, &a.Profile, &a.Connector, &txType, &a.Disabled, &methodsJSON); err != nil {
		return routing.ConnectorAccount{}, fmt.Errorf("scan account: %w", err)
	}
	a.TransactionType = routing.TransactionType(txType)
	if err := unmarshalJSON("payment methods", methodsJSON, &a.PaymentMethods); err != nil {
		return routing.ConnectorAccount{}, fmt.Errorf("account %q: %w", a.ID, err)
	}
	return a, nil
}

func (s *Store) readFilters(ctx context.Context, m Merchant) ([]routing.FilterConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT connector, payment_method_type, countries, currencies
		FROM connector_filters
		WHERE tenant = ? AND merchant = ?
		ORDER BY connector COLLATE BINARY ASC, payment_method_type COLLATE BINARY ASC
	`, m.Tenant, m.Merchant)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer rows.Close()

	filters := []routing.FilterConfig{}
	for rows.Next() {
		var f routing.FilterConfig
		var countries, currencies string
		if err := rows.Scan(&f.Connector, &f.PaymentMethodType, &countries, &currencies); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}
		if err := unmarshalJSON("countries", countries, &f.Countries); err != nil {
			return nil, err
		}
		if err := unmarshalJSON("currencies", currencies, &f.Currencies); err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", err)
	}
	return filters, nil
}

// LoadProgram returns the program stored under hash.
// Returns ErrNotFound if no program has that hash.
func (s *Store) LoadProgram(ctx context.Context, hash string) (*ir.Program, error) {
	var programJSON, version string
	err := s.db.QueryRowContext(ctx, `
		SELECT program, ir_version FROM routing_programs WHERE hash = ?
	`, hash).Scan(&programJSON, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}
	if version != ir.IRVersion {
		return nil, fmt.Errorf("load program %s: stored with ir version %s, want %s", hash, version, ir.IRVersion)
	}

	var p ir.Program
	if err := unmarshalJSON("program", programJSON, &p); err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}
	return &p, nil
}

// ListPrograms returns a merchant's stored programs, oldest first.
func (s *Store) ListPrograms(ctx context.Context, m Merchant) ([]ProgramRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, ir_version, seq
		FROM routing_programs
		WHERE tenant = ? AND merchant = ?
		ORDER BY seq ASC, hash COLLATE BINARY ASC
	`, m.Tenant, m.Merchant)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	records := []ProgramRecord{}
	for rows.Next() {
		var r ProgramRecord
		if err := rows.Scan(&r.Hash, &r.Name, &r.IRVersion, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return records, nil
}
