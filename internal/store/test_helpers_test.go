package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/routegraph/internal/routing"
)

var testMerchant = Merchant{Tenant: "public", Merchant: "m_1"}

var testKey = routing.CacheKey{Tenant: "public", Merchant: "m_1", Profile: "pro_1", TransactionType: routing.Payment}

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func int64Ptr(n int64) *int64 {
	return &n
}

// createTestAccount creates a payment account on pro_1 accepting cards.
func createTestAccount(id, connector string) routing.ConnectorAccount {
	return routing.ConnectorAccount{
		ID:              id,
		Connector:       connector,
		Profile:         "pro_1",
		TransactionType: routing.Payment,
		PaymentMethods: []routing.PaymentMethodConfig{
			{PaymentMethod: "card", Currencies: []string{"USD"}, MinAmount: int64Ptr(100)},
		},
	}
}
