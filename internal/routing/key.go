package routing

import (
	"fmt"
	"strings"
)

// TransactionType separates payment and payout eligibility.
type TransactionType string

const (
	Payment TransactionType = "payment"
	Payout  TransactionType = "payout"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Payment || t == Payout
}

// ParseTransactionType parses "payment" or "payout", case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q (want payment or payout)", s)
	}
	return t, nil
}

// CacheKey identifies one knowledge graph. Eligibility differs per tenant,
// merchant, profile and transaction type, so all four are part of the key.
type CacheKey struct {
	Tenant          string          `json:"tenant"`
	Merchant        string          `json:"merchant"`
	Profile         string          `json:"profile"`
	TransactionType TransactionType `json:"transaction_type"`
}

// String returns the opaque store key,
// e.g. "routing:graph:public:m_123:pro_1:payment".
func (k CacheKey) String() string {
	return fmt.Sprintf("routing:graph:%s:%s:%s:%s", k.Tenant, k.Merchant, k.Profile, k.TransactionType)
}

// Validate checks that every part of the key is set. Parts may not contain
// the ":" separator, so distinct keys always render distinct strings.
func (k CacheKey) Validate() error {
	parts := []struct{ name, value string }{
		{"tenant", k.Tenant},
		{"merchant", k.Merchant},
		{"profile", k.Profile},
	}
	for _, p := range parts {
		if p.value == "" {
			return fmt.Errorf("cache key: %s is required", p.name)
		}
		if strings.Contains(p.value, ":") {
			return fmt.Errorf("cache key: %s %q must not contain ':'", p.name, p.value)
		}
	}
	if !k.TransactionType.Valid() {
		return fmt.Errorf("cache key: invalid transaction type %q", k.TransactionType)
	}
	return nil
}
