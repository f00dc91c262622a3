package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/routegraph/internal/routing"
)

func TestLoadConfig_Empty(t *testing.T) {
	s := createTestStore(t)

	cfg, err := s.LoadConfig(context.Background(), testKey)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Accounts == nil || cfg.Filters == nil {
		t.Error("LoadConfig() should return empty slices, not nil")
	}
}

func TestLoadConfig_ScopesByKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	payout := createTestAccount("acc_payout", "adyen")
	payout.TransactionType = routing.Payout
	otherProfile := createTestAccount("acc_other", "adyen")
	otherProfile.Profile = "pro_2"

	for _, a := range []routing.ConnectorAccount{createTestAccount("acc_1", "stripe"), payout, otherProfile} {
		if err := s.SaveAccount(ctx, testMerchant, a); err != nil {
			t.Fatalf("SaveAccount(%s) failed: %v", a.ID, err)
		}
	}

	cfg, err := s.LoadConfig(ctx, testKey)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].ID != "acc_1" {
		t.Errorf("accounts = %+v, want only acc_1", cfg.Accounts)
	}
}

func TestLoadConfig_DeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, a := range []routing.ConnectorAccount{
		createTestAccount("b", "stripe"),
		createTestAccount("a", "stripe"),
		createTestAccount("z", "adyen"),
	} {
		if err := s.SaveAccount(ctx, testMerchant, a); err != nil {
			t.Fatalf("SaveAccount() failed: %v", err)
		}
	}

	cfg, err := s.LoadConfig(ctx, testKey)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	var ids []string
	for _, a := range cfg.Accounts {
		ids = append(ids, a.ID)
	}
	if want := []string{"z", "a", "b"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v (connector, then id)", ids, want)
	}
}

// TestLoadConfig_FeedsGraphCache tests the store as a routing.ConfigSource.
func TestLoadConfig_FeedsGraphCache(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.SaveAccount(ctx, testMerchant, createTestAccount("acc_1", "stripe")); err != nil {
		t.Fatalf("SaveAccount() failed: %v", err)
	}

	var source routing.ConfigSource = s
	cache := routing.NewGraphCache(source, nil)
	svc := routing.NewService(cache, nil)

	res, err := svc.Eligible(ctx, testKey,
		routing.PaymentInput{PaymentMethod: "card", Currency: "USD", Amount: int64Ptr(500)},
		[]routing.ConnectorChoice{{Connector: "stripe"}})
	if err != nil {
		t.Fatalf("Eligible() failed: %v", err)
	}
	if len(res.Eligible) != 1 {
		t.Errorf("eligible = %+v, want stripe", res.Eligible)
	}

	_, err = svc.Eligible(ctx, testKey,
		routing.PaymentInput{PaymentMethod: "card", Currency: "EUR"},
		[]routing.ConnectorChoice{{Connector: "stripe"}})
	if !errors.Is(err, routing.ErrNoEligibleConnector) {
		t.Errorf("Eligible(EUR) = %v, want ErrNoEligibleConnector", err)
	}
}

func TestLoadProgram_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := testProgram("routing")

	hash, err := s.SaveProgram(ctx, testMerchant, p)
	if err != nil {
		t.Fatalf("SaveProgram() failed: %v", err)
	}
	got, err := s.LoadProgram(ctx, hash)
	if err != nil {
		t.Fatalf("LoadProgram() failed: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("LoadProgram() = %+v, want %+v", got, p)
	}
}

func TestLoadProgram_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadProgram(context.Background(), "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadProgram() = %v, want ErrNotFound", err)
	}
}

func TestListPrograms_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		if _, err := s.SaveProgram(ctx, testMerchant, testProgram(name)); err != nil {
			t.Fatalf("SaveProgram(%s) failed: %v", name, err)
		}
	}

	records, err := s.ListPrograms(ctx, testMerchant)
	if err != nil {
		t.Fatalf("ListPrograms() failed: %v", err)
	}
	if len(records) != 2 || records[0].Name != "first" || records[1].Name != "second" {
		t.Errorf("records = %+v, want first then second", records)
	}
	if records[0].Seq >= records[1].Seq {
		t.Errorf("seq not increasing: %d, %d", records[0].Seq, records[1].Seq)
	}
}
