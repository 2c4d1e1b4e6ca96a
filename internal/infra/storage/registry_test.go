package storage

import (
	"errors"
	"strings"
	"testing"

	"valuta_go/internal/domain"
)

func openTestRegistry(t *testing.T) *CurrencyRegistry {
	t.Helper()
	r, err := OpenCurrencyRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCurrencyRegistry failed: %v", err)
	}
	return r
}

func TestCurrencyRegistry_Seed(t *testing.T) {
	r := openTestRegistry(t)

	all, err := r.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != len(domain.DefaultCurrencies()) {
		t.Fatalf("expected %d seeded currencies, got %d", len(domain.DefaultCurrencies()), len(all))
	}

	usd, err := r.Get("USD")
	if err != nil {
		t.Fatalf("Get USD failed: %v", err)
	}
	if usd.Kind != domain.KindFiat {
		t.Errorf("USD seeded with kind %q", usd.Kind)
	}
	btc, err := r.Get("btc")
	if err != nil {
		t.Fatalf("Get with lowercase code failed: %v", err)
	}
	if btc.Kind != domain.KindCrypto {
		t.Errorf("BTC seeded with kind %q", btc.Kind)
	}
}

func TestCurrencyRegistry_GetUnknown(t *testing.T) {
	r := openTestRegistry(t)

	_, err := r.Get("ZZZ")
	if err == nil {
		t.Fatal("expected error for unknown code")
	}
	var nf *domain.CurrencyNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected CurrencyNotFoundError, got %T", err)
	}
	if nf.Code != "ZZZ" {
		t.Errorf("error carries wrong code %q", nf.Code)
	}

	if _, err := r.Get("not-a-code"); err == nil {
		t.Error("expected error for invalid code format")
	}
}

func TestCurrencyRegistry_Validate(t *testing.T) {
	r := openTestRegistry(t)

	if !r.Validate("EUR") {
		t.Error("EUR should validate")
	}
	if r.Validate("ZZZ") {
		t.Error("ZZZ should not validate")
	}
	if r.Validate("") {
		t.Error("empty code should not validate")
	}
}

func TestCurrencyRegistry_DisplayInfo(t *testing.T) {
	r := openTestRegistry(t)

	fiat, err := r.DisplayInfo("USD")
	if err != nil {
		t.Fatalf("DisplayInfo failed: %v", err)
	}
	if !strings.HasPrefix(fiat, "[FIAT] USD") {
		t.Errorf("unexpected fiat display: %q", fiat)
	}

	crypto, err := r.DisplayInfo("ETH")
	if err != nil {
		t.Fatalf("DisplayInfo failed: %v", err)
	}
	if !strings.HasPrefix(crypto, "[CRYPTO] ETH") {
		t.Errorf("unexpected crypto display: %q", crypto)
	}
}

func TestCurrencyRegistry_Register(t *testing.T) {
	r := openTestRegistry(t)

	err := r.Register(domain.Currency{
		Code:      "DOGE",
		Name:      "Dogecoin",
		Kind:      domain.KindCrypto,
		Algorithm: "Scrypt",
		IsActive:  true,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !r.Validate("DOGE") {
		t.Error("registered currency should validate")
	}

	if err := r.Register(domain.Currency{Code: "bad code"}); err == nil {
		t.Error("expected error registering invalid code")
	}
}

func TestCurrencyRegistry_SetIconPath(t *testing.T) {
	r := openTestRegistry(t)

	if err := r.SetIconPath("BTC", "assets/icons/btc.png"); err != nil {
		t.Fatalf("SetIconPath failed: %v", err)
	}
	btc, err := r.Get("BTC")
	if err != nil {
		t.Fatal(err)
	}
	if btc.IconPath != "assets/icons/btc.png" {
		t.Errorf("icon path not persisted: %q", btc.IconPath)
	}
}
