package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestWallet_DepositWithdraw(t *testing.T) {
	w := NewWallet("usd")
	if w.CurrencyCode != "USD" {
		t.Errorf("expected normalized code USD, got %s", w.CurrencyCode)
	}

	if err := w.Deposit(dec("100.50")); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if err := w.Withdraw(dec("40.50")); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if !w.Balance.Equal(dec("60")) {
		t.Errorf("expected balance 60, got %s", w.Balance)
	}
}

func TestWallet_WithdrawFailsClosed(t *testing.T) {
	w := NewWallet("BTC")
	w.Deposit(dec("0.01"))

	err := w.Withdraw(dec("1"))
	if err == nil {
		t.Fatal("expected error for overdraw, got nil")
	}

	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %T", err)
	}
	if insufficient.Currency != "BTC" {
		t.Errorf("expected currency BTC, got %s", insufficient.Currency)
	}
	if !insufficient.Available.Equal(dec("0.01")) {
		t.Errorf("expected available 0.01, got %s", insufficient.Available)
	}

	// No partial debit
	if !w.Balance.Equal(dec("0.01")) {
		t.Errorf("balance changed on failed withdraw: %s", w.Balance)
	}
}

func TestWallet_RejectsNonPositiveAmounts(t *testing.T) {
	w := NewWallet("EUR")
	w.Deposit(dec("10"))

	for _, amount := range []string{"0", "-5"} {
		var invalid *InvalidAmountError
		if err := w.Deposit(dec(amount)); !errors.As(err, &invalid) {
			t.Errorf("Deposit(%s): expected InvalidAmountError, got %v", amount, err)
		}
		if err := w.Withdraw(dec(amount)); !errors.As(err, &invalid) {
			t.Errorf("Withdraw(%s): expected InvalidAmountError, got %v", amount, err)
		}
	}
	if !w.Balance.Equal(dec("10")) {
		t.Errorf("balance changed on rejected amounts: %s", w.Balance)
	}
}

func TestPortfolio_EnsureWallet(t *testing.T) {
	p := NewPortfolio(1, "USD")

	if _, ok := p.Wallet("USD"); !ok {
		t.Fatal("expected base USD wallet on creation")
	}
	if _, ok := p.Wallet("BTC"); ok {
		t.Fatal("unexpected BTC wallet")
	}

	w := p.EnsureWallet("btc")
	if w.CurrencyCode != "BTC" {
		t.Errorf("expected BTC, got %s", w.CurrencyCode)
	}
	if again := p.EnsureWallet("BTC"); again != w {
		t.Error("EnsureWallet created a duplicate wallet")
	}
}

func TestPortfolio_CloneIsIndependent(t *testing.T) {
	p := NewPortfolio(7, "USD")
	p.EnsureWallet("USD").Deposit(dec("100"))

	clone := p.Clone()
	clone.EnsureWallet("USD").Withdraw(dec("100"))
	clone.EnsureWallet("ETH").Deposit(dec("2"))

	orig, _ := p.Wallet("USD")
	if !orig.Balance.Equal(dec("100")) {
		t.Errorf("clone mutation leaked into original: %s", orig.Balance)
	}
	if _, ok := p.Wallet("ETH"); ok {
		t.Error("clone wallet creation leaked into original")
	}
}
