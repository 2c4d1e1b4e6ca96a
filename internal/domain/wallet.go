package domain

import (
	"github.com/shopspring/decimal"
)

// Wallet holds the balance of a single currency. The balance is never
// negative: Withdraw fails closed before any mutation.
type Wallet struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}

// NewWallet creates an empty wallet for a currency code
func NewWallet(code string) *Wallet {
	return &Wallet{CurrencyCode: NormalizeCode(code), Balance: decimal.Zero}
}

// Deposit adds a positive amount to the balance
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &InvalidAmountError{Amount: amount}
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}

// Withdraw removes a positive amount from the balance. Fails with
// InsufficientFundsError when amount exceeds the balance; no partial debit.
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &InvalidAmountError{Amount: amount}
	}
	if amount.GreaterThan(w.Balance) {
		return &InsufficientFundsError{
			Currency:  w.CurrencyCode,
			Available: w.Balance,
			Required:  amount,
		}
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// Portfolio is one user's collection of wallets keyed by currency code
type Portfolio struct {
	UserID  int                `json:"user_id"`
	Wallets map[string]*Wallet `json:"wallets"`
}

// NewPortfolio creates a portfolio with a single wallet for the base currency
func NewPortfolio(userID int, baseCurrency string) *Portfolio {
	p := &Portfolio{UserID: userID, Wallets: make(map[string]*Wallet)}
	p.EnsureWallet(baseCurrency)
	return p
}

// Wallet returns the wallet for a currency code, if present
func (p *Portfolio) Wallet(code string) (*Wallet, bool) {
	w, ok := p.Wallets[NormalizeCode(code)]
	return w, ok
}

// EnsureWallet returns the wallet for a currency code, creating it if absent
func (p *Portfolio) EnsureWallet(code string) *Wallet {
	code = NormalizeCode(code)
	w, ok := p.Wallets[code]
	if !ok {
		w = NewWallet(code)
		p.Wallets[code] = w
	}
	return w
}

// Balances returns a copy of all balances keyed by currency code
func (p *Portfolio) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.Wallets))
	for code, w := range p.Wallets {
		out[code] = w.Balance
	}
	return out
}

// Clone returns a deep copy of the portfolio
func (p *Portfolio) Clone() *Portfolio {
	out := &Portfolio{UserID: p.UserID, Wallets: make(map[string]*Wallet, len(p.Wallets))}
	for code, w := range p.Wallets {
		cp := *w
		out.Wallets[code] = &cp
	}
	return out
}
