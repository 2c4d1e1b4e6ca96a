package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// CurrencyKind distinguishes fiat currencies from cryptocurrencies
type CurrencyKind string

const (
	KindFiat   CurrencyKind = "fiat"
	KindCrypto CurrencyKind = "crypto"
)

// Currency holds display metadata for a tradable currency.
// Persisted by the registry store (sqlite).
type Currency struct {
	Code           string       `gorm:"primaryKey" json:"code"`
	Name           string       `json:"name"`
	Kind           CurrencyKind `json:"kind" gorm:"index"`
	IssuingCountry string       `json:"issuing_country,omitempty"` // fiat only
	Algorithm      string       `json:"algorithm,omitempty"`       // crypto only
	MarketCap      float64      `json:"market_cap,omitempty"`      // crypto only, display metadata
	IconPath       string       `json:"icon_path,omitempty"`
	IsActive       bool         `json:"is_active" gorm:"index"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

var codePattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// ValidCode reports whether code is 2-5 uppercase letters after normalization
func ValidCode(code string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// NormalizeCode uppercases and trims a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DisplayInfo renders the currency for UI and logs
func (c Currency) DisplayInfo() string {
	switch c.Kind {
	case KindFiat:
		return fmt.Sprintf("[FIAT] %s — %s (Issuing: %s)", c.Code, c.Name, c.IssuingCountry)
	case KindCrypto:
		return fmt.Sprintf("[CRYPTO] %s — %s (Algo: %s)", c.Code, c.Name, c.Algorithm)
	default:
		return fmt.Sprintf("%s — %s", c.Code, c.Name)
	}
}

// DefaultCurrencies returns the built-in registry seed
func DefaultCurrencies() []Currency {
	fiat := []Currency{
		{Code: "USD", Name: "US Dollar", IssuingCountry: "United States"},
		{Code: "EUR", Name: "Euro", IssuingCountry: "Eurozone"},
		{Code: "GBP", Name: "British Pound", IssuingCountry: "United Kingdom"},
		{Code: "JPY", Name: "Japanese Yen", IssuingCountry: "Japan"},
		{Code: "RUB", Name: "Russian Ruble", IssuingCountry: "Russia"},
		{Code: "CNY", Name: "Chinese Yuan", IssuingCountry: "China"},
		{Code: "CHF", Name: "Swiss Franc", IssuingCountry: "Switzerland"},
		{Code: "CAD", Name: "Canadian Dollar", IssuingCountry: "Canada"},
		{Code: "AUD", Name: "Australian Dollar", IssuingCountry: "Australia"},
	}
	crypto := []Currency{
		{Code: "BTC", Name: "Bitcoin", Algorithm: "SHA-256", MarketCap: 1.12e12},
		{Code: "ETH", Name: "Ethereum", Algorithm: "Ethash", MarketCap: 3.8e11},
		{Code: "BNB", Name: "Binance Coin", Algorithm: "BEP-20", MarketCap: 8.5e10},
		{Code: "XRP", Name: "Ripple", Algorithm: "XRP Ledger", MarketCap: 4.2e10},
		{Code: "ADA", Name: "Cardano", Algorithm: "Ouroboros", MarketCap: 1.5e10},
		{Code: "SOL", Name: "Solana", Algorithm: "Proof of History", MarketCap: 3.2e10},
		{Code: "DOT", Name: "Polkadot", Algorithm: "Nominated Proof-of-Stake", MarketCap: 9.8e9},
	}

	out := make([]Currency, 0, len(fiat)+len(crypto))
	for _, c := range fiat {
		c.Kind = KindFiat
		c.IsActive = true
		out = append(out, c)
	}
	for _, c := range crypto {
		c.Kind = KindCrypto
		c.IsActive = true
		out = append(out, c)
	}
	return out
}
