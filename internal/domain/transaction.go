package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType enumerates the ledger entry types
type TradeType string

const (
	TradeBuy      TradeType = "buy"
	TradeSell     TradeType = "sell"
	TradeDeposit  TradeType = "deposit"
	TradeWithdraw TradeType = "withdraw"
)

// Transaction is an immutable ledger entry. IDs are assigned by the
// transaction store and increase monotonically in commit order.
type Transaction struct {
	ID           int64            `json:"transaction_id"`
	UserID       int              `json:"user_id"`
	Type         TradeType        `json:"type"`
	FromCurrency string           `json:"from_currency,omitempty"`
	ToCurrency   string           `json:"to_currency,omitempty"`
	Amount       decimal.Decimal  `json:"amount"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	Fee          *decimal.Decimal `json:"fee,omitempty"`
	Description  string           `json:"description,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// TradeResult is the ephemeral outcome of a settled trade. It is returned to
// the caller and never persisted.
type TradeResult struct {
	Success     bool                       `json:"success"`
	Transaction *Transaction               `json:"transaction,omitempty"`
	Amount      decimal.Decimal            `json:"amount"`
	Rate        decimal.Decimal            `json:"rate"`
	Fee         decimal.Decimal            `json:"fee"`
	TotalCost   decimal.Decimal            `json:"total_cost"`
	OldBalances map[string]decimal.Decimal `json:"old_balances"`
	NewBalances map[string]decimal.Decimal `json:"new_balances"`
	Message     string                     `json:"message"`
}
