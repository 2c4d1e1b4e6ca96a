package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
	"valuta_go/internal/infra"
	"valuta_go/internal/infra/storage"
)

// RateSource is the slice of RateCache the settlement engine needs
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// SettlementEngine executes buys, sells, deposits and withdrawals against
// user portfolios. Trades for the same user are serialized; trades for
// different users run concurrently. A trade either fully settles (balances
// moved, ledger entry written, portfolio persisted) or leaves no trace.
type SettlementEngine struct {
	rates      RateSource
	portfolios *storage.PortfolioStore
	ledger     *storage.TransactionStore
	validator  CurrencyValidator
	metrics    *infra.Metrics
	logger     *slog.Logger

	feePercent     decimal.Decimal
	minTradeAmount decimal.Decimal
	baseCurrency   string

	mu    sync.Mutex
	state map[int]*domain.Portfolio
	locks map[int]*sync.Mutex
}

// NewSettlementEngine loads persisted portfolios and prepares the engine.
func NewSettlementEngine(
	rates RateSource,
	portfolios *storage.PortfolioStore,
	ledger *storage.TransactionStore,
	validator CurrencyValidator,
	metrics *infra.Metrics,
	logger *slog.Logger,
	feePercent decimal.Decimal,
	minTradeAmount decimal.Decimal,
	baseCurrency string,
) (*SettlementEngine, error) {
	state, err := portfolios.Load()
	if err != nil {
		return nil, err
	}

	return &SettlementEngine{
		rates:          rates,
		portfolios:     portfolios,
		ledger:         ledger,
		validator:      validator,
		metrics:        metrics,
		logger:         logger,
		feePercent:     feePercent,
		minTradeAmount: minTradeAmount,
		baseCurrency:   domain.NormalizeCode(baseCurrency),
		state:          state,
		locks:          make(map[int]*sync.Mutex),
	}, nil
}

// userLock returns the per-user mutex, creating it on first use
func (e *SettlementEngine) userLock(userID int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

func (e *SettlementEngine) portfolioLocked(userID int) *domain.Portfolio {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.state[userID]
	if !ok {
		p = domain.NewPortfolio(userID, e.baseCurrency)
		e.state[userID] = p
	}
	return p
}

// commit persists the mutated portfolio and swaps it into memory only after
// the write succeeds. e.mu is held across snapshot and Save: two commits for
// different users cannot reorder between copying the state map and writing
// it, so the durable file never misses a trade that was reported settled.
func (e *SettlementEngine) commit(userID int, p *domain.Portfolio) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	all := make(map[int]*domain.Portfolio, len(e.state)+1)
	for id, pf := range e.state {
		all[id] = pf
	}
	all[userID] = p

	if err := e.portfolios.Save(all); err != nil {
		return err
	}
	e.state[userID] = p
	return nil
}

func (e *SettlementEngine) checkTrade(currency string, amount decimal.Decimal) error {
	if !e.validator.Validate(currency) {
		return &domain.CurrencyNotFoundError{Code: domain.NormalizeCode(currency)}
	}
	if !amount.IsPositive() {
		return &domain.InvalidAmountError{Amount: amount}
	}
	if amount.LessThan(e.minTradeAmount) {
		return &domain.InvalidAmountError{
			Amount: amount,
			Reason: fmt.Sprintf("below minimum trade amount %s", e.minTradeAmount),
		}
	}
	return nil
}

// Buy purchases amount of currency, paying from the payWith wallet at the
// current rate plus the configured fee. The fee is charged in the payment
// currency on top of the cost.
func (e *SettlementEngine) Buy(ctx context.Context, userID int, currency string, amount decimal.Decimal, payWith string) (*domain.TradeResult, error) {
	currency = domain.NormalizeCode(currency)
	payWith = domain.NormalizeCode(payWith)

	if err := e.checkTrade(currency, amount); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if !e.validator.Validate(payWith) {
		e.metrics.RecordTradeRejected()
		return nil, &domain.CurrencyNotFoundError{Code: payWith}
	}

	rate, err := e.rates.GetRate(ctx, currency, payWith)
	if err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}

	cost := amount.Mul(rate)
	fee := cost.Mul(e.feePercent).Div(decimal.New(100, 0))
	total := cost.Add(fee)

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current := e.portfolioLocked(userID)
	old := current.Balances()

	next := current.Clone()
	if err := next.EnsureWallet(payWith).Withdraw(total); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if err := next.EnsureWallet(currency).Deposit(amount); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:       userID,
		Type:         domain.TradeBuy,
		FromCurrency: payWith,
		ToCurrency:   currency,
		Amount:       amount,
		Rate:         &rate,
		Fee:          &fee,
		Description:  fmt.Sprintf("buy %s %s for %s %s", amount, currency, total, payWith),
	}
	if err := e.ledger.Append(tx); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if err := e.commit(userID, next); err != nil {
		return nil, err
	}

	e.metrics.RecordTradeSettled()
	e.logger.Info("trade settled", "user", userID, "type", "buy", "currency", currency, "amount", amount, "total", total)
	return &domain.TradeResult{
		Success:     true,
		Transaction: tx,
		Amount:      amount,
		Rate:        rate,
		Fee:         fee,
		TotalCost:   total,
		OldBalances: old,
		NewBalances: next.Balances(),
		Message:     fmt.Sprintf("bought %s %s", amount, currency),
	}, nil
}

// Sell converts amount of currency into the receiveIn wallet at the current
// rate. The fee is charged in the receiving currency and deducted from the
// proceeds.
func (e *SettlementEngine) Sell(ctx context.Context, userID int, currency string, amount decimal.Decimal, receiveIn string) (*domain.TradeResult, error) {
	currency = domain.NormalizeCode(currency)
	receiveIn = domain.NormalizeCode(receiveIn)

	if err := e.checkTrade(currency, amount); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if !e.validator.Validate(receiveIn) {
		e.metrics.RecordTradeRejected()
		return nil, &domain.CurrencyNotFoundError{Code: receiveIn}
	}

	rate, err := e.rates.GetRate(ctx, currency, receiveIn)
	if err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}

	proceeds := amount.Mul(rate)
	fee := proceeds.Mul(e.feePercent).Div(decimal.New(100, 0))
	net := proceeds.Sub(fee)

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current := e.portfolioLocked(userID)
	old := current.Balances()

	next := current.Clone()
	if err := next.EnsureWallet(currency).Withdraw(amount); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if err := next.EnsureWallet(receiveIn).Deposit(net); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:       userID,
		Type:         domain.TradeSell,
		FromCurrency: currency,
		ToCurrency:   receiveIn,
		Amount:       amount,
		Rate:         &rate,
		Fee:          &fee,
		Description:  fmt.Sprintf("sell %s %s for %s %s", amount, currency, net, receiveIn),
	}
	if err := e.ledger.Append(tx); err != nil {
		e.metrics.RecordTradeRejected()
		return nil, err
	}
	if err := e.commit(userID, next); err != nil {
		return nil, err
	}

	e.metrics.RecordTradeSettled()
	e.logger.Info("trade settled", "user", userID, "type", "sell", "currency", currency, "amount", amount, "net", net)
	return &domain.TradeResult{
		Success:     true,
		Transaction: tx,
		Amount:      amount,
		Rate:        rate,
		Fee:         fee,
		TotalCost:   net,
		OldBalances: old,
		NewBalances: next.Balances(),
		Message:     fmt.Sprintf("sold %s %s", amount, currency),
	}, nil
}

// Deposit credits funds to a wallet, creating it if absent.
func (e *SettlementEngine) Deposit(userID int, currency string, amount decimal.Decimal) (*domain.TradeResult, error) {
	currency = domain.NormalizeCode(currency)
	if !e.validator.Validate(currency) {
		return nil, &domain.CurrencyNotFoundError{Code: currency}
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current := e.portfolioLocked(userID)
	old := current.Balances()

	next := current.Clone()
	if err := next.EnsureWallet(currency).Deposit(amount); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:      userID,
		Type:        domain.TradeDeposit,
		ToCurrency:  currency,
		Amount:      amount,
		Description: fmt.Sprintf("deposit %s %s", amount, currency),
	}
	if err := e.ledger.Append(tx); err != nil {
		return nil, err
	}
	if err := e.commit(userID, next); err != nil {
		return nil, err
	}

	return &domain.TradeResult{
		Success:     true,
		Transaction: tx,
		Amount:      amount,
		OldBalances: old,
		NewBalances: next.Balances(),
		Message:     fmt.Sprintf("deposited %s %s", amount, currency),
	}, nil
}

// Withdraw debits funds from a wallet. Fails closed on overdraw.
func (e *SettlementEngine) Withdraw(userID int, currency string, amount decimal.Decimal) (*domain.TradeResult, error) {
	currency = domain.NormalizeCode(currency)
	if !e.validator.Validate(currency) {
		return nil, &domain.CurrencyNotFoundError{Code: currency}
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	current := e.portfolioLocked(userID)
	old := current.Balances()

	next := current.Clone()
	if err := next.EnsureWallet(currency).Withdraw(amount); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:       userID,
		Type:         domain.TradeWithdraw,
		FromCurrency: currency,
		Amount:       amount,
		Description:  fmt.Sprintf("withdraw %s %s", amount, currency),
	}
	if err := e.ledger.Append(tx); err != nil {
		return nil, err
	}
	if err := e.commit(userID, next); err != nil {
		return nil, err
	}

	return &domain.TradeResult{
		Success:     true,
		Transaction: tx,
		Amount:      amount,
		OldBalances: old,
		NewBalances: next.Balances(),
		Message:     fmt.Sprintf("withdrew %s %s", amount, currency),
	}, nil
}

// Portfolio returns a copy of one user's portfolio
func (e *SettlementEngine) Portfolio(userID int) *domain.Portfolio {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return e.portfolioLocked(userID).Clone()
}

// PortfolioValue sums all wallet balances converted into the target
// currency. Wallets whose rate cannot be resolved are skipped and reported.
func (e *SettlementEngine) PortfolioValue(ctx context.Context, userID int, target string) (decimal.Decimal, []string, error) {
	target = domain.NormalizeCode(target)
	if !e.validator.Validate(target) {
		return decimal.Zero, nil, &domain.CurrencyNotFoundError{Code: target}
	}

	p := e.Portfolio(userID)

	total := decimal.Zero
	var skipped []string
	for code, balance := range p.Balances() {
		if balance.IsZero() {
			continue
		}
		rate, err := e.rates.GetRate(ctx, code, target)
		if err != nil {
			skipped = append(skipped, code)
			continue
		}
		total = total.Add(balance.Mul(rate))
	}
	sort.Strings(skipped)
	return total, skipped, nil
}

// Transactions returns a user's ledger entries, newest first
func (e *SettlementEngine) Transactions(userID int, limit int) ([]domain.Transaction, error) {
	return e.ledger.ForUser(userID, limit)
}
