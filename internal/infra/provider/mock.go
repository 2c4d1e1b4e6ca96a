package provider

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Mock is a deterministic in-memory provider for tests and offline runs.
// Safe for concurrent use: the fallback chain shares one instance between
// the scheduler and lookup-triggered refreshes.
type Mock struct {
	name string

	mu    sync.Mutex
	rates map[string]decimal.Decimal
	err   error
	calls int
}

// NewMock creates a mock provider returning a fixed rate set
func NewMock(name string, rates map[string]decimal.Decimal) *Mock {
	if name == "" {
		name = "mock"
	}
	return &Mock{name: name, rates: rates}
}

// DefaultMockRates returns the canned rate set used for offline runs
func DefaultMockRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC_USD": decimal.RequireFromString("59337.21"),
		"ETH_USD": decimal.RequireFromString("3720.00"),
		"EUR_USD": decimal.RequireFromString("1.0786"),
		"GBP_USD": decimal.RequireFromString("1.2634"),
	}
}

func (m *Mock) Name() string {
	return m.name
}

// Fail makes every subsequent FetchRates return err
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Recover clears a previously injected failure
func (m *Mock) Recover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
}

// Calls returns how many times FetchRates has been invoked
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FetchRates returns a copy of the configured rates
func (m *Mock) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(m.rates))
	for k, v := range m.rates {
		out[k] = v
	}
	return out, nil
}
