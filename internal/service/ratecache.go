// Package service implements the exchange-rate cache, the refresh
// scheduler and the trade settlement engine on top of the storage and
// provider layers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
	"valuta_go/internal/infra"
	"valuta_go/internal/infra/provider"
	"valuta_go/internal/infra/storage"
)

// CurrencyValidator answers whether a code names a known, active currency.
// Satisfied by storage.CurrencyRegistry.
type CurrencyValidator interface {
	Validate(code string) bool
}

// UpdateResult summarizes one refresh cycle across all providers.
type UpdateResult struct {
	Success       bool          `json:"success"`
	TotalRates    int           `json:"total_rates"`
	UpdatedPairs  []string      `json:"updated_pairs"`
	FailedSources []string      `json:"failed_sources"`
	Errors        []string      `json:"errors"`
	Duration      time.Duration `json:"duration_ms"`
	Timestamp     time.Time     `json:"timestamp"`
}

// CacheStatus counts pairs by freshness at a point in time.
type CacheStatus struct {
	Fresh int `json:"fresh"`
	Stale int `json:"stale"`
	Total int `json:"total"`
}

// RateCache serves currency conversion rates. Lookups prefer fresh cached
// values, then fresh inverse values, then a provider refresh, then a
// derivation through the base currency. All mutation goes through the
// store so a restart picks up where the process left off.
type RateCache struct {
	mu        sync.RWMutex
	snapshot  domain.RateSnapshot
	providers []provider.RateProvider
	store     *storage.RateStore
	validator CurrencyValidator
	metrics   *infra.Metrics
	logger    *slog.Logger

	baseCurrency string
	ttl          time.Duration
	maxRetries   int
	retryDelay   time.Duration
	now          func() time.Time
}

// NewRateCache builds a cache over the given providers and store. Provider
// order matters: when two providers report the same pair in one cycle, the
// earlier one wins. Any snapshot already on disk is loaded so previously
// fetched rates survive restarts.
func NewRateCache(
	providers []provider.RateProvider,
	store *storage.RateStore,
	validator CurrencyValidator,
	metrics *infra.Metrics,
	logger *slog.Logger,
	baseCurrency string,
	ttl time.Duration,
	maxRetries int,
	retryDelay time.Duration,
) (*RateCache, error) {
	snap, err := store.LoadSnapshot()
	if err != nil {
		return nil, err
	}

	return &RateCache{
		snapshot:     snap,
		providers:    providers,
		store:        store,
		validator:    validator,
		metrics:      metrics,
		logger:       logger,
		baseCurrency: domain.NormalizeCode(baseCurrency),
		ttl:          ttl,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		now:          time.Now,
	}, nil
}

// GetRate returns the conversion rate from one currency to another.
//
// Resolution order: identical pair (always 1), fresh direct rate, fresh
// inverse rate, provider refresh, then derivation through the base
// currency. Exhausting all of these yields ErrRateUnavailable.
func (c *RateCache) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = domain.NormalizeCode(from)
	to = domain.NormalizeCode(to)

	if !c.validator.Validate(from) {
		return decimal.Zero, &domain.CurrencyNotFoundError{Code: from}
	}
	if !c.validator.Validate(to) {
		return decimal.Zero, &domain.CurrencyNotFoundError{Code: to}
	}
	if from == to {
		return decimal.New(1, 0), nil
	}

	if rate, ok := c.lookup(from, to); ok {
		return rate, nil
	}

	if _, err := c.RefreshAll(ctx, false); err != nil {
		return decimal.Zero, err
	}

	if rate, ok := c.lookup(from, to); ok {
		return rate, nil
	}
	if rate, ok := c.deriveViaBase(from, to); ok {
		return rate, nil
	}
	return decimal.Zero, domain.ErrRateUnavailable
}

// lookup checks the cached direct pair, then the inverse pair. Only fresh
// records count.
func (c *RateCache) lookup(from, to string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupLocked(from, to)
}

func (c *RateCache) lookupLocked(from, to string) (decimal.Decimal, bool) {
	now := c.now()

	if rec, ok := c.snapshot.Pairs[domain.PairKey(from, to)]; ok && rec.Fresh(now, c.ttl) {
		return rec.Rate, true
	}
	if rec, ok := c.snapshot.Pairs[domain.PairKey(to, from)]; ok && rec.Fresh(now, c.ttl) && !rec.Rate.IsZero() {
		return decimal.New(1, 0).Div(rec.Rate), true
	}
	return decimal.Zero, false
}

// deriveViaBase chains from->base and base->to. Each leg may itself use an
// inverse record, but never another derivation.
func (c *RateCache) deriveViaBase(from, to string) (decimal.Decimal, bool) {
	base := c.baseCurrency
	if base == "" || from == base || to == base {
		return decimal.Zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	left, ok := c.lookupLocked(from, base)
	if !ok {
		return decimal.Zero, false
	}
	right, ok := c.lookupLocked(base, to)
	if !ok {
		return decimal.Zero, false
	}
	return left.Mul(right), true
}

// RefreshAll fetches from every provider and merges the results into the
// snapshot. Earlier providers win conflicting pairs within one cycle.
// Unless force is set, pairs whose cached record is still fresh are left
// untouched. A cycle succeeds if at least one provider delivered rates;
// per-provider failures are reported in the result, not as an error.
func (c *RateCache) RefreshAll(ctx context.Context, force bool) (UpdateResult, error) {
	started := c.now()
	result := UpdateResult{Timestamp: started.UTC()}

	fetched := make(map[string]domain.RateRecord)
	for _, p := range c.providers {
		rates, err := c.fetchWithRetry(ctx, p)
		if err != nil {
			c.metrics.RecordProviderError()
			c.logger.Warn("provider fetch failed", "source", p.Name(), "error", err)
			result.FailedSources = append(result.FailedSources, p.Name())
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		fetchedAt := c.now().UTC()
		for pair, rate := range rates {
			if _, taken := fetched[pair]; taken {
				continue
			}
			fetched[pair] = domain.RateRecord{Rate: rate, UpdatedAt: fetchedAt, Source: p.Name()}
		}
	}

	if len(fetched) == 0 {
		result.Duration = c.now().Sub(started)
		if len(result.Errors) > 0 {
			return result, nil
		}
		// Providers reachable but nothing to merge
		result.Success = true
		return result, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var history []domain.RateHistoryEntry
	for pair, rec := range fetched {
		if !force {
			if prev, ok := c.snapshot.Pairs[pair]; ok && prev.Fresh(c.now(), c.ttl) {
				continue
			}
		}
		c.snapshot.Pairs[pair] = rec
		result.UpdatedPairs = append(result.UpdatedPairs, pair)

		from, to, err := domain.SplitPair(pair)
		if err != nil {
			continue
		}
		history = append(history, domain.RateHistoryEntry{
			ID:           uuid.NewString(),
			FromCurrency: from,
			ToCurrency:   to,
			Rate:         rec.Rate,
			Timestamp:    rec.UpdatedAt,
			Source:       rec.Source,
		})
	}
	sort.Strings(result.UpdatedPairs)

	c.snapshot.Metadata = domain.SnapshotMetadata{
		LastRefresh: c.now().UTC(),
		Source:      c.mergedSource(),
		TotalPairs:  len(c.snapshot.Pairs),
	}

	if err := c.store.SaveSnapshot(c.snapshot); err != nil {
		return result, err
	}
	if err := c.store.AppendHistory(history); err != nil {
		return result, err
	}

	result.Success = true
	result.TotalRates = len(c.snapshot.Pairs)
	result.Duration = c.now().Sub(started)
	c.metrics.RecordRefresh(len(result.UpdatedPairs), result.Duration)
	c.logger.Info("rates refreshed",
		"updated", len(result.UpdatedPairs),
		"total", result.TotalRates,
		"failed_sources", len(result.FailedSources),
		"duration", result.Duration)
	return result, nil
}

// fetchWithRetry calls the provider up to maxRetries+1 times, backing off
// between attempts. A Retry-After carried on the failure takes precedence
// over the linear delay. Non-retriable errors abort immediately.
func (c *RateCache) fetchWithRetry(ctx context.Context, p provider.RateProvider) (map[string]decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := infra.FetchRetryDelay(attempt, c.retryDelay)
			var perr *domain.ProviderError
			if errors.As(lastErr, &perr) && perr.RetryAfter > 0 {
				delay = perr.RetryAfter
			}
			c.logger.Debug("retrying provider", "source", p.Name(), "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		rates, err := p.FetchRates(ctx)
		if err == nil {
			return rates, nil
		}
		lastErr = err
		if !domain.IsRetriable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *RateCache) mergedSource() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, "+")
}

// ApplyTick overlays a single live rate onto the cache without touching
// history or the freshness filter. Used by the streaming feed.
func (c *RateCache) ApplyTick(pair string, rate decimal.Decimal, source string) {
	if _, _, err := domain.SplitPair(pair); err != nil || !rate.IsPositive() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot.Pairs[pair] = domain.RateRecord{Rate: rate, UpdatedAt: c.now().UTC(), Source: source}
}

// Snapshot returns a deep copy of the current pair map and metadata
func (c *RateCache) Snapshot() domain.RateSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

// Status counts cached pairs by freshness
func (c *RateCache) Status() CacheStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	st := CacheStatus{Total: len(c.snapshot.Pairs)}
	for _, rec := range c.snapshot.Pairs {
		if rec.Fresh(now, c.ttl) {
			st.Fresh++
		} else {
			st.Stale++
		}
	}
	return st
}

// LastRefresh reports when the snapshot was last written by a full cycle
func (c *RateCache) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Metadata.LastRefresh
}
