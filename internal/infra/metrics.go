package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	refreshCycles  atomic.Uint64
	ratesFetched   atomic.Uint64
	providerErrors atomic.Uint64
	tradesSettled  atomic.Uint64
	tradesRejected atomic.Uint64

	// Fetch latency tracking
	fetchLatencySumNs atomic.Int64
	fetchLatencyCount atomic.Uint64
}

// NewMetrics creates an empty metrics set. One instance is constructed at
// bootstrap and passed explicitly to the components that record into it.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRefresh records one completed refresh cycle and its fetched pair count
func (m *Metrics) RecordRefresh(pairs int, latency time.Duration) {
	m.refreshCycles.Add(1)
	m.ratesFetched.Add(uint64(pairs))
	m.fetchLatencySumNs.Add(latency.Nanoseconds())
	m.fetchLatencyCount.Add(1)
}

// RecordProviderError records a failed provider fetch
func (m *Metrics) RecordProviderError() {
	m.providerErrors.Add(1)
}

// RecordTradeSettled records a successfully settled trade
func (m *Metrics) RecordTradeSettled() {
	m.tradesSettled.Add(1)
}

// RecordTradeRejected records a trade rejected before application
func (m *Metrics) RecordTradeRejected() {
	m.tradesRejected.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics
type MetricsSnapshot struct {
	RefreshCycles     uint64
	RatesFetched      uint64
	ProviderErrors    uint64
	TradesSettled     uint64
	TradesRejected    uint64
	AvgFetchLatencyNs int64
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.fetchLatencyCount.Load()
	if count > 0 {
		avgLatency = m.fetchLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RefreshCycles:     m.refreshCycles.Load(),
		RatesFetched:      m.ratesFetched.Load(),
		ProviderErrors:    m.providerErrors.Load(),
		TradesSettled:     m.tradesSettled.Load(),
		TradesRejected:    m.tradesRejected.Load(),
		AvgFetchLatencyNs: avgLatency,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing)
func (m *Metrics) Reset() {
	m.refreshCycles.Store(0)
	m.ratesFetched.Store(0)
	m.providerErrors.Store(0)
	m.tradesSettled.Store(0)
	m.tradesRejected.Store(0)
	m.fetchLatencySumNs.Store(0)
	m.fetchLatencyCount.Store(0)
}
