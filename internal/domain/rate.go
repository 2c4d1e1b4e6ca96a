package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PairKey builds the canonical "<FROM>_<TO>" key for a currency pair
func PairKey(from, to string) string {
	return NormalizeCode(from) + "_" + NormalizeCode(to)
}

// SplitPair parses a canonical pair key back into its currency codes
func SplitPair(key string) (from, to string, err error) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 || !ValidCode(parts[0]) || !ValidCode(parts[1]) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPair, key)
	}
	return parts[0], parts[1], nil
}

// RateRecord is one cached exchange rate. Records are replaced wholesale on
// every update, never mutated in place.
type RateRecord struct {
	Rate      decimal.Decimal `json:"rate"`
	UpdatedAt time.Time       `json:"updated_at"`
	Source    string          `json:"source"`
}

// Fresh reports whether the record is younger than or exactly at the TTL.
// The boundary is inclusive: age == ttl is still fresh.
func (r RateRecord) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.UpdatedAt) <= ttl
}

// MarshalJSON writes the rate as a bare JSON number to match the on-disk
// snapshot format.
func (r RateRecord) MarshalJSON() ([]byte, error) {
	type alias struct {
		Rate      json.Number `json:"rate"`
		UpdatedAt time.Time   `json:"updated_at"`
		Source    string      `json:"source"`
	}
	return json.Marshal(alias{
		Rate:      json.Number(r.Rate.String()),
		UpdatedAt: r.UpdatedAt,
		Source:    r.Source,
	})
}

// SnapshotMetadata describes the last refresh that produced a snapshot
type SnapshotMetadata struct {
	LastRefresh time.Time `json:"last_refresh"`
	Source      string    `json:"source"`
	TotalPairs  int       `json:"total_pairs"`
}

// RateSnapshot is the full current map of rate records plus refresh metadata.
// Owned by the RateStore; the RateCache keeps an in-memory mirror.
type RateSnapshot struct {
	Pairs    map[string]RateRecord `json:"pairs"`
	Metadata SnapshotMetadata      `json:"metadata"`
}

// NewRateSnapshot returns an empty but valid snapshot
func NewRateSnapshot() RateSnapshot {
	return RateSnapshot{Pairs: make(map[string]RateRecord)}
}

// Clone returns a deep copy safe to hand to concurrent readers
func (s RateSnapshot) Clone() RateSnapshot {
	out := RateSnapshot{
		Pairs:    make(map[string]RateRecord, len(s.Pairs)),
		Metadata: s.Metadata,
	}
	for k, v := range s.Pairs {
		out.Pairs[k] = v
	}
	return out
}

// RateHistoryEntry is an immutable append-only history record
type RateHistoryEntry struct {
	ID           string            `json:"id"`
	FromCurrency string            `json:"from_currency"`
	ToCurrency   string            `json:"to_currency"`
	Rate         decimal.Decimal   `json:"rate"`
	Timestamp    time.Time         `json:"timestamp"`
	Source       string            `json:"source"`
	Meta         map[string]string `json:"meta"`
}

// MarshalJSON writes the rate as a bare JSON number, same as RateRecord
func (e RateHistoryEntry) MarshalJSON() ([]byte, error) {
	type alias RateHistoryEntry
	type wire struct {
		alias
		Rate json.Number `json:"rate"`
	}
	return json.Marshal(wire{alias: alias(e), Rate: json.Number(e.Rate.String())})
}
