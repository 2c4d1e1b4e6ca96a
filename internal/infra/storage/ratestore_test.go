package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
)

func newTestRateStore(t *testing.T) *RateStore {
	t.Helper()
	dir := t.TempDir()
	return NewRateStore(dir, filepath.Join(dir, "backups"), 5, 5*time.Minute)
}

func record(rate string, age time.Duration) domain.RateRecord {
	return domain.RateRecord{
		Rate:      decimal.RequireFromString(rate),
		UpdatedAt: time.Now().Add(-age),
		Source:    "test",
	}
}

func TestRateStore_SaveLoadSnapshot(t *testing.T) {
	s := newTestRateStore(t)

	snap := domain.NewRateSnapshot()
	snap.Pairs["BTC_USD"] = record("59337.21", 0)
	snap.Metadata = domain.SnapshotMetadata{LastRefresh: time.Now().UTC(), Source: "mock", TotalPairs: 1}

	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !loaded.Pairs["BTC_USD"].Rate.Equal(decimal.RequireFromString("59337.21")) {
		t.Errorf("rate did not round-trip: %s", loaded.Pairs["BTC_USD"].Rate)
	}
	if loaded.Metadata.TotalPairs != 1 {
		t.Errorf("metadata did not round-trip: %+v", loaded.Metadata)
	}
}

func TestRateStore_LoadMissingFile(t *testing.T) {
	s := newTestRateStore(t)

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if snap.Pairs == nil || len(snap.Pairs) != 0 {
		t.Errorf("expected empty valid snapshot, got %+v", snap)
	}
}

func TestRateStore_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewRateStore(dir, filepath.Join(dir, "backups"), 5, time.Minute)

	if err := os.WriteFile(filepath.Join(dir, ratesFileName), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadSnapshot()
	if err == nil {
		t.Fatal("expected error for corrupt file")
	}
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T", err)
	}
}

func TestRateStore_HistoryTrim(t *testing.T) {
	s := newTestRateStore(t) // max 5 records

	base := time.Now().Add(-time.Hour)
	for batch := 0; batch < 3; batch++ {
		var entries []domain.RateHistoryEntry
		for i := 0; i < 3; i++ {
			n := batch*3 + i
			entries = append(entries, domain.RateHistoryEntry{
				ID:           fmt.Sprintf("rec-%d", n),
				FromCurrency: "BTC",
				ToCurrency:   "USD",
				Rate:         decimal.RequireFromString("50000"),
				Timestamp:    base.Add(time.Duration(n) * time.Minute),
				Source:       "test",
			})
		}
		if err := s.AppendHistory(entries); err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	all, err := s.History("", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected history capped at 5, got %d", len(all))
	}

	// Newest first; oldest entries were evicted
	if all[0].ID != "rec-8" {
		t.Errorf("expected newest rec-8 first, got %s", all[0].ID)
	}
	if all[len(all)-1].ID != "rec-4" {
		t.Errorf("expected oldest surviving rec-4 last, got %s", all[len(all)-1].ID)
	}
}

func TestRateStore_HistoryFilterAndLimit(t *testing.T) {
	s := newTestRateStore(t)

	now := time.Now()
	err := s.AppendHistory([]domain.RateHistoryEntry{
		{ID: "a", FromCurrency: "BTC", ToCurrency: "USD", Rate: decimal.New(1, 0), Timestamp: now.Add(-2 * time.Minute)},
		{ID: "b", FromCurrency: "EUR", ToCurrency: "USD", Rate: decimal.New(1, 0), Timestamp: now.Add(-time.Minute)},
		{ID: "c", FromCurrency: "BTC", ToCurrency: "USD", Rate: decimal.New(1, 0), Timestamp: now},
	})
	if err != nil {
		t.Fatalf("AppendHistory failed: %v", err)
	}

	btc, err := s.History("BTC_USD", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(btc) != 2 || btc[0].ID != "c" || btc[1].ID != "a" {
		t.Errorf("unexpected filtered history: %+v", btc)
	}

	limited, _ := s.History("", 1)
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Errorf("limit not applied, got %+v", limited)
	}
}

func TestRateStore_IsFresh(t *testing.T) {
	s := newTestRateStore(t) // ttl 5m

	snap := domain.NewRateSnapshot()
	snap.Pairs["EUR_USD"] = record("1.08", time.Minute)
	snap.Pairs["GBP_USD"] = record("1.26", 10*time.Minute)
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	if !s.IsFresh("EUR_USD") {
		t.Error("1m old rate reported stale with 5m ttl")
	}
	if s.IsFresh("GBP_USD") {
		t.Error("10m old rate reported fresh with 5m ttl")
	}
	if s.IsFresh("JPY_USD") {
		t.Error("missing pair reported fresh")
	}
}

func TestRateStore_Backup(t *testing.T) {
	s := newTestRateStore(t)

	snap := domain.NewRateSnapshot()
	snap.Pairs["BTC_USD"] = record("50000", 0)
	if err := s.SaveSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	path, err := s.Backup()
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("backup file is empty")
	}
}

func TestRateStore_BackupWithoutSnapshot(t *testing.T) {
	s := newTestRateStore(t)

	if _, err := s.Backup(); err == nil {
		t.Fatal("expected error backing up a missing rates file")
	}
}
