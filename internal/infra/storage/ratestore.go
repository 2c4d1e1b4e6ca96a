package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"valuta_go/internal/domain"
)

const (
	ratesFileName   = "rates.json"
	historyFileName = "exchange_rates.json"

	// DefaultMaxHistory bounds the history file size
	DefaultMaxHistory = 1000
)

// RateStore persists the current rate snapshot and a bounded append-only
// rate history. All writes are atomic replace-on-write.
type RateStore struct {
	mu          sync.Mutex
	ratesPath   string
	historyPath string
	backupDir   string
	maxHistory  int
	ttl         time.Duration

	now func() time.Time // injectable for tests
}

// NewRateStore creates a store rooted at dataDir
func NewRateStore(dataDir, backupDir string, maxHistory int, ttl time.Duration) *RateStore {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &RateStore{
		ratesPath:   filepath.Join(dataDir, ratesFileName),
		historyPath: filepath.Join(dataDir, historyFileName),
		backupDir:   backupDir,
		maxHistory:  maxHistory,
		ttl:         ttl,
		now:         time.Now,
	}
}

// SaveSnapshot atomically replaces the current snapshot file
func (s *RateStore) SaveSnapshot(snap domain.RateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.ratesPath, snap)
}

// LoadSnapshot reads the current snapshot. A missing file yields an empty
// but valid snapshot; a corrupt file yields a StorageError.
func (s *RateStore) LoadSnapshot() (domain.RateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.NewRateSnapshot()
	found, err := readJSONFile(s.ratesPath, &snap)
	if err != nil {
		return domain.NewRateSnapshot(), err
	}
	if !found || snap.Pairs == nil {
		snap.Pairs = make(map[string]domain.RateRecord)
	}
	return snap, nil
}

// AppendHistory appends entries to the history file, keeping it sorted by
// timestamp ascending (ties keep insertion order) and trimmed to the most
// recent maxHistory records.
func (s *RateStore) AppendHistory(entries []domain.RateHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistoryLocked()
	if err != nil {
		return err
	}

	history = append(history, entries...)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	return writeJSONAtomic(s.historyPath, history)
}

// History returns entries, optionally filtered to one pair key, newest first.
// limit <= 0 means no limit.
func (s *RateStore) History(pair string, limit int) ([]domain.RateHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistoryLocked()
	if err != nil {
		return nil, err
	}

	var out []domain.RateHistoryEntry
	if pair == "" {
		out = history
	} else {
		from, to, err := domain.SplitPair(pair)
		if err != nil {
			return nil, err
		}
		for _, e := range history {
			if e.FromCurrency == from && e.ToCurrency == to {
				out = append(out, e)
			}
		}
	}

	// Newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IsFresh reports whether the stored rate for a pair is within the TTL
func (s *RateStore) IsFresh(pair string) bool {
	snap, err := s.LoadSnapshot()
	if err != nil {
		return false
	}
	rec, ok := snap.Pairs[pair]
	if !ok {
		return false
	}
	return rec.Fresh(s.now(), s.ttl)
}

// Backup copies the current rates file into the backup directory and
// returns the backup path.
func (s *RateStore) Backup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", &domain.StorageError{Op: "backup", Path: s.backupDir, Err: err}
	}

	src, err := os.Open(s.ratesPath)
	if err != nil {
		return "", &domain.StorageError{Op: "backup", Path: s.ratesPath, Err: err}
	}
	defer src.Close()

	name := fmt.Sprintf("rates_backup_%s.json", s.now().Format("20060102_150405"))
	dstPath := filepath.Join(s.backupDir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", &domain.StorageError{Op: "backup", Path: dstPath, Err: err}
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", &domain.StorageError{Op: "backup", Path: dstPath, Err: err}
	}
	return dstPath, nil
}

func (s *RateStore) loadHistoryLocked() ([]domain.RateHistoryEntry, error) {
	var history []domain.RateHistoryEntry
	if _, err := readJSONFile(s.historyPath, &history); err != nil {
		return nil, err
	}
	return history, nil
}
