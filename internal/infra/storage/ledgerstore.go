package storage

import (
	"path/filepath"
	"sync"
	"time"

	"valuta_go/internal/domain"
)

const transactionsFileName = "transactions.json"

// TransactionStore is the append-only trade ledger. Entries are never edited
// or deleted; IDs increase monotonically in commit order.
type TransactionStore struct {
	mu     sync.Mutex
	path   string
	nextID int64
	loaded bool
}

// NewTransactionStore creates a ledger rooted at dataDir
func NewTransactionStore(dataDir string) *TransactionStore {
	return &TransactionStore{path: filepath.Join(dataDir, transactionsFileName)}
}

// Append assigns the next transaction ID and timestamp, then persists the
// ledger atomically. The assigned ID reflects commit order under concurrency.
func (s *TransactionStore) Append(tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}

	tx.ID = s.nextID
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	list = append(list, *tx)
	if err := writeJSONAtomic(s.path, list); err != nil {
		return err
	}
	s.nextID++
	return nil
}

// ForUser returns the user's transactions, newest first. limit <= 0 means
// no limit.
func (s *TransactionStore) ForUser(userID int, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	var out []domain.Transaction
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].UserID == userID {
			out = append(out, list[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// All returns every ledger entry in commit order
func (s *TransactionStore) All() ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// loadLocked reads the ledger and initializes the ID counter on first use.
// Must be called with mu held.
func (s *TransactionStore) loadLocked() ([]domain.Transaction, error) {
	var list []domain.Transaction
	if _, err := readJSONFile(s.path, &list); err != nil {
		return nil, err
	}

	if !s.loaded {
		var maxID int64
		for _, tx := range list {
			if tx.ID > maxID {
				maxID = tx.ID
			}
		}
		s.nextID = maxID + 1
		s.loaded = true
	}
	return list, nil
}
