package storage

import (
	"path/filepath"
	"sort"
	"sync"

	"valuta_go/internal/domain"
)

const portfoliosFileName = "portfolios.json"

// PortfolioStore persists all user portfolios as one JSON array, replaced
// atomically on every save. The settlement engine owns the in-memory state;
// this store is pure persistence.
type PortfolioStore struct {
	mu   sync.Mutex
	path string
}

// NewPortfolioStore creates a store rooted at dataDir
func NewPortfolioStore(dataDir string) *PortfolioStore {
	return &PortfolioStore{path: filepath.Join(dataDir, portfoliosFileName)}
}

// Load reads all portfolios keyed by user ID. A missing file yields an
// empty map.
func (s *PortfolioStore) Load() (map[int]*domain.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*domain.Portfolio
	if _, err := readJSONFile(s.path, &list); err != nil {
		return nil, err
	}

	out := make(map[int]*domain.Portfolio, len(list))
	for _, p := range list {
		if p.Wallets == nil {
			p.Wallets = make(map[string]*domain.Wallet)
		}
		out[p.UserID] = p
	}
	return out, nil
}

// Save atomically replaces the portfolios file with the given set,
// ordered by user ID for a stable on-disk layout.
func (s *PortfolioStore) Save(portfolios map[int]*domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(portfolios))
	for id := range portfolios {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	list := make([]*domain.Portfolio, 0, len(ids))
	for _, id := range ids {
		list = append(list, portfolios[id])
	}
	return writeJSONAtomic(s.path, list)
}
