package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"valuta_go/internal/domain"
)

// CurrencyRegistry stores currency metadata in a pure-Go sqlite database.
// It is the validation authority for every currency code the cache and the
// settlement engine accept.
type CurrencyRegistry struct {
	db *gorm.DB
}

// OpenCurrencyRegistry opens (or creates) the registry DB under dataDir and
// seeds the default currency set on first run.
func OpenCurrencyRegistry(dataDir string) (*CurrencyRegistry, error) {
	dbPath := filepath.Join(dataDir, "registry.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Currency{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registry database: %w", err)
	}

	r := &CurrencyRegistry{db: db}
	if err := r.seedIfEmpty(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CurrencyRegistry) seedIfEmpty() error {
	var count int64
	if err := r.db.Model(&domain.Currency{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count currencies: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, c := range domain.DefaultCurrencies() {
		c.CreatedAt = time.Now()
		c.UpdatedAt = time.Now()
		if err := r.db.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to seed currency %s: %w", c.Code, err)
		}
	}
	return nil
}

// Get retrieves a currency by code. Returns CurrencyNotFoundError on miss.
func (r *CurrencyRegistry) Get(code string) (*domain.Currency, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, &domain.CurrencyNotFoundError{Code: code}
	}

	var c domain.Currency
	err := r.db.First(&c, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.CurrencyNotFoundError{Code: code}
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports whether a code names a registered, active currency
func (r *CurrencyRegistry) Validate(code string) bool {
	c, err := r.Get(code)
	return err == nil && c.IsActive
}

// DisplayInfo renders the registered currency for UI/logs.
// Fails with CurrencyNotFoundError on a lookup miss.
func (r *CurrencyRegistry) DisplayInfo(code string) (string, error) {
	c, err := r.Get(code)
	if err != nil {
		return "", err
	}
	return c.DisplayInfo(), nil
}

// All returns every registered currency ordered by code
func (r *CurrencyRegistry) All() ([]domain.Currency, error) {
	var list []domain.Currency
	err := r.db.Order("code").Find(&list).Error
	return list, err
}

// Register adds a new currency. Fails if the code is malformed or taken.
func (r *CurrencyRegistry) Register(c domain.Currency) error {
	c.Code = domain.NormalizeCode(c.Code)
	if !domain.ValidCode(c.Code) {
		return fmt.Errorf("invalid currency code %q", c.Code)
	}
	if existing, err := r.Get(c.Code); err == nil && existing != nil {
		return fmt.Errorf("currency %s already registered", c.Code)
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	return r.db.Create(&c).Error
}

// SetIconPath updates the cached icon location for a currency
func (r *CurrencyRegistry) SetIconPath(code, path string) error {
	c, err := r.Get(code)
	if err != nil {
		return err
	}
	c.IconPath = path
	c.UpdatedAt = time.Now()
	return r.db.Save(c).Error
}
