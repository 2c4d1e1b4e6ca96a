package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent identifies outbound requests to rate providers
const DefaultUserAgent = "ValutaGo/1.0"

// Config holds all application settings. Sensitive values are overridden
// from environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			BaseURL        string            `yaml:"base_url"`
			APIKey         string            `yaml:"api_key"`
			IDMap          map[string]string `yaml:"id_map"`
			RequestDelayMS int               `yaml:"request_delay_ms"`
		} `yaml:"coingecko"`
		ExchangeRate struct {
			BaseURL string `yaml:"base_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"exchangerate"`
		Stream struct {
			Enabled bool     `yaml:"enabled"`
			WSURL   string   `yaml:"ws_url"`
			Pairs   []string `yaml:"pairs"`
		} `yaml:"stream"`
	} `yaml:"api"`

	Rates struct {
		BaseCurrency          string   `yaml:"base_currency"`
		Fiat                  []string `yaml:"fiat"`
		Crypto                []string `yaml:"crypto"`
		TTLSeconds            int      `yaml:"ttl_seconds"`
		MaxRetries            int      `yaml:"max_retries"`
		RetryDelaySeconds     int      `yaml:"retry_delay_seconds"`
		RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
		UpdateIntervalMinutes int      `yaml:"update_interval_minutes"`
		UpdateOnStart         bool     `yaml:"update_on_start"`
		HistoryMaxRecords     int      `yaml:"history_max_records"`
	} `yaml:"rates"`

	Trading struct {
		FeePercent     decimal.Decimal `yaml:"fee_percent"`
		MinTradeAmount decimal.Decimal `yaml:"min_trade_amount"`
	} `yaml:"trading"`

	Storage struct {
		DataDir   string `yaml:"data_dir"`
		BackupDir string `yaml:"backup_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Rates.BaseCurrency == "" {
		return fmt.Errorf("base currency is required")
	}
	if len(c.Rates.Fiat) == 0 {
		return fmt.Errorf("at least one fiat currency is required")
	}
	if len(c.Rates.Crypto) == 0 {
		return fmt.Errorf("at least one crypto currency is required")
	}
	if c.Rates.TTLSeconds <= 0 {
		return fmt.Errorf("rate TTL must be positive")
	}
	if c.Rates.UpdateIntervalMinutes <= 0 {
		return fmt.Errorf("update interval must be positive")
	}
	if c.Rates.HistoryMaxRecords <= 0 {
		return fmt.Errorf("history max records must be positive")
	}
	if c.Trading.FeePercent.IsNegative() {
		return fmt.Errorf("fee percent cannot be negative")
	}
	if c.Trading.MinTradeAmount.IsNegative() {
		return fmt.Errorf("minimum trade amount cannot be negative")
	}
	for code := range c.API.CoinGecko.IDMap {
		found := false
		for _, tracked := range c.Rates.Crypto {
			if tracked == code {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("coingecko id map references untracked currency %s", code)
		}
	}
	return nil
}

// overrideWithEnv replaces sensitive settings from environment variables
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("VALUTA_EXCHANGERATE_API_KEY"); key != "" {
		cfg.API.ExchangeRate.APIKey = key
	}
	if key := os.Getenv("VALUTA_COINGECKO_API_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
}

// TTL returns the rate freshness window as a duration
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Rates.TTLSeconds) * time.Second
}

// RetryDelay returns the base delay between fetch retries
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Rates.RetryDelaySeconds) * time.Second
}

// RequestTimeout returns the outbound request timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Rates.RequestTimeoutSeconds) * time.Second
}

// UpdateInterval returns the scheduler refresh interval
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Rates.UpdateIntervalMinutes) * time.Minute
}

// CoinGeckoRequestDelay returns the courtesy delay before CoinGecko calls
func (c *Config) CoinGeckoRequestDelay() time.Duration {
	return time.Duration(c.API.CoinGecko.RequestDelayMS) * time.Millisecond
}
