package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testConfigYAML = `
app:
  name: valuta-test
  version: "0.1"
api:
  coingecko:
    base_url: https://api.coingecko.com/api/v3
    id_map:
      BTC: bitcoin
      ETH: ethereum
  exchangerate:
    base_url: https://v6.exchangerate-api.com/v6
    api_key: file_key
rates:
  base_currency: USD
  fiat: [USD, EUR, GBP]
  crypto: [BTC, ETH]
  ttl_seconds: 300
  max_retries: 3
  retry_delay_seconds: 2
  request_timeout_seconds: 15
  update_interval_minutes: 5
  update_on_start: true
  history_max_records: 1000
trading:
  fee_percent: "0.1"
  min_trade_amount: "0.0001"
storage:
  data_dir: data
  backup_dir: backups
logging:
  level: info
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Rates.BaseCurrency != "USD" {
		t.Errorf("expected base USD, got %s", cfg.Rates.BaseCurrency)
	}
	if cfg.TTL() != 5*time.Minute {
		t.Errorf("expected TTL 5m, got %v", cfg.TTL())
	}
	if cfg.UpdateInterval() != 5*time.Minute {
		t.Errorf("expected interval 5m, got %v", cfg.UpdateInterval())
	}
	if !cfg.Trading.FeePercent.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected fee 0.1, got %s", cfg.Trading.FeePercent)
	}
	if cfg.API.CoinGecko.IDMap["BTC"] != "bitcoin" {
		t.Errorf("id map not parsed: %v", cfg.API.CoinGecko.IDMap)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("VALUTA_EXCHANGERATE_API_KEY", "env_key")

	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.API.ExchangeRate.APIKey != "env_key" {
		t.Errorf("env override not applied, got %s", cfg.API.ExchangeRate.APIKey)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base currency", func(c *Config) { c.Rates.BaseCurrency = "" }},
		{"no fiat", func(c *Config) { c.Rates.Fiat = nil }},
		{"no crypto", func(c *Config) { c.Rates.Crypto = nil }},
		{"zero ttl", func(c *Config) { c.Rates.TTLSeconds = 0 }},
		{"zero interval", func(c *Config) { c.Rates.UpdateIntervalMinutes = 0 }},
		{"negative fee", func(c *Config) { c.Trading.FeePercent = decimal.RequireFromString("-1") }},
		{"untracked id map entry", func(c *Config) { c.API.CoinGecko.IDMap["DOGE"] = "dogecoin" }},
	}

	for _, tc := range cases {
		cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
		if err != nil {
			t.Fatalf("%s: setup load failed: %v", tc.name, err)
		}
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}
}
