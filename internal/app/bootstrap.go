// Package app wires configuration, storage, providers and services into a
// running process.
package app

import (
	"context"
	"log/slog"
	"sync"

	"valuta_go/internal/infra"
	"valuta_go/internal/infra/provider"
	"valuta_go/internal/infra/storage"
	"valuta_go/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Logger     *slog.Logger
	Metrics    *infra.Metrics
	Registry   *storage.CurrencyRegistry
	RateStore  *storage.RateStore
	Cache      *service.RateCache
	Scheduler  *service.Scheduler
	Engine     *service.SettlementEngine
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize builds every component in dependency order. Nothing here
// starts background work; the caller owns the scheduler and workers.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Valuta Go...")

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	b.Logger = logger
	b.Metrics = infra.NewMetrics()

	registry, err := storage.OpenCurrencyRegistry(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	b.Registry = registry
	slog.Info("✅ Currency registry ready")

	b.RateStore = storage.NewRateStore(
		cfg.Storage.DataDir,
		cfg.Storage.BackupDir,
		cfg.Rates.HistoryMaxRecords,
		cfg.TTL(),
	)

	providers := b.buildProviders()
	cache, err := service.NewRateCache(
		providers,
		b.RateStore,
		registry,
		b.Metrics,
		logger,
		cfg.Rates.BaseCurrency,
		cfg.TTL(),
		cfg.Rates.MaxRetries,
		cfg.RetryDelay(),
	)
	if err != nil {
		return err
	}
	b.Cache = cache
	slog.Info("✅ Rate cache ready", slog.Int("providers", len(providers)))

	b.Scheduler = service.NewScheduler(cache, cfg.UpdateInterval(), service.SchedulerCallbacks{
		OnComplete: func(r service.UpdateResult) {
			logger.Info("refresh cycle completed",
				slog.Int("total_rates", r.TotalRates),
				slog.Int("updated", len(r.UpdatedPairs)),
				slog.Duration("duration", r.Duration))
		},
		OnError: func(errs []string) {
			logger.Warn("refresh cycle failed", slog.Any("errors", errs))
		},
	}, logger)

	engine, err := service.NewSettlementEngine(
		cache,
		storage.NewPortfolioStore(cfg.Storage.DataDir),
		storage.NewTransactionStore(cfg.Storage.DataDir),
		registry,
		b.Metrics,
		logger,
		cfg.Trading.FeePercent,
		cfg.Trading.MinTradeAmount,
		cfg.Rates.BaseCurrency,
	)
	if err != nil {
		return err
	}
	b.Engine = engine
	slog.Info("✅ Settlement engine ready")

	downloader, err := infra.NewIconDownloader(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("✅ Icon downloader ready")

	return nil
}

// buildProviders assembles the provider chain in priority order:
// CoinGecko for crypto, ExchangeRate-API for fiat. A provider missing its
// configuration is skipped.
func (b *Bootstrap) buildProviders() []provider.RateProvider {
	cfg := b.Config
	var providers []provider.RateProvider

	if cfg.API.CoinGecko.BaseURL != "" && len(cfg.API.CoinGecko.IDMap) > 0 {
		providers = append(providers, provider.NewCoinGecko(
			cfg.API.CoinGecko.BaseURL,
			cfg.Rates.BaseCurrency,
			cfg.API.CoinGecko.IDMap,
			cfg.RequestTimeout(),
			cfg.CoinGeckoRequestDelay(),
		))
	}

	if cfg.API.ExchangeRate.BaseURL != "" && cfg.API.ExchangeRate.APIKey != "" {
		providers = append(providers, provider.NewExchangeRateAPI(
			cfg.API.ExchangeRate.BaseURL,
			cfg.API.ExchangeRate.APIKey,
			cfg.Rates.BaseCurrency,
			cfg.Rates.Fiat,
			cfg.RequestTimeout(),
		))
	}

	if len(providers) == 0 {
		slog.Warn("no providers configured, falling back to mock rates")
		providers = append(providers, provider.NewMock("mock", provider.DefaultMockRates()))
	}
	return providers
}

// SyncAssets downloads currency icons in the background and records their
// paths in the registry.
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	slog.Info("🔄 Starting asset synchronization...")

	currencies, err := b.Registry.All()
	if err != nil {
		slog.Error("Failed to list currencies", slog.Any("error", err))
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, c := range currencies {
		if c.IconPath != "" {
			continue
		}
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			path, err := b.Downloader.DownloadIcon(code)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("code", code), slog.Any("error", err))
				return
			}
			if path == "" {
				return
			}
			if err := b.Registry.SetIconPath(code, path); err != nil {
				slog.Error("Failed to record icon path", slog.String("code", code), slog.Any("error", err))
			}
		}(c.Code)
	}

	wg.Wait()
	slog.Info("✨ Asset synchronization completed")
}
