package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
	"valuta_go/internal/infra"
)

// CoinGecko fetches crypto rates against the base currency from the
// CoinGecko simple-price endpoint. No API key is required for the free tier.
type CoinGecko struct {
	baseURL      string
	base         string            // quote currency, e.g. "USD"
	idMap        map[string]string // currency code -> coingecko id
	requestDelay time.Duration
	client       *http.Client
}

// NewCoinGecko creates a CoinGecko provider for the given code->id map
func NewCoinGecko(baseURL, baseCurrency string, idMap map[string]string, timeout, requestDelay time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGecko{
		baseURL:      strings.TrimRight(baseURL, "/"),
		base:         domain.NormalizeCode(baseCurrency),
		idMap:        idMap,
		requestDelay: requestDelay,
		client:       &http.Client{Timeout: timeout},
	}
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// FetchRates returns pairs like {"BTC_USD": 59337.21} for every mapped
// currency the upstream knows about.
func (c *CoinGecko) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	// Courtesy delay to stay under the free-tier rate limit
	if c.requestDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.requestDelay):
		}
	}

	ids := make([]string, 0, len(c.idMap))
	for _, id := range c.idMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vs := strings.ToLower(c.base)
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, strings.Join(ids, ","), vs)

	// Response shape: {"bitcoin": {"usd": 59337.21}, ...}
	var data map[string]map[string]float64
	if err := doJSON(ctx, c.client, c.Name(), url, infra.DefaultUserAgent, &data); err != nil {
		return nil, err
	}

	rates := make(map[string]decimal.Decimal)
	for code, id := range c.idMap {
		quote, ok := data[id]
		if !ok {
			continue
		}
		price, ok := quote[vs]
		if !ok || price <= 0 {
			continue
		}
		rates[domain.PairKey(code, c.base)] = decimal.NewFromFloat(price)
	}

	if len(rates) == 0 {
		return nil, domain.NewProviderError(c.Name(), "no crypto rates in response", nil)
	}
	return rates, nil
}
