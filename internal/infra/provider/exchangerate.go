package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
	"valuta_go/internal/infra"
)

// ExchangeRateAPI fetches fiat rates from ExchangeRate-API
// (https://v6.exchangerate-api.com). Requires an API key.
type ExchangeRateAPI struct {
	baseURL string
	apiKey  string
	base    string
	tracked map[string]bool // fiat codes to keep from the response
	client  *http.Client
}

// NewExchangeRateAPI creates a fiat provider tracking the given currency codes
func NewExchangeRateAPI(baseURL, apiKey, baseCurrency string, tracked []string, timeout time.Duration) *ExchangeRateAPI {
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}
	set := make(map[string]bool, len(tracked))
	for _, code := range tracked {
		set[domain.NormalizeCode(code)] = true
	}
	return &ExchangeRateAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		base:    domain.NormalizeCode(baseCurrency),
		tracked: set,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *ExchangeRateAPI) Name() string {
	return "exchangerate"
}

type exchangeRateResponse struct {
	Result    string             `json:"result"`
	ErrorType string             `json:"error-type"`
	BaseCode  string             `json:"base_code"`
	Rates     map[string]float64 `json:"conversion_rates"`
}

// FetchRates returns pairs like {"EUR_USD": 0.9271} for every tracked fiat
// currency. The upstream quotes base->currency; rates are inverted so the
// pair reads currency->base like the crypto provider.
func (c *ExchangeRateAPI) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, c.base)

	var data exchangeRateResponse
	if err := doJSON(ctx, c.client, c.Name(), url, infra.DefaultUserAgent, &data); err != nil {
		return nil, err
	}

	if data.Result != "success" {
		reason := data.ErrorType
		if reason == "" {
			reason = "unknown"
		}
		return nil, &domain.ProviderError{Source: c.Name(), Reason: "upstream error: " + reason}
	}

	base := data.BaseCode
	if base == "" {
		base = c.base
	}

	rates := make(map[string]decimal.Decimal)
	for code, rate := range data.Rates {
		code = domain.NormalizeCode(code)
		if code == base || !c.tracked[code] || rate <= 0 {
			continue
		}
		// Upstream rate is base->code; store code->base
		inverted := decimal.NewFromInt(1).Div(decimal.NewFromFloat(rate))
		rates[domain.PairKey(code, base)] = inverted
	}

	if len(rates) == 0 {
		return nil, domain.NewProviderError(c.Name(), "no fiat rates in response", nil)
	}
	return rates, nil
}
