// Package provider contains the pluggable upstream rate sources consumed by
// the rate cache. Each provider fetches a batch of pair->rate quotes from one
// upstream and fails independently of the others.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
)

// RateProvider fetches a batch of currency-pair rates from one upstream
// source. Implementations must honor the context deadline; retrying is the
// caller's responsibility.
type RateProvider interface {
	Name() string
	FetchRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

// doJSON performs a GET request and decodes the JSON body into out.
// Converts transport and status failures into typed ProviderErrors.
func doJSON(ctx context.Context, client *http.Client, name, url, userAgent string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewProviderError(name, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewProviderError(name, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		perr := domain.NewProviderStatusError(name, "unexpected response", resp.StatusCode)
		perr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return perr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewProviderError(name, "read body", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ProviderError{
			Source: name,
			Reason: fmt.Sprintf("malformed payload: %v", err),
		}
	}
	return nil
}

// parseRetryAfter reads a Retry-After value in either delay-seconds or
// HTTP-date form. Returns 0 when the header is absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
