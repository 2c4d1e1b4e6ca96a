package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ProviderError represents a failure while talking to an upstream rate source.
// Rate-limit and network failures are retriable; auth and not-found are not.
type ProviderError struct {
	Source     string // Provider name (e.g., "coingecko")
	Reason     string
	StatusCode int           // 0 when the request never reached the upstream
	RetryAfter time.Duration // from the Retry-After header, 0 when absent
	Retriable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s: %s", e.Source, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	return msg
}

func (e *ProviderError) IsRetriable() bool {
	return e.Retriable
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a retriable provider error
func NewProviderError(source, reason string, err error) *ProviderError {
	return &ProviderError{Source: source, Reason: reason, Retriable: true, Err: err}
}

// NewProviderStatusError creates a provider error from an HTTP status code.
// 429 and 5xx are retriable, other client errors are not.
func NewProviderStatusError(source, reason string, statusCode int) *ProviderError {
	retriable := statusCode == 429 || statusCode >= 500
	return &ProviderError{Source: source, Reason: reason, StatusCode: statusCode, Retriable: retriable}
}

// InsufficientFundsError is returned when a withdraw or trade exceeds the
// available wallet balance. No mutation has happened when this is returned.
type InsufficientFundsError struct {
	Currency  string
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s %s, required %s %s",
		e.Available.String(), e.Currency, e.Required.String(), e.Currency)
}

// CurrencyNotFoundError is returned on a registry lookup miss
type CurrencyNotFoundError struct {
	Code string
}

func (e *CurrencyNotFoundError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Code)
}

// InvalidAmountError is returned when an amount is zero, negative, or below
// the configured minimum trade amount.
type InvalidAmountError struct {
	Amount decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid amount %s: %s", e.Amount.String(), e.Reason)
	}
	return fmt.Sprintf("invalid amount %s: amount must be positive", e.Amount.String())
}

// StorageError represents a failure of the file-backed stores. Write failures
// abort the enclosing operation; a missing file on read does not produce this
// error (stores degrade to empty defaults instead).
type StorageError struct {
	Op   string // "read", "write", "backup"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var (
	// ErrRateUnavailable is returned when no direct, inverse, or derivable
	// rate exists for a pair after all retries.
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrInvalidPair is returned when a pair key is malformed
	ErrInvalidPair = errors.New("invalid currency pair")
)
