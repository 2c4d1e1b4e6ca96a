package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProviderError_Retriable(t *testing.T) {
	cases := []struct {
		status    int
		retriable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{401, false},
		{403, false},
		{404, false},
	}

	for _, tc := range cases {
		err := NewProviderStatusError("coingecko", "request failed", tc.status)
		if IsRetriable(err) != tc.retriable {
			t.Errorf("status %d: IsRetriable = %v, want %v", tc.status, IsRetriable(err), tc.retriable)
		}
	}
}

func TestProviderError_WrappedRetriable(t *testing.T) {
	inner := NewProviderError("exchangerate", "connection refused", errors.New("dial tcp"))
	wrapped := fmt.Errorf("refresh failed: %w", inner)

	if !IsRetriable(wrapped) {
		t.Error("retriable flag lost through wrapping")
	}

	var pe *ProviderError
	if !errors.As(wrapped, &pe) {
		t.Fatal("ProviderError not recoverable through wrapping")
	}
	if pe.Source != "exchangerate" {
		t.Errorf("expected source exchangerate, got %s", pe.Source)
	}
}

func TestIsRetriable_PlainError(t *testing.T) {
	if IsRetriable(errors.New("boom")) {
		t.Error("plain error reported as retriable")
	}
	if IsRetriable(ErrRateUnavailable) {
		t.Error("ErrRateUnavailable reported as retriable")
	}
}

func TestInsufficientFundsError_Message(t *testing.T) {
	err := &InsufficientFundsError{Currency: "BTC", Available: dec("0.01"), Required: dec("1")}
	msg := err.Error()
	for _, want := range []string{"BTC", "0.01", "1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
