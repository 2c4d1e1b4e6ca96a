package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second},  // capped
		{20, 60 * time.Second}, // capped
		{-1, 1 * time.Second},
	}

	for _, tc := range cases {
		if got := CalculateBackoff(tc.retry); got != tc.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}

func TestFetchRetryDelay(t *testing.T) {
	base := 2 * time.Second

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 6 * time.Second},
		{0, 2 * time.Second}, // clamped to first attempt
	}

	for _, tc := range cases {
		if got := FetchRetryDelay(tc.attempt, base); got != tc.want {
			t.Errorf("FetchRetryDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
