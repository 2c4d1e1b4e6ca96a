package infra

import "time"

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential reconnect delay for a retry count:
// 1s, 2s, 4s, ... capped at 60s. Used by the streaming worker.
func CalculateBackoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	delay := baseDelay << uint(retry)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// FetchRetryDelay returns the delay before fetch attempt n (1-based):
// base, 2*base, 3*base. Used by the rate cache retry policy.
func FetchRetryDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}
