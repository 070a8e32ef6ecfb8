package redis

import (
	"strings"
	"sync"
	"time"
)

// circuitBreaker trips after a run of connection failures so callers in
// degraded mode stop retrying a dead Redis endpoint on every lock attempt.
type circuitBreaker struct {
	mu               sync.Mutex
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time
	open             bool
}

func newCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailure = time.Now()

	if cb.failureCount >= cb.failureThreshold {
		cb.open = true
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.open = false
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.open && time.Since(cb.lastFailure) > cb.resetTimeout {
		cb.open = false
		cb.failureCount = 0
	}

	return cb.open
}

// isConnectionError reports whether err looks like a network-level failure
// rather than ordinary lock contention.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	s := err.Error()

	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "i/o timeout") ||
		strings.Contains(s, "no such host")
}
