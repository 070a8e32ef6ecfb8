package circuitbreaker

import (
	"sync"
	"time"
)

// Registry hands out a CircuitBreaker per key, lazily creating one on first
// use. It lets a dereferencer track upstream health per host without every
// caller having to pre-provision breakers for hosts it hasn't seen yet:
// each host starts closed, trips to open after a run of consecutive
// failures against it, and moves to half-open once its own cooldown
// elapses, independently of every other host's breaker.
type Registry struct {
	threshold int
	timeout   time.Duration

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a Registry whose breakers use the given threshold and
// open-duration timeout.
func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		threshold: threshold,
		timeout:   timeout,
		breakers:  make(map[string]*CircuitBreaker),
	}
}

// For reports the circuit breaker for key, creating it on first access.
func (r *Registry) For(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[key]
	if !ok {
		cb = New(r.threshold, r.timeout)
		r.breakers[key] = cb
	}

	return cb
}
