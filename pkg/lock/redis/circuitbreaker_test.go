package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := newCircuitBreaker(3, time.Minute)

	assert.False(t, cb.isOpen())

	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.isOpen())

	cb.recordFailure()
	assert.True(t, cb.isOpen())
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	t.Parallel()

	cb := newCircuitBreaker(2, time.Minute)

	cb.recordFailure()
	cb.recordFailure()
	assert.True(t, cb.isOpen())

	cb.recordSuccess()
	assert.False(t, cb.isOpen())
}

func TestCircuitBreakerRecoversAfterResetTimeout(t *testing.T) {
	t.Parallel()

	cb := newCircuitBreaker(1, time.Millisecond)

	cb.recordFailure()
	assert.True(t, cb.isOpen())

	time.Sleep(5 * time.Millisecond)
	assert.False(t, cb.isOpen())
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(&netErr{"dial tcp: connection refused"}))
	assert.True(t, isConnectionError(&netErr{"read: connection reset by peer"}))
	assert.False(t, isConnectionError(&netErr{"WRONGTYPE operation"}))
}

type netErr struct{ msg string }

func (e *netErr) Error() string { return e.msg }
