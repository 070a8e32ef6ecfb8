package circuitbreaker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ripplecache/ripplecache/pkg/circuitbreaker"
)

func TestRegistryIsolatesBreakersByKey(t *testing.T) {
	t.Parallel()

	reg := circuitbreaker.NewRegistry(2, time.Minute)

	a := reg.For("example.org")
	a.RecordFailure()
	a.RecordFailure()

	assert.True(t, reg.For("example.org").IsOpen())
	assert.False(t, reg.For("other.example").IsOpen())
}

func TestRegistryReturnsSameBreakerForSameKey(t *testing.T) {
	t.Parallel()

	reg := circuitbreaker.NewRegistry(5, time.Minute)

	assert.Same(t, reg.For("host"), reg.For("host"))
}
