package expiration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ripplecache/ripplecache/pkg/expiration"
)

func TestFixedPolicyExpiresAfterLifetime(t *testing.T) {
	t.Parallel()

	policy := expiration.NewFixedPolicy(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, policy.IsExpired(expiration.Entry{HasTimestamp: true, Timestamp: now.Add(-30 * time.Minute)}, now))
	assert.True(t, policy.IsExpired(expiration.Entry{HasTimestamp: true, Timestamp: now.Add(-2 * time.Hour)}, now))
}

func TestFixedPolicyTreatsMissingTimestampAsFresh(t *testing.T) {
	t.Parallel()

	policy := expiration.NewFixedPolicy(time.Hour)
	assert.False(t, policy.IsExpired(expiration.Entry{HasTimestamp: false}, time.Now()))
}

func TestFixedPolicyFallsBackToDefaultLifetime(t *testing.T) {
	t.Parallel()

	policy := expiration.NewFixedPolicy(0)
	assert.Equal(t, expiration.DefaultLifetime, policy.Lifetime)
}

func TestNeverExpireIsAlwaysFresh(t *testing.T) {
	t.Parallel()

	assert.False(t, expiration.NeverExpire{}.IsExpired(
		expiration.Entry{HasTimestamp: true, Timestamp: time.Unix(0, 0)}, time.Now(),
	))
}
