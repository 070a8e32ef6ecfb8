package lock

import (
	"math"
	mathrand "math/rand"
	"time"
)

// CalculateBackoff returns how long redis.Locker should wait before retry
// number attempt (0-indexed; attempt 0 is the initial try and never
// delays). Delay doubles per retry from cfg.InitialDelay, caps at
// cfg.MaxDelay, and gets jitter applied when cfg.Jitter is set.
func CalculateBackoff(cfg RetryConfig, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := cfg.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))

	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if cfg.Jitter {
		factor := cfg.GetJitterFactor()

		// The global math/rand source is safe for concurrent callers
		// retrying against the same Redis lock from different goroutines.
		//nolint:gosec // jitter doesn't need crypto-grade randomness
		jitter := mathrand.Float64() * float64(delay) * factor
		delay += time.Duration(jitter)
	}

	return delay
}
