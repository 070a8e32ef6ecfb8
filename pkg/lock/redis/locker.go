package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	goredislib "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ripplecache/ripplecache/pkg/lock"
	"github.com/ripplecache/ripplecache/pkg/lock/local"
)

// Locker implements lock.Locker using Redis via the Redlock algorithm.
type Locker struct {
	client            redis.UniversalClient
	redsync           *redsync.Redsync
	keyPrefix         string
	retryConfig       lock.RetryConfig
	allowDegradedMode bool

	mu      sync.Mutex
	mutexes map[string]*redsync.Mutex

	fallbackLocker lock.Locker
	circuitBreaker *circuitBreaker

	acquisitionTimes sync.Map
}

// NewLocker connects to Redis and returns a lock.Locker backed by Redlock.
// When allowDegradedMode is true and Redis cannot be reached, NewLocker
// returns a local.Locker instead of failing outright.
func NewLocker(ctx context.Context, cfg Config, retryCfg lock.RetryConfig, allowDegradedMode bool) (lock.Locker, error) {
	if len(cfg.Addrs) == 0 {
		return nil, ErrNoRedisAddrs
	}

	client := newUniversalClient(cfg)

	if err := client.Ping(ctx).Err(); err != nil {
		if allowDegradedMode {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("redis unavailable, running in degraded mode with local locks")

			return local.NewLocker(), nil
		}

		return nil, fmt.Errorf("redis: connecting: %w", err)
	}

	rs := redsync.New(goredislib.NewPool(client))

	return &Locker{
		client:            client,
		redsync:           rs,
		keyPrefix:         keyPrefixOrDefault(cfg.KeyPrefix),
		retryConfig:       retryCfg,
		allowDegradedMode: allowDegradedMode,
		mutexes:           make(map[string]*redsync.Mutex),
		fallbackLocker:    local.NewLocker(),
		circuitBreaker:    newCircuitBreaker(circuitBreakerFailureThreshold, circuitBreakerResetTimeout),
	}, nil
}

// Lock acquires an exclusive lock, retrying with exponential backoff on contention.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) error {
	if l.circuitBreaker.isOpen() {
		if l.allowDegradedMode {
			zerolog.Ctx(ctx).Warn().Str("key", key).Msg("circuit breaker open, falling back to local lock")

			return l.fallbackLocker.Lock(ctx, key, ttl)
		}

		return ErrCircuitBreakerOpen
	}

	lockKey := l.keyPrefix + key

	var lastErr error

	for attempt := 0; attempt < l.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			lock.RecordLockRetryAttempt(ctx, lock.LockTypeExclusive)

			select {
			case <-ctx.Done():
				lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureContextCanceled)

				return ctx.Err()
			case <-time.After(lock.CalculateBackoff(l.retryConfig, attempt)):
			}
		}

		mutex := l.redsync.NewMutex(lockKey, redsync.WithExpiry(ttl), redsync.WithTries(1))

		if err := mutex.LockContext(ctx); err != nil {
			lastErr = err

			if isConnectionError(err) {
				l.circuitBreaker.recordFailure()

				if l.circuitBreaker.isOpen() && l.allowDegradedMode {
					lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureCircuitBreaker)

					return l.fallbackLocker.Lock(ctx, key, ttl)
				}
			}

			if errors.Is(err, redsync.ErrFailed) {
				continue
			}

			lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureRedisError)

			return fmt.Errorf("redis: acquiring lock %q: %w", key, err)
		}

		l.mu.Lock()
		l.mutexes[key] = mutex
		l.mu.Unlock()

		l.circuitBreaker.recordSuccess()
		l.acquisitionTimes.Store(key, time.Now())
		lock.RecordLockAcquisition(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockResultSuccess)

		return nil
	}

	lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureMaxRetries)

	return fmt.Errorf("redis: lock %q not acquired after %d attempts: %w", key, l.retryConfig.MaxAttempts, lastErr)
}

// Unlock releases an exclusive lock. A failed release is logged and
// swallowed since the lock still expires via its TTL.
func (l *Locker) Unlock(ctx context.Context, key string) error {
	if val, ok := l.acquisitionTimes.LoadAndDelete(key); ok {
		if start, ok := val.(time.Time); ok {
			lock.RecordLockDuration(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, time.Since(start).Seconds())
		}
	}

	if l.circuitBreaker.isOpen() && l.allowDegradedMode {
		return l.fallbackLocker.Unlock(ctx, key)
	}

	l.mu.Lock()
	mutex, ok := l.mutexes[key]
	delete(l.mutexes, key)
	l.mu.Unlock()

	if !ok {
		return nil
	}

	if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to release distributed lock, will expire via TTL")
	}

	return nil
}

// TryLock attempts to acquire an exclusive lock with a single attempt, no retries.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.circuitBreaker.isOpen() {
		lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureCircuitBreaker)

		if l.allowDegradedMode {
			return l.fallbackLocker.TryLock(ctx, key, ttl)
		}

		return false, ErrCircuitBreakerOpen
	}

	mutex := l.redsync.NewMutex(l.keyPrefix+key, redsync.WithExpiry(ttl), redsync.WithTries(1))

	err := mutex.LockContext(ctx)
	if errors.Is(err, redsync.ErrFailed) {
		lock.RecordLockAcquisition(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockResultContention)

		return false, nil
	}

	if err != nil {
		if isConnectionError(err) {
			l.circuitBreaker.recordFailure()

			if l.circuitBreaker.isOpen() && l.allowDegradedMode {
				return l.fallbackLocker.TryLock(ctx, key, ttl)
			}
		}

		lock.RecordLockFailure(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockFailureRedisError)

		return false, fmt.Errorf("redis: trying lock %q: %w", key, err)
	}

	l.mu.Lock()
	l.mutexes[key] = mutex
	l.mu.Unlock()

	l.circuitBreaker.recordSuccess()
	l.acquisitionTimes.Store(key, time.Now())
	lock.RecordLockAcquisition(ctx, lock.LockTypeExclusive, lock.LockModeDistributed, lock.LockResultSuccess)

	return true, nil
}

func newUniversalClient(cfg Config) redis.UniversalClient {
	if len(cfg.Addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			PoolSize: cfg.PoolSize,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addrs[0],
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
