package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ripplecache/ripplecache/pkg/lock"
	"github.com/ripplecache/ripplecache/pkg/lock/local"
)

// RWLocker implements lock.RWLocker on top of Redis. A writer key gives
// exclusive access; a hash of reader-id -> expiration timestamp tracks
// concurrent readers so a writer can wait for them to drain.
type RWLocker struct {
	client            redis.UniversalClient
	keyPrefix         string
	retryConfig       lock.RetryConfig
	allowDegradedMode bool

	readerIDMu sync.Mutex
	readerID   string

	fallbackLocker lock.RWLocker
	circuitBreaker *circuitBreaker

	writeAcquisitionTimes sync.Map
}

// NewRWLocker connects to Redis and returns a lock.RWLocker.
func NewRWLocker(ctx context.Context, cfg Config, retryCfg lock.RetryConfig, allowDegradedMode bool) (lock.RWLocker, error) {
	if len(cfg.Addrs) == 0 {
		return nil, ErrNoRedisAddrs
	}

	client := newUniversalClient(cfg)

	if err := client.Ping(ctx).Err(); err != nil {
		if allowDegradedMode {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("redis unavailable, running in degraded mode with local locks")

			return local.NewRWLocker(), nil
		}

		return nil, fmt.Errorf("redis: connecting: %w", err)
	}

	return &RWLocker{
		client:            client,
		keyPrefix:         keyPrefixOrDefault(cfg.KeyPrefix),
		retryConfig:       retryCfg,
		allowDegradedMode: allowDegradedMode,
		fallbackLocker:    local.NewRWLocker(),
		circuitBreaker:    newCircuitBreaker(circuitBreakerFailureThreshold, circuitBreakerResetTimeout),
	}, nil
}

func (rw *RWLocker) writerKey(key string) string  { return fmt.Sprintf("%s{%s}:writer", rw.keyPrefix, key) }
func (rw *RWLocker) readersKey(key string) string { return fmt.Sprintf("%s{%s}:readers", rw.keyPrefix, key) }

// Lock acquires an exclusive write lock, waiting for any active readers to drain.
func (rw *RWLocker) Lock(ctx context.Context, key string, ttl time.Duration) error {
	if rw.circuitBreaker.isOpen() {
		lock.RecordLockFailure(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockFailureCircuitBreaker)

		if rw.allowDegradedMode {
			return rw.fallbackLocker.Lock(ctx, key, ttl)
		}

		return ErrCircuitBreakerOpen
	}

	writerKey, readersKey := rw.writerKey(key), rw.readersKey(key)

	var lastErr error

	for attempt := 0; attempt < rw.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			lock.RecordLockRetryAttempt(ctx, lock.LockTypeWrite)

			select {
			case <-ctx.Done():
				lock.RecordLockFailure(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockFailureContextCanceled)

				return ctx.Err()
			case <-time.After(lock.CalculateBackoff(rw.retryConfig, attempt)):
			}
		}

		ok, err := rw.client.SetNX(ctx, writerKey, "1", ttl).Result()
		if err != nil {
			lastErr = err

			if isConnectionError(err) {
				rw.circuitBreaker.recordFailure()

				if rw.circuitBreaker.isOpen() && rw.allowDegradedMode {
					return rw.fallbackLocker.Lock(ctx, key, ttl)
				}
			}

			continue
		}

		if !ok {
			lastErr = ErrWriteLockHeld

			continue
		}

		if err := rw.drainReaders(ctx, readersKey, ttl); err != nil {
			rw.client.Del(ctx, writerKey)

			lastErr = err

			if err == ErrReadersTimeout {
				continue
			}

			return err
		}

		rw.circuitBreaker.recordSuccess()
		rw.writeAcquisitionTimes.Store(key, time.Now())
		lock.RecordLockAcquisition(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockResultSuccess)

		return nil
	}

	lock.RecordLockFailure(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockFailureMaxRetries)

	return fmt.Errorf("redis: write lock %q not acquired after %d attempts: %w", key, rw.retryConfig.MaxAttempts, lastErr)
}

// drainReaders waits until the readers hash has no unexpired entries.
func (rw *RWLocker) drainReaders(ctx context.Context, readersKey string, ttl time.Duration) error {
	deadline := time.Now().Add(ttl)

	for {
		active, err := rw.countActiveReaders(ctx, readersKey)
		if err != nil {
			return fmt.Errorf("redis: checking readers: %w", err)
		}

		if active == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrReadersTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (rw *RWLocker) countActiveReaders(ctx context.Context, readersKey string) (int, error) {
	readers, err := rw.client.HGetAll(ctx, readersKey).Result()
	if err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	active := 0

	for readerID, expiresAtStr := range readers {
		expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
		if err != nil || expiresAt.Unix() <= now {
			rw.client.HDel(ctx, readersKey, readerID)

			continue
		}

		active++
	}

	return active, nil
}

// Unlock releases an exclusive write lock.
func (rw *RWLocker) Unlock(ctx context.Context, key string) error {
	if val, ok := rw.writeAcquisitionTimes.LoadAndDelete(key); ok {
		if start, ok := val.(time.Time); ok {
			lock.RecordLockDuration(ctx, lock.LockTypeWrite, lock.LockModeDistributed, time.Since(start).Seconds())
		}
	}

	if rw.circuitBreaker.isOpen() && rw.allowDegradedMode {
		return rw.fallbackLocker.Unlock(ctx, key)
	}

	return rw.client.Del(ctx, rw.writerKey(key)).Err()
}

// TryLock attempts to acquire an exclusive write lock without blocking for readers to drain.
func (rw *RWLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if rw.circuitBreaker.isOpen() {
		if rw.allowDegradedMode {
			return rw.fallbackLocker.TryLock(ctx, key, ttl)
		}

		return false, ErrCircuitBreakerOpen
	}

	writerKey, readersKey := rw.writerKey(key), rw.readersKey(key)

	ok, err := rw.client.SetNX(ctx, writerKey, "1", ttl).Result()
	if err != nil {
		if isConnectionError(err) {
			rw.circuitBreaker.recordFailure()

			if rw.circuitBreaker.isOpen() && rw.allowDegradedMode {
				return rw.fallbackLocker.TryLock(ctx, key, ttl)
			}
		}

		return false, fmt.Errorf("redis: trying write lock %q: %w", key, err)
	}

	if !ok {
		lock.RecordLockAcquisition(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockResultContention)

		return false, nil
	}

	active, err := rw.countActiveReaders(ctx, readersKey)
	if err != nil {
		rw.client.Del(ctx, writerKey)

		return false, fmt.Errorf("redis: checking readers: %w", err)
	}

	if active > 0 {
		rw.client.Del(ctx, writerKey)
		lock.RecordLockAcquisition(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockResultContention)

		return false, nil
	}

	rw.circuitBreaker.recordSuccess()
	rw.writeAcquisitionTimes.Store(key, time.Now())
	lock.RecordLockAcquisition(ctx, lock.LockTypeWrite, lock.LockModeDistributed, lock.LockResultSuccess)

	return true, nil
}

// RLock acquires a shared read lock, waiting for any active writer to release.
func (rw *RWLocker) RLock(ctx context.Context, key string, ttl time.Duration) error {
	if rw.circuitBreaker.isOpen() {
		if rw.allowDegradedMode {
			return rw.fallbackLocker.RLock(ctx, key, ttl)
		}

		return ErrCircuitBreakerOpen
	}

	readersKey, writerKey := rw.readersKey(key), rw.writerKey(key)
	readerID := rw.getOrCreateReaderID()
	deadline := time.Now().Add(ttl)

	for {
		exists, err := rw.client.Exists(ctx, writerKey).Result()
		if err != nil {
			if isConnectionError(err) {
				rw.circuitBreaker.recordFailure()

				if rw.circuitBreaker.isOpen() && rw.allowDegradedMode {
					return rw.fallbackLocker.RLock(ctx, key, ttl)
				}
			}

			return fmt.Errorf("redis: checking writer lock: %w", err)
		}

		if exists == 0 {
			break
		}

		if time.Now().After(deadline) {
			return ErrWriteLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}

	expiresAt := time.Now().Add(ttl).Format(time.RFC3339)
	if err := rw.client.HSet(ctx, readersKey, readerID, expiresAt).Err(); err != nil {
		return fmt.Errorf("redis: acquiring read lock: %w", err)
	}

	rw.circuitBreaker.recordSuccess()
	lock.RecordLockAcquisition(ctx, lock.LockTypeRead, lock.LockModeDistributed, lock.LockResultSuccess)

	return nil
}

// RUnlock releases a shared read lock.
func (rw *RWLocker) RUnlock(ctx context.Context, key string) error {
	if rw.circuitBreaker.isOpen() && rw.allowDegradedMode {
		return rw.fallbackLocker.RUnlock(ctx, key)
	}

	return rw.client.HDel(ctx, rw.readersKey(key), rw.getOrCreateReaderID()).Err()
}

func (rw *RWLocker) getOrCreateReaderID() string {
	rw.readerIDMu.Lock()
	defer rw.readerIDMu.Unlock()

	if rw.readerID == "" {
		b := make([]byte, 16)
		_, _ = rand.Read(b)
		rw.readerID = hex.EncodeToString(b)
	}

	return rw.readerID
}
