// Package lock abstracts the mutual exclusion the metadata index needs
// around a graph IRI's retrieve-or-fetch decision (pkg/memo's
// indexLockKey) and, behind pkg/lock/redis, across a fleet of ripplecache
// instances sharing one triple store. Single-instance deployments get
// sync.Mutex/sync.RWMutex via pkg/lock/local; multi-instance deployments
// get Redis Redlock via pkg/lock/redis.
package lock

import (
	"context"
	"time"
)

// Locker serialises access to whatever a key names — for this module,
// almost always the shared metadata index, never a per-graph-IRI
// partition (see pkg/memo's indexLockKey for why).
type Locker interface {
	// Lock blocks until the named key is held exclusively or ctx is
	// done. Local implementations hold one mutex per key, ignore ttl,
	// and do not return early when ctx is done. The Redis implementation
	// uses ttl as the lock's expiry, makes up to RetryConfig.MaxAttempts
	// acquisition attempts with backoff between them, and returns an
	// error once they are exhausted.
	Lock(ctx context.Context, key string, ttl time.Duration) error

	// Unlock releases the key. Safe to call after a failed Lock; the
	// Redis implementation otherwise relies on ttl expiry to recover.
	Unlock(ctx context.Context, key string) error

	// TryLock attempts to acquire key without blocking: (true, nil) on
	// success, (false, nil) if already held, (false, err) on failure.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RWLocker adds shared read access to Locker, for a caller that wants
// concurrent readers but exclusive writers on the same key. Unused by
// pkg/memo's Index today (GetMemo and setMemo share one exclusive lock
// because getOrCreateMemo's fresh-vs-miss decision needs a consistent
// view of the whole map, not per-key isolation), but implemented by both
// pkg/lock/local and pkg/lock/redis for a future finer-grained index.
type RWLocker interface {
	Locker

	// RLock acquires a shared lock on key, blocking only while a writer
	// holds it.
	RLock(ctx context.Context, key string, ttl time.Duration) error

	// RUnlock releases a shared lock acquired by RLock.
	RUnlock(ctx context.Context, key string) error
}
