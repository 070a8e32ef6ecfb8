package memo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ripplecache/ripplecache/pkg/expiration"
	"github.com/ripplecache/ripplecache/pkg/lock"
	"github.com/ripplecache/ripplecache/pkg/lock/local"
	"github.com/ripplecache/ripplecache/pkg/store"
)

// MinCapacity is the floor the Metadata Index enforces on its configured
// capacity; a smaller requested value is overridden with a warning.
const MinCapacity = 100

// indexLockKey is the single key every Index locks under. getMemo and
// setMemo must serialise with respect to each other, not partition by
// graph IRI, since getOrCreateMemo's decision (fresh-vs-miss) has to see
// a consistent view of the whole map.
const indexLockKey = "memo-index"

// Index is the bounded, in-memory graph-IRI → CacheEntry mapping (C2).
// On overflow, the least-recently-inserted entry is evicted from memory;
// its on-disk projection in the triple store is unaffected.
type Index struct {
	capacity int
	policy   expiration.Policy
	locker   lock.Locker
	now      func() time.Time

	order   []string
	entries map[string]CacheEntry
}

// New returns an Index bounded at capacity (floored at MinCapacity),
// checking freshness via policy. A nil policy defaults to
// expiration.NewFixedPolicy(0) (the 7-day default lifetime). The index
// always locks through a local in-process locker; New takes no locker
// argument.
func New(capacity int, policy expiration.Policy) *Index {
	if capacity < MinCapacity {
		log.Warn().Int("requested", capacity).Int("floor", MinCapacity).
			Msg("memo: requested index capacity below floor, overriding")

		capacity = MinCapacity
	}

	if policy == nil {
		policy = expiration.NewFixedPolicy(0)
	}

	return &Index{
		capacity: capacity,
		policy:   policy,
		locker:   local.NewLocker(),
		now:      time.Now,
		entries:  make(map[string]CacheEntry, capacity),
	}
}

// GetMemo returns the in-memory entry for graphIri if present; otherwise
// it loads from conn by querying the metadata predicates and
// materialising a CacheEntry, or reports ok=false if no such statements
// exist.
func (idx *Index) GetMemo(ctx context.Context, graphIri string, conn store.Connection) (CacheEntry, bool, error) {
	if err := idx.locker.Lock(ctx, indexLockKey, 0); err != nil {
		return CacheEntry{}, false, fmt.Errorf("memo: locking index: %w", err)
	}
	defer func() { _ = idx.locker.Unlock(ctx, indexLockKey) }()

	return idx.getMemoLocked(ctx, graphIri, conn)
}

func (idx *Index) getMemoLocked(ctx context.Context, graphIri string, conn store.Connection) (CacheEntry, bool, error) {
	if entry, ok := idx.entries[graphIri]; ok {
		return entry, true, nil
	}

	if conn == nil {
		return CacheEntry{}, false, nil
	}

	statements, err := conn.FindStatements(ctx, store.DefaultGraph, store.PredicateMemo, graphIri)
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("memo: querying store: %w", err)
	}

	if len(statements) == 0 {
		return CacheEntry{}, false, nil
	}

	entry, err := Decode(statements[0].Object)
	if err != nil {
		return CacheEntry{}, false, fmt.Errorf("memo: decoding stored entry: %w", err)
	}

	idx.insertLocked(graphIri, entry)

	return entry, true, nil
}

// SetMemo inserts or replaces graphIri's entry in memory. If conn is
// non-nil, it also removes any previous memo statements for graphIri and
// writes the new entry's encoding.
func (idx *Index) SetMemo(ctx context.Context, graphIri string, entry CacheEntry, conn store.Connection) error {
	if err := idx.locker.Lock(ctx, indexLockKey, 0); err != nil {
		return fmt.Errorf("memo: locking index: %w", err)
	}
	defer func() { _ = idx.locker.Unlock(ctx, indexLockKey) }()

	idx.insertLocked(graphIri, entry)

	if conn == nil {
		return nil
	}

	if err := conn.RemoveStatements(ctx, store.DefaultGraph, store.PredicateMemo, graphIri); err != nil {
		return fmt.Errorf("memo: removing previous memo: %w", err)
	}

	if err := conn.AddStatement(ctx, store.Statement{
		Subject:   graphIri,
		Predicate: store.PredicateMemo,
		Object:    entry.Encode(),
		Context:   store.DefaultGraph,
	}); err != nil {
		return fmt.Errorf("memo: writing memo: %w", err)
	}

	return nil
}

// GetOrCreateMemo is the critical section of §4.7: under the index lock,
// it returns a non-expired existing entry unchanged, or otherwise
// inserts a fresh Undetermined entry in memory and returns a copy marked
// CacheLookup. The caller checks the returned status: a CacheLookup
// status means this call is the winner and must proceed with retrieval;
// any other status means the entry already existed (a hit, or another
// in-flight attempt) and the caller returns it as-is without
// re-dispatching work. The CacheLookup marker is never stored in the
// index, so only the winning caller ever sees it.
func (idx *Index) GetOrCreateMemo(ctx context.Context, graphIri string, conn store.Connection) (CacheEntry, error) {
	if err := idx.locker.Lock(ctx, indexLockKey, 0); err != nil {
		return CacheEntry{}, fmt.Errorf("memo: locking index: %w", err)
	}
	defer func() { _ = idx.locker.Unlock(ctx, indexLockKey) }()

	now := idx.now()

	if entry, ok, err := idx.getMemoLocked(ctx, graphIri, conn); err != nil {
		return CacheEntry{}, err
	} else if ok {
		expEntry := expiration.Entry{HasTimestamp: entry.HasTimestamp(), Timestamp: entry.Timestamp}
		if !idx.policy.IsExpired(expEntry, now) {
			return entry, nil
		}
	}

	idx.insertLocked(graphIri, NewUndetermined())

	return CacheEntry{Status: CacheLookup}, nil
}

// insertLocked inserts or replaces graphIri's entry, evicting the
// least-recently-inserted entry if the index is at capacity. Must be
// called with idx.locker held.
func (idx *Index) insertLocked(graphIri string, entry CacheEntry) {
	if _, exists := idx.entries[graphIri]; !exists {
		if len(idx.entries) >= idx.capacity {
			idx.evictOldestLocked()
		}

		idx.order = append(idx.order, graphIri)
	}

	idx.entries[graphIri] = entry
}

func (idx *Index) evictOldestLocked() {
	if len(idx.order) == 0 {
		return
	}

	oldest := idx.order[0]
	idx.order = idx.order[1:]
	delete(idx.entries, oldest)
}

// Clear drops every in-memory entry. It does not touch the store.
func (idx *Index) Clear(ctx context.Context) error {
	if err := idx.locker.Lock(ctx, indexLockKey, 0); err != nil {
		return fmt.Errorf("memo: locking index: %w", err)
	}
	defer func() { _ = idx.locker.Unlock(ctx, indexLockKey) }()

	idx.entries = make(map[string]CacheEntry, idx.capacity)
	idx.order = nil

	return nil
}

// SetPolicy replaces the expiration policy GetOrCreateMemo consults, for
// Engine.SetExpirationPolicy. It takes effect for subsequent calls only;
// entries already materialised keep their recorded timestamp, which the
// new policy is applied against.
func (idx *Index) SetPolicy(policy expiration.Policy) {
	if policy == nil {
		return
	}

	if err := idx.locker.Lock(context.Background(), indexLockKey, 0); err != nil {
		return
	}
	defer func() { _ = idx.locker.Unlock(context.Background(), indexLockKey) }()

	idx.policy = policy
}

// SweepExpired drops every in-memory entry the current policy considers
// expired as of now, for Engine's maintenance cron. It returns the
// number of entries removed. Unlike Clear, unexpired entries are left
// untouched.
func (idx *Index) SweepExpired(now time.Time) int {
	if err := idx.locker.Lock(context.Background(), indexLockKey, 0); err != nil {
		return 0
	}
	defer func() { _ = idx.locker.Unlock(context.Background(), indexLockKey) }()

	removed := 0

	kept := idx.order[:0]

	for _, graphIri := range idx.order {
		entry := idx.entries[graphIri]
		expEntry := expiration.Entry{HasTimestamp: entry.HasTimestamp(), Timestamp: entry.Timestamp}

		if idx.policy.IsExpired(expEntry, now) {
			delete(idx.entries, graphIri)

			removed++

			continue
		}

		kept = append(kept, graphIri)
	}

	idx.order = kept

	return removed
}

// Len reports how many entries are currently in memory.
func (idx *Index) Len() int {
	return len(idx.entries)
}
