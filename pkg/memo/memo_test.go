package memo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/expiration"
	"github.com/ripplecache/ripplecache/pkg/memo"
	"github.com/ripplecache/ripplecache/pkg/store"
	"github.com/ripplecache/ripplecache/pkg/store/memstore"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	entry := memo.CacheEntry{
		Status:       memo.Success,
		Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		MediaType:    "application/rdf+xml",
		Dereferencer: "http",
		RDFizer:      "rdfxml",
	}

	decoded, err := memo.Decode(entry.Encode())
	require.NoError(t, err)
	assert.Equal(t, entry.Status, decoded.Status)
	assert.True(t, entry.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, entry.MediaType, decoded.MediaType)
	assert.Equal(t, entry.Dereferencer, decoded.Dereferencer)
	assert.Equal(t, entry.RDFizer, decoded.RDFizer)
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	entry := memo.CacheEntry{Status: memo.Undetermined}
	assert.Equal(t, "status=Undetermined", entry.Encode())
}

func TestGetOrCreateMemoWinnerGetsCacheLookup(t *testing.T) {
	t.Parallel()

	idx := memo.New(0, expiration.NeverExpire{})
	ctx := context.Background()

	entry, err := idx.GetOrCreateMemo(ctx, "https://example.org/doc", nil)
	require.NoError(t, err)
	assert.Equal(t, memo.CacheLookup, entry.Status)
}

func TestGetOrCreateMemoLoserSeesExistingEntry(t *testing.T) {
	t.Parallel()

	idx := memo.New(0, expiration.NeverExpire{})
	ctx := context.Background()

	first, err := idx.GetOrCreateMemo(ctx, "https://example.org/doc", nil)
	require.NoError(t, err)
	require.Equal(t, memo.CacheLookup, first.Status)

	require.NoError(t, idx.SetMemo(ctx, "https://example.org/doc",
		memo.CacheEntry{Status: memo.Undetermined}, nil))

	second, err := idx.GetOrCreateMemo(ctx, "https://example.org/doc", nil)
	require.NoError(t, err)
	assert.Equal(t, memo.Undetermined, second.Status)
}

func TestGetOrCreateMemoRefreshesExpiredEntry(t *testing.T) {
	t.Parallel()

	idx := memo.New(0, expiration.NewFixedPolicy(time.Nanosecond))
	ctx := context.Background()

	var entry memo.CacheEntry
	entry.MarkTerminal(memo.Success, time.Now().Add(-time.Hour))
	require.NoError(t, idx.SetMemo(ctx, "https://example.org/doc", entry, nil))

	refreshed, err := idx.GetOrCreateMemo(ctx, "https://example.org/doc", nil)
	require.NoError(t, err)
	assert.Equal(t, memo.CacheLookup, refreshed.Status)
}

func TestSetMemoPersistsToStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memo.New(0, expiration.NeverExpire{})

	factory := memstore.NewFactory(memstore.New())
	conn, err := factory.NewConnection(ctx)
	require.NoError(t, err)

	entry := memo.CacheEntry{Status: memo.Success, Timestamp: time.Now()}
	require.NoError(t, idx.SetMemo(ctx, "https://example.org/doc", entry, conn))

	found, err := conn.FindStatements(ctx, store.DefaultGraph, store.PredicateMemo, "https://example.org/doc")
	require.NoError(t, err)
	require.Len(t, found, 1)

	decoded, err := memo.Decode(found[0].Object)
	require.NoError(t, err)
	assert.Equal(t, memo.Success, decoded.Status)
}

func TestGetMemoLoadsFromStoreWhenNotInMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	factory := memstore.NewFactory(memstore.New())
	conn, err := factory.NewConnection(ctx)
	require.NoError(t, err)

	entry := memo.CacheEntry{Status: memo.BadMediaType, Timestamp: time.Now()}
	require.NoError(t, conn.AddStatement(ctx, store.Statement{
		Subject: "https://example.org/doc", Predicate: store.PredicateMemo,
		Object: entry.Encode(), Context: store.DefaultGraph,
	}))

	idx := memo.New(0, expiration.NeverExpire{})

	loaded, ok, err := idx.GetMemo(ctx, "https://example.org/doc", conn)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, memo.BadMediaType, loaded.Status)
}

func TestIndexEvictsLeastRecentlyInserted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := memo.New(memo.MinCapacity, expiration.NeverExpire{})

	for i := 0; i < memo.MinCapacity+1; i++ {
		iri := "https://example.org/" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		require.NoError(t, idx.SetMemo(ctx, iri, memo.CacheEntry{Status: memo.Success}, nil))
	}

	assert.Equal(t, memo.MinCapacity, idx.Len())

	_, ok, err := idx.GetMemo(ctx, "https://example.org/a0", nil)
	require.NoError(t, err)
	assert.False(t, ok, "the first-inserted entry is the one evicted")

	_, ok, err = idx.GetMemo(ctx, "https://example.org/w3", nil)
	require.NoError(t, err)
	assert.True(t, ok, "the last-inserted entry is kept")
}
