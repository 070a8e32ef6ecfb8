package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/store"
	"github.com/ripplecache/ripplecache/pkg/store/sqlstore"
)

func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ripplecache.db")

	s, err := sqlstore.Open(context.Background(), "sqlite://"+dbPath, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestDetectFromDataStoreURL(t *testing.T) {
	t.Parallel()

	cases := map[string]sqlstore.Type{
		"sqlite:///tmp/x.db":             sqlstore.TypeSQLite,
		"sqlite3:///tmp/x.db":            sqlstore.TypeSQLite,
		"postgres://u:p@host/db":         sqlstore.TypePostgreSQL,
		"postgresql://u:p@host/db":       sqlstore.TypePostgreSQL,
		"mysql://u:p@host/db":            sqlstore.TypeMySQL,
	}

	for url, want := range cases {
		typ, err := sqlstore.DetectFromDataStoreURL(url)
		require.NoError(t, err, url)
		assert.Equal(t, want, typ, url)
	}

	_, err := sqlstore.DetectFromDataStoreURL("redis://host")
	assert.ErrorIs(t, err, sqlstore.ErrUnsupportedDialect)
}

func TestAddFindRemoveStatements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.AddStatement(ctx, store.Statement{
		Subject: "https://example.org/doc", Predicate: store.PredicateMemo,
		Object: "status=Success", Context: store.DefaultGraph,
	}))

	found, err := s.FindStatements(ctx, store.DefaultGraph, store.PredicateMemo, "")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "status=Success", found[0].Object)

	require.NoError(t, s.RemoveStatements(ctx, store.DefaultGraph, store.PredicateMemo, ""))

	found, err = s.FindStatements(ctx, store.DefaultGraph, store.PredicateMemo, "")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestIsDeadlockAndDuplicateKeyErrorNilSafe(t *testing.T) {
	t.Parallel()

	assert.False(t, sqlstore.IsDeadlockError(nil))
	assert.False(t, sqlstore.IsDuplicateKeyError(nil))
}

func TestFactoryReturnsSharedStore(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "ripplecache.db")

	ctx := context.Background()

	factory, err := sqlstore.NewFactory(ctx, "sqlite://"+dbPath, nil)
	require.NoError(t, err)

	conn, err := factory.NewConnection(ctx)
	require.NoError(t, err)

	require.NoError(t, conn.AddStatement(ctx, store.Statement{
		Context: "https://example.org/doc", Predicate: store.PredicateMemo, Object: "status=Success",
	}))

	conn2, err := factory.NewConnection(ctx)
	require.NoError(t, err)

	found, err := conn2.FindStatements(ctx, "https://example.org/doc", store.PredicateMemo, "")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
