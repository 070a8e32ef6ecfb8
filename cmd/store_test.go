//nolint:testpackage
package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/ripplecache/ripplecache/pkg/store/memstore"
)

func noFlagSources(_, _ string) cli.ValueSourceChain { return cli.NewValueSourceChain() }

// createStoreFactoryFromArgs parses args against storeFlags and returns
// whatever createStoreFactory produces from the resulting *cli.Command.
func createStoreFactoryFromArgs(t *testing.T, args ...string) (result struct {
	factory interface{}
	err     error
}) {
	t.Helper()

	cmd := &cli.Command{
		Flags: storeFlags(noFlagSources),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			factory, err := createStoreFactory(ctx, cmd)
			result.factory = factory
			result.err = err

			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"cmd"}, args...)))

	return result
}

func TestCreateStoreFactoryDefaultsToMemory(t *testing.T) {
	t.Parallel()

	result := createStoreFactoryFromArgs(t)
	require.NoError(t, result.err)
	assert.IsType(t, memstore.NewFactory(nil), result.factory)
}

func TestCreateStoreFactoryRequiresDSNForSQLDriver(t *testing.T) {
	t.Parallel()

	result := createStoreFactoryFromArgs(t, "--store-driver", "sql")
	assert.ErrorIs(t, result.err, ErrStoreDSNRequired)
}

func TestCreateStoreFactoryRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	result := createStoreFactoryFromArgs(t, "--store-driver", "bogus")
	assert.Error(t, result.err)
}

func TestCreateStoreFactoryOpensSQLiteForSQLDriver(t *testing.T) {
	t.Parallel()

	dbPath := t.TempDir() + "/ripplecache.db"

	result := createStoreFactoryFromArgs(t, "--store-driver", "sql", "--store-dsn", "sqlite://"+dbPath)
	require.NoError(t, result.err)
	require.NotNil(t, result.factory)
}
