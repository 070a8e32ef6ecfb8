//nolint:testpackage
package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/ripplecache/ripplecache/pkg/engine"
	"github.com/ripplecache/ripplecache/pkg/redirect"
)

func engineConfigFromArgs(t *testing.T, args ...string) (got engine.Config) {
	t.Helper()

	cmd := &cli.Command{
		Flags: engineConfigFlags(noFlagSources),
		Action: func(_ context.Context, cmd *cli.Command) error {
			got = engineConfigFromFlags(cmd)

			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"cmd"}, args...)))

	return got
}

func TestEngineConfigFromFlagsDefaults(t *testing.T) {
	t.Parallel()

	cfg := engineConfigFromArgs(t)

	assert.Equal(t, engine.DefaultMemoryCacheCapacity, cfg.MemoryCacheCapacity)
	assert.Equal(t, engine.DefaultCacheLifetime, cfg.CacheLifetime)
	assert.Equal(t, engine.DatatypeIgnore, cfg.DatatypeHandling)
	assert.False(t, cfg.UseBlankNodes)
	assert.True(t, cfg.DerefSubjects)
	assert.False(t, cfg.DerefPredicates)
	assert.True(t, cfg.DerefObjects)
	assert.False(t, cfg.DerefContexts)
	assert.Equal(t, redirect.DefaultMaxChainLength, cfg.RedirectMaxChainLength)
}

func TestEngineConfigFromFlagsHonorsOverrides(t *testing.T) {
	t.Parallel()

	cfg := engineConfigFromArgs(t,
		"--memory-cache-capacity", "42",
		"--cache-lifetime", "5m",
		"--datatype-handling", "verify",
		"--use-blank-nodes",
		"--redirect-max-chain-length", "4",
	)

	assert.Equal(t, 42, cfg.MemoryCacheCapacity)
	assert.Equal(t, 5*time.Minute, cfg.CacheLifetime)
	assert.Equal(t, engine.DatatypeHandling("verify"), cfg.DatatypeHandling)
	assert.True(t, cfg.UseBlankNodes)
	assert.Equal(t, 4, cfg.RedirectMaxChainLength)
}

func TestCreateEngineRejectsBadMaintenanceCron(t *testing.T) {
	t.Parallel()

	var gotErr error

	cmd := &cli.Command{
		Flags: engineConfigFlags(noFlagSources),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, gotErr = createEngine(ctx, cmd, nil)

			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), []string{"cmd", "--maintenance-cron", "not a cron spec"}))
	assert.Error(t, gotErr)
}
