package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"

	"github.com/ripplecache/ripplecache/pkg/engine"
	"github.com/ripplecache/ripplecache/pkg/redirect"
)

func engineConfigFlags(flagSources flagSourcesFn) []cli.Flag {
	return append(storeFlags(flagSources), []cli.Flag{
		&cli.IntFlag{
			Name:    "memory-cache-capacity",
			Usage:   "Maximum number of graph IRIs tracked by the in-memory metadata index",
			Sources: flagSources("engine.memory-cache-capacity", "MEMORY_CACHE_CAPACITY"),
			Value:   int64(engine.DefaultMemoryCacheCapacity),
		},
		&cli.DurationFlag{
			Name:    "cache-lifetime",
			Usage:   "How long a terminal cache entry stays fresh before a sweep or re-fetch discards it",
			Sources: flagSources("engine.cache-lifetime", "CACHE_LIFETIME"),
			Value:   engine.DefaultCacheLifetime,
		},
		&cli.StringFlag{
			Name:    "datatype-handling",
			Usage:   "How literal datatype IRIs are treated: ignore, verify, or normalize",
			Sources: flagSources("engine.datatype-handling", "DATATYPE_HANDLING"),
			Value:   string(engine.DatatypeIgnore),
		},
		&cli.BoolFlag{
			Name:    "use-blank-nodes",
			Usage:   "Keep blank node identifiers as-is instead of rewriting them to fresh IRIs",
			Sources: flagSources("engine.use-blank-nodes", "USE_BLANK_NODES"),
		},
		&cli.IntFlag{
			Name:    "redirect-max-chain-length",
			Usage:   "Maximum redirect hops the redirect manager follows before giving up",
			Sources: flagSources("engine.redirect-max-chain-length", "REDIRECT_MAX_CHAIN_LENGTH"),
			Value:   int64(redirect.DefaultMaxChainLength),
		},
		&cli.StringFlag{
			Name: "maintenance-cron",
			Usage: "Cron spec for periodically sweeping expired metadata index entries. " +
				"Empty disables the sweep.",
			Sources: flagSources("engine.maintenance-cron", "MAINTENANCE_CRON"),
		},
	}...)
}

func engineConfigFromFlags(cmd *cli.Command) engine.Config {
	return engine.Config{
		MemoryCacheCapacity:    int(cmd.Int("memory-cache-capacity")),
		CacheLifetime:          cmd.Duration("cache-lifetime"),
		DatatypeHandling:       engine.DatatypeHandling(cmd.String("datatype-handling")),
		UseBlankNodes:          cmd.Bool("use-blank-nodes"),
		DerefSubjects:          true,
		DerefPredicates:        false,
		DerefObjects:           true,
		DerefContexts:          false,
		RedirectMaxChainLength: int(cmd.Int("redirect-max-chain-length")),
	}
}

// createEngine builds an Engine wired with the default scheme/media-type
// registrations (http/https/file dereferencers, RDF/XML, N-Triples,
// Turtle, EXIF RDFizers), using the store and index settings named by the
// shared engine config flags.
func createEngine(ctx context.Context, cmd *cli.Command, registerer prometheus.Registerer) (*engine.Engine, error) {
	storeFactory, err := createStoreFactory(ctx, cmd)
	if err != nil {
		return nil, err
	}

	e, err := engine.NewDefaultWithConfig(ctx, engineConfigFromFlags(cmd), storeFactory, registerer)
	if err != nil {
		return nil, fmt.Errorf("cmd: building engine: %w", err)
	}

	if schedule := cmd.String("maintenance-cron"); schedule != "" {
		parsed, err := cron.ParseStandard(schedule)
		if err != nil {
			return nil, fmt.Errorf("cmd: parsing --maintenance-cron %q: %w", schedule, err)
		}

		e.WithMaintenanceCron(parsed)
	}

	return e, nil
}
