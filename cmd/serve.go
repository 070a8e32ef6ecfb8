package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ripplecache/ripplecache/pkg/server"
)

func serveCommand(flagSources flagSourcesFn) *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:    "server-addr",
			Usage:   "The address the HTTP server listens on",
			Sources: flagSources("server.addr", "SERVER_ADDR"),
			Value:   ":8501",
		},
	}, engineConfigFlags(flagSources)...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "serve the caching engine over http",
		Action:  serveAction(),
		Flags:   flags,
	}
}

func serveAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "serve").Logger()
		ctx = logger.WithContext(ctx)

		ctx, cancel := context.WithCancel(ctx)

		g, ctx := errgroup.WithContext(ctx)

		defer func() {
			if err := g.Wait(); err != nil {
				logger.Error().Err(err).Msg("error returned from g.Wait()")
			}
		}()
		defer cancel()

		g.Go(func() error {
			return autoMaxProcs(ctx, 30*time.Second, logger)
		})

		registerer := prometheus.NewRegistry()

		e, err := createEngine(ctx, cmd, registerer)
		if err != nil {
			return err
		}
		defer func() {
			if err := e.Close(ctx); err != nil {
				logger.Error().Err(err).Msg("error closing engine")
			}
		}()

		var gatherer prometheus.Gatherer = registerer
		if !cmd.Root().Bool("prometheus-enabled") {
			gatherer = prometheus.NewRegistry()
		}

		srv := server.New(e, gatherer)

		httpServer := &http.Server{
			BaseContext:       func(net.Listener) context.Context { return ctx },
			Addr:              cmd.String("server-addr"),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		logger.Info().Str("server_addr", cmd.String("server-addr")).Msg("server started")

		if err := httpServer.ListenAndServe(); err != nil {
			return fmt.Errorf("error starting the HTTP listener: %w", err)
		}

		return nil
	}
}
