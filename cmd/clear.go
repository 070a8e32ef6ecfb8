package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func clearCommand(flagSources flagSourcesFn) *cli.Command {
	return &cli.Command{
		Name:   "clear",
		Usage:  "drop the in-memory metadata index and truncate the store, if supported",
		Action: clearAction(),
		Flags:  engineConfigFlags(flagSources),
	}
}

func clearAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "clear").Logger()

		e, err := createEngine(ctx, cmd, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer func() {
			if err := e.Close(ctx); err != nil {
				logger.Error().Err(err).Msg("error closing engine")
			}
		}()

		if err := e.Clear(ctx); err != nil {
			return fmt.Errorf("clear: %w", err)
		}

		logger.Info().Msg("store and metadata index cleared")

		return nil
	}
}
