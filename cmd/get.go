package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func getCommand(flagSources flagSourcesFn) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "retrieve a single IRI and print its resulting cache entry",
		ArgsUsage: "<iri>",
		Action:    getAction(),
		Flags:     engineConfigFlags(flagSources),
	}
}

func getAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		iri := cmd.Args().First()
		if iri == "" {
			return fmt.Errorf("get: an IRI argument is required")
		}

		e, err := createEngine(ctx, cmd, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer func() {
			if err := e.Close(ctx); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("error closing engine")
			}
		}()

		entry, err := e.Retrieve(ctx, iri)
		if err != nil {
			return fmt.Errorf("get: retrieving %q: %w", iri, err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(map[string]any{
			"iri":          iri,
			"status":       entry.Status.String(),
			"mediaType":    entry.MediaType,
			"dereferencer": entry.Dereferencer,
			"rdfizer":      entry.RDFizer,
		})
	}
}
