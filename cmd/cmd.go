package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/json"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/ripplecache/ripplecache/pkg/telemetry"
)

// Version is set with ldflags at build time.
//
//nolint:gochecknoglobals
var Version = "dev"

type flagSourcesFn func(configFileKey, envVar string) cli.ValueSourceChain

// New builds the ripplecache root command: shared OTel/logging bootstrap
// plus the serve, get, and clear subcommands.
func New() *cli.Command {
	var (
		sdk        *telemetry.SDK
		loggerDone func(context.Context) error
	)

	var configPath string

	flagSources := func(configFileKey, envVar string) cli.ValueSourceChain {
		return cli.NewValueSourceChain(
			toml.TOML(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			yaml.YAML(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			json.JSON(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			cli.EnvVar(envVar),
		)
	}

	return &cli.Command{
		Name:    "ripplecache",
		Usage:   "Linked Data caching engine",
		Version: Version,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logger, closeLogger, err := telemetry.NewLogger(
				ctx, cmd.Root().Name, cmd.String("log-level"), cmd.String("otel-grpc-url"),
			)
			if err != nil {
				return ctx, err
			}

			loggerDone = closeLogger
			ctx = logger.WithContext(ctx)

			res, err := telemetry.NewResource(ctx, cmd.Root().Name, Version)
			if err != nil {
				return ctx, fmt.Errorf("cmd: building OTel resource: %w", err)
			}

			sdk, err = telemetry.SetupSDK(ctx, cmd.Bool("otel-enabled"), cmd.String("otel-grpc-url"), res)
			if err != nil {
				return ctx, fmt.Errorf("cmd: setting up OTel SDK: %w", err)
			}

			logger.Info().
				Str("otel_grpc_url", cmd.String("otel-grpc-url")).
				Str("log_level", cmd.String("log-level")).
				Msg("logger created")

			return ctx, nil
		},
		After: func(ctx context.Context, _ *cli.Command) error {
			if sdk != nil {
				if err := sdk.Shutdown(ctx); err != nil {
					return err
				}
			}

			if loggerDone != nil {
				return loggerDone(ctx)
			}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Set the log level",
				Sources: flagSources("log.level", "LOG_LEVEL"),
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Enable OpenTelemetry traces and metrics.",
				Sources: flagSources("opentelemetry.enabled", "OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name: "otel-grpc-url",
				Usage: "OpenTelemetry collector gRPC URL. Also fans logs out to the " +
					"collector when set. Omit to keep logs on stdout only and, with " +
					"--otel-enabled, write traces and metrics to stdout.",
				Sources: flagSources("opentelemetry.grpc-url", "OTEL_GRPC_URL"),
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to the configuration file (toml, yaml, json)",
				Sources:     cli.EnvVars("RIPPLECACHE_CONFIG_FILE"),
				Value:       getDefaultConfigPath(),
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:    "prometheus-enabled",
				Usage:   "Serve the engine's Prometheus metrics at /metrics; without it the endpoint serves an empty registry",
				Sources: flagSources("prometheus.enabled", "PROMETHEUS_ENABLED"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(flagSources),
			getCommand(flagSources),
			clearCommand(flagSources),
		},
	}
}

func getDefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Sprintf("unable to determine user config directory: %v", err))
	}

	return filepath.Join(configDir, "ripplecache", "config.yaml")
}
