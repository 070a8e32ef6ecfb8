// Package telemetry bootstraps the OpenTelemetry resource, trace
// provider, and meter provider ripplecache's cmd/ wires up once at
// startup, plus the zerolog console/OTel writer split cmd/cmd.go's
// Before hook configures per invocation.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// NewResource builds the OTel resource every provider below is
// constructed against: service name/version plus whatever the runtime
// environment and OTEL_RESOURCE_ATTRIBUTES contribute.
func NewResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcessPID(),
		resource.WithProcessExecutableName(),
		resource.WithProcessExecutablePath(),
		resource.WithProcessOwner(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithProcessRuntimeDescription(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
	)
}

// SDK bundles the two providers SetupSDK installs globally, plus the
// shutdown function that drains and closes their exporters.
type SDK struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Shutdown       func(context.Context) error
}

// SetupSDK installs a trace provider and a meter provider as the global
// OTel providers. When enabled is false, both export to io.Discard —
// spans and instruments still flow through the SDK (so application code
// never branches on whether telemetry is enabled), they just aren't
// shipped anywhere. When enabled and colURL is non-empty, both export via
// OTLP/gRPC to that collector; otherwise they write to stdout (traces
// pretty-printed, metrics as plain JSON).
func SetupSDK(ctx context.Context, enabled bool, colURL string, res *resource.Resource) (*SDK, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracerProvider, err := newTraceProvider(ctx, enabled, colURL, res)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(tracerProvider)

	meterProvider, err := newMeterProvider(ctx, enabled, colURL, res)
	if err != nil {
		return nil, err
	}

	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}

		return meterProvider.Shutdown(ctx)
	}

	return &SDK{TracerProvider: tracerProvider, MeterProvider: meterProvider, Shutdown: shutdown}, nil
}

func newTraceProvider(
	ctx context.Context, enabled bool, colURL string, res *resource.Resource,
) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch {
	case enabled && colURL != "":
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(colURL))
	case enabled:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	}

	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(
	ctx context.Context, enabled bool, colURL string, res *resource.Resource,
) (*sdkmetric.MeterProvider, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)

	switch {
	case enabled && colURL != "":
		exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(colURL))
	case enabled:
		exporter, err = stdoutmetric.New()
	default:
		exporter, err = stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
	}

	if err != nil {
		return nil, err
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	), nil
}
