package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"golang.org/x/term"
)

// NewLogger builds the zerolog logger cmd/'s Before hook installs onto
// its context: a console writer when stdout is a terminal, plain JSON
// otherwise, additionally fanned out to an OTel log exporter when colURL
// is non-empty. The returned close func drains the OTel exporter, if one
// was created; it is a no-op otherwise.
func NewLogger(ctx context.Context, serviceName, levelName, colURL string) (zerolog.Logger, func(context.Context) error, error) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("telemetry: parsing log level %q: %w", levelName, err)
	}

	var output io.Writer = os.Stdout

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	closeFn := func(context.Context) error { return nil }

	if colURL != "" {
		otelWriter, err := newOtelWriter(ctx, colURL, serviceName)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("telemetry: building OTel log writer: %w", err)
		}

		output = zerolog.MultiLevelWriter(output, otelWriter)
		closeFn = otelWriter.Close
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()

	return logger, closeFn, nil
}

// otelWriter implements zerolog.LevelWriter, fanning structured log
// entries out to an OTLP log exporter.
type otelWriter struct {
	logger   log.Logger
	exporter *otlploggrpc.Exporter
}

func newOtelWriter(ctx context.Context, endpointURL, serviceName string) (*otelWriter, error) {
	exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(endpointURL))
	if err != nil {
		return nil, err
	}

	res, err := NewResource(ctx, serviceName, "")
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	return &otelWriter{logger: provider.Logger(serviceName), exporter: exporter}, nil
}

// Write implements io.Writer by parsing zerolog's JSON line and
// forwarding it as an OTel log record at info severity.
func (w *otelWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (w *otelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]any

	if err := json.Unmarshal(p, &fields); err != nil {
		return 0, err
	}

	var rec log.Record

	rec.SetSeverity(convertLevel(level))
	rec.SetSeverityText(level.String())

	if msg, ok := fields["message"].(string); ok {
		rec.SetBody(log.StringValue(msg))
	}

	delete(fields, "level")
	delete(fields, "message")

	rec.AddAttributes(attributesForMap(fields)...)

	w.logger.Emit(context.Background(), rec)

	return len(p), nil
}

// Close shuts down the underlying OTLP exporter.
func (w *otelWriter) Close(ctx context.Context) error {
	return w.exporter.Shutdown(ctx)
}

func convertLevel(level zerolog.Level) log.Severity {
	switch level {
	case zerolog.DebugLevel:
		return log.SeverityDebug
	case zerolog.InfoLevel:
		return log.SeverityInfo
	case zerolog.WarnLevel:
		return log.SeverityWarn
	case zerolog.ErrorLevel:
		return log.SeverityError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return log.SeverityFatal
	case zerolog.TraceLevel:
		return log.SeverityTrace
	default:
		return log.SeverityInfo
	}
}

func attributesForMap(m map[string]any) []log.KeyValue {
	kvs := make([]log.KeyValue, 0, len(m))

	for k, v := range m {
		kvs = append(kvs, attributeForValue(k, v))
	}

	return kvs
}

func attributeForValue(k string, v any) log.KeyValue {
	switch val := v.(type) {
	case bool:
		return log.Bool(k, val)
	case float64:
		if ival := int64(val); float64(ival) == val {
			return log.Int64(k, ival)
		}

		return log.Float64(k, val)
	case string:
		return log.String(k, val)
	case map[string]any:
		return log.Map(k, attributesForMap(val)...)
	default:
		return log.String(k, fmt.Sprintf("%v", val))
	}
}
