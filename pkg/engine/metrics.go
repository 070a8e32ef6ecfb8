package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const otelPackageName = "github.com/ripplecache/ripplecache/pkg/engine"

//nolint:gochecknoglobals
var tracer trace.Tracer

//nolint:gochecknoinits
func init() {
	tracer = otel.Tracer(otelPackageName)
}

// metrics holds the Prometheus collectors Retrieve reports through.
// Each Engine gets its own registered set so two Engines in the same
// process (as the test suite constructs) don't collide on collector
// registration.
type metrics struct {
	retrievals *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	factory := promauto.With(registerer)

	return &metrics{
		retrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ripplecache_retrievals_total",
			Help: "Total number of retrieve() calls that reached a terminal status, by status.",
		}, []string{"status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ripplecache_retrieval_duration_seconds",
			Help:    "Duration of retrieve() calls that reached a terminal status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
}
