// Package server exposes the engine over HTTP: a retrieval endpoint, a
// health check, and a Prometheus scrape endpoint.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"github.com/rs/zerolog"

	"github.com/ripplecache/ripplecache/pkg/engine"
)

const (
	routeHealthz  = "/healthz"
	routeRetrieve = "/retrieve"
	routeMetrics  = "/metrics"

	otelComponentName = "ripplecache"
)

// Server is the main HTTP handler, routing to the engine's Retrieve
// operation plus health and metrics introspection.
type Server struct {
	engine   *engine.Engine
	gatherer prometheus.Gatherer
	router   *chi.Mux
}

// New returns a Server wrapping e, scraping metrics from gatherer (the
// registry e was constructed against).
func New(e *engine.Engine, gatherer prometheus.Gatherer) Server {
	s := Server{engine: e, gatherer: gatherer}
	s.router = createRouter(s)

	return s
}

// ServeHTTP implements http.Handler.
func (s Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func createRouter(s Server) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(otelchi.Middleware(otelComponentName))
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get(routeHealthz, s.getHealthz)
	router.Get(routeRetrieve, s.getRetrieve)
	router.Handle(routeMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := zerolog.Ctx(r.Context()).With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Logger()

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func (s Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s Server) getRetrieve(w http.ResponseWriter, r *http.Request) {
	iri := r.URL.Query().Get("iri")
	if iri == "" {
		http.Error(w, "missing required query parameter: iri", http.StatusBadRequest)

		return
	}

	entry, err := s.engine.Retrieve(r.Context(), iri)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("iri", iri).Msg("server: retrieve failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"iri":          iri,
		"status":       entry.Status.String(),
		"mediaType":    entry.MediaType,
		"dereferencer": entry.Dereferencer,
		"rdfizer":      entry.RDFizer,
	})
}
