package engine

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/ripplecache/ripplecache/pkg/dereference"
	"github.com/ripplecache/ripplecache/pkg/dereference/filederef"
	"github.com/ripplecache/ripplecache/pkg/dereference/httpderef"
	"github.com/ripplecache/ripplecache/pkg/expiration"
	"github.com/ripplecache/ripplecache/pkg/lock"
	"github.com/ripplecache/ripplecache/pkg/lock/local"
	"github.com/ripplecache/ripplecache/pkg/memo"
	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/exif"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/ntriples"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/rdfxml"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/turtle"
	"github.com/ripplecache/ripplecache/pkg/redirect"
	"github.com/ripplecache/ripplecache/pkg/statement"
	"github.com/ripplecache/ripplecache/pkg/store"
)

// engineLockKey is the single key the facade's intrinsic lock guards:
// connection (re)acquisition, Clear, and Close. It is a different lock
// from the metadata index's own — the two serialise different things
// (§5: "the triple-store connection ... the metadata index" are listed
// as two distinct pieces of shared mutable state).
const engineLockKey = "engine"

// Engine is the Cache Engine Facade (C8): construction, configuration,
// and the Retrieve entry point wrapping the orchestrator's retrieve.
type Engine struct {
	config Config

	locker lock.Locker
	store  store.Factory

	index         *memo.Index
	dereferencers *dereference.Registry
	rdfizers      *rdfizer.Registry
	sinkFactory   statement.SinkFactory
	redirects     *redirect.Manager

	metrics *metrics
	cron    *cron.Cron
}

// New constructs an Engine from config against storeFactory, with no
// dereferencers or RDFizers registered. Callers that want the shipped
// scheme/media-type wiring should use createDefault instead; New is the
// entry point for a caller assembling a custom registry (e.g. a test
// fixture that registers only a stub dereferencer).
func New(config Config, storeFactory store.Factory, registerer prometheus.Registerer) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	return &Engine{
		config:        config,
		locker:        local.NewLocker(),
		store:         storeFactory,
		index:         memo.New(config.MemoryCacheCapacity, expiration.NewFixedPolicy(config.CacheLifetime)),
		dereferencers: dereference.NewRegistry(),
		rdfizers:      rdfizer.NewRegistry(),
		sinkFactory:   statement.DefaultSinkFactory{},
		redirects:     redirect.New(config.RedirectMaxChainLength),
		metrics:       newMetrics(registerer),
	}, nil
}

// createDefault builds an Engine wired with the scheme dereferencers
// and RDFizer qualities spec §4.8 names: file/http/https dereferencers;
// application/rdf+xml@1.0, text/xml@0.25 (both rdfxml), text/turtle@0.7,
// application/n-triples@0.9, and image/jpeg+image/tiff@0.4 (exif).
func createDefault(ctx context.Context, config Config, storeFactory store.Factory, registerer prometheus.Registerer) (*Engine, error) {
	e, err := New(config, storeFactory, registerer)
	if err != nil {
		return nil, err
	}

	httpDeref, err := httpderef.New(httpderef.Options{
		Redirects: e.redirects,
		Store:     storeFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: constructing http dereferencer: %w", err)
	}

	e.dereferencers.Register("http", httpDeref)
	e.dereferencers.Register("https", httpDeref)
	e.dereferencers.Register("file", filederef.New())

	registrations := []struct {
		mediaType string
		name      string
		rdfizer   rdfizer.RDFizer
		quality   float64
	}{
		{"application/rdf+xml", "rdfxml", rdfxml.New(), 1.0},
		{"application/n-triples", "ntriples", ntriples.New(), 0.9},
		{"text/turtle", "turtle", turtle.New(), 0.7},
		{"text/xml", "rdfxml", rdfxml.New(), 0.25},
		{"image/jpeg", "exif", exif.New(), 0.4},
		{"image/tiff", "exif", exif.New(), 0.4},
	}

	for _, r := range registrations {
		if err := e.rdfizers.Register(ctx, r.mediaType, r.name, r.rdfizer, r.quality); err != nil {
			return nil, fmt.Errorf("engine: registering %s: %w", r.mediaType, err)
		}
	}

	return e, nil
}

// NewDefault builds an Engine from DefaultConfig with the shipped
// scheme/media-type wiring. Callers that need non-default capacity,
// lifetime, or datatype handling should use NewDefaultWithConfig instead.
func NewDefault(ctx context.Context, storeFactory store.Factory, registerer prometheus.Registerer) (*Engine, error) {
	return createDefault(ctx, DefaultConfig(), storeFactory, registerer)
}

// NewDefaultWithConfig is NewDefault with a caller-supplied Config, for
// callers (e.g. cmd/) that expose the engine's tuning knobs as flags
// while still wanting the shipped dereferencer/RDFizer wiring.
func NewDefaultWithConfig(
	ctx context.Context, config Config, storeFactory store.Factory, registerer prometheus.Registerer,
) (*Engine, error) {
	return createDefault(ctx, config, storeFactory, registerer)
}

// SetExpirationPolicy replaces the policy the metadata index consults
// to decide freshness.
func (e *Engine) SetExpirationPolicy(policy expiration.Policy) {
	e.index.SetPolicy(policy)
}

// SetDataStore replaces the store.Factory Retrieve opens connections
// from.
func (e *Engine) SetDataStore(storeFactory store.Factory) {
	e.store = storeFactory
}

// GetAcceptHeader returns the RDFizer registry's current Accept-header
// preference string.
func (e *Engine) GetAcceptHeader() string {
	return e.rdfizers.AcceptHeader()
}

// RegisterDereferencer exposes the underlying registry for callers
// assembling a custom Engine via New rather than createDefault.
func (e *Engine) RegisterDereferencer(scheme string, d dereference.Dereferencer) {
	e.dereferencers.Register(scheme, d)
}

// RegisterRDFizer exposes the underlying registry for callers assembling
// a custom Engine via New rather than createDefault. name is the
// RDFizer's symbolic identity, recorded on CacheEntry.RDFizer independent
// of which mediaType triggered the lookup.
func (e *Engine) RegisterRDFizer(ctx context.Context, mediaType, name string, r rdfizer.RDFizer, quality float64) error {
	return e.rdfizers.Register(ctx, mediaType, name, r, quality)
}

// getConnection opens a connection under the facade's intrinsic lock,
// per §5's "guarded by the engine's intrinsic lock" for connection
// (re)acquisition. The lock is released before any statement-level I/O
// runs, so concurrent retrievals of distinct graph IRIs still interleave
// freely — only the acquisition itself is serialised.
func (e *Engine) getConnection(ctx context.Context) (store.Connection, error) {
	if err := e.locker.Lock(ctx, engineLockKey, 0); err != nil {
		return nil, fmt.Errorf("engine: locking for connection acquisition: %w", err)
	}
	defer func() { _ = e.locker.Unlock(ctx, engineLockKey) }()

	return e.store.NewConnection(ctx)
}

// Retrieve is the public entry point: it opens a connection, begins its
// lifecycle scope, runs the orchestrator's retrieve, and commits.
func (e *Engine) Retrieve(ctx context.Context, iri string) (memo.CacheEntry, error) {
	conn, err := e.getConnection(ctx)
	if err != nil {
		return memo.CacheEntry{}, err
	}
	defer conn.Close()

	if err := conn.Begin(ctx); err != nil {
		return memo.CacheEntry{}, fmt.Errorf("engine: beginning connection scope: %w", err)
	}

	entry, err := e.retrieve(ctx, iri, conn)
	if err != nil {
		return entry, err
	}

	if err := conn.Commit(ctx); err != nil {
		return entry, fmt.Errorf("engine: committing connection scope: %w", err)
	}

	return entry, nil
}

// Clear drops the in-memory metadata index and, if the underlying
// connection supports it, truncates the store.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.locker.Lock(ctx, engineLockKey, 0); err != nil {
		return fmt.Errorf("engine: locking for clear: %w", err)
	}
	defer func() { _ = e.locker.Unlock(ctx, engineLockKey) }()

	if err := e.index.Clear(ctx); err != nil {
		return err
	}

	conn, err := e.store.NewConnection(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if truncator, ok := conn.(store.Truncator); ok {
		return truncator.Truncate(ctx)
	}

	return nil
}

// Close stops the maintenance cron, if one was started.
func (e *Engine) Close(ctx context.Context) error {
	if err := e.locker.Lock(ctx, engineLockKey, 0); err != nil {
		return fmt.Errorf("engine: locking for close: %w", err)
	}
	defer func() { _ = e.locker.Unlock(ctx, engineLockKey) }()

	if e.cron != nil {
		stopCtx := e.cron.Stop()
		<-stopCtx.Done()
	}

	return nil
}
