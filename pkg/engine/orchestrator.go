package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ripplecache/ripplecache/pkg/iri"
	"github.com/ripplecache/ripplecache/pkg/memo"
	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
	"github.com/ripplecache/ripplecache/pkg/store"
)

// retrieve is the orchestrator's single operation (C7): the 12-step
// algorithm of §4.7. conn is the store connection this call writes
// through, supplied by the caller (Engine.Retrieve opens one per call
// from the configured store.Factory).
//
// A losing thread — one for which getOrCreateMemo reports an entry
// already past CacheLookup — returns that entry immediately without
// touching the network, the pipeline, or conn. This is step 3.
func (e *Engine) retrieve(ctx context.Context, rawIri string, conn store.Connection) (memo.CacheEntry, error) {
	// A chain recorded by an earlier call (e.g. rawIri 3xx'd to some other
	// IRI last time) is resolved to its terminal IRI up front, so this
	// call's cache lookup and dereference both target the terminal
	// resource directly instead of re-discovering the same redirect hop
	// by hop on every retrieve.
	resolved, resolveErr := e.redirects.Resolve(ctx, rawIri, conn)
	if resolveErr != nil {
		// A chain too long to resolve (redirect.ErrChainTooLong) is the
		// same DereferencerError terminal status a pathological upstream
		// would produce directly (§8 property 8: "resolves to
		// DereferencerError rather than hanging"), not a bare error that
		// skips persistence.
		parsed, err := iri.Parse(rawIri)
		if err != nil {
			return memo.CacheEntry{}, err
		}

		graphIri := parsed.GraphIRI()
		entry := memo.NewUndetermined()
		entry.MarkTerminal(memo.DereferencerError, time.Now())
		e.finishRetrieval(ctx, graphIri, &entry, conn, time.Now(), resolveErr)

		return entry, nil
	}

	rawIri = resolved

	parsed, err := iri.Parse(rawIri)
	if err != nil {
		return memo.CacheEntry{}, err
	}

	graphIri := parsed.GraphIRI()

	ctx, span := tracer.Start(ctx, "engine.retrieve", trace.WithAttributes(
		attribute.String("graph_iri", graphIri),
	))
	defer span.End()

	entry, err := e.index.GetOrCreateMemo(ctx, graphIri, conn)
	if err != nil {
		return memo.CacheEntry{}, err
	}

	if entry.Status != memo.CacheLookup {
		return entry, nil
	}

	start := time.Now()
	entry = memo.NewUndetermined()

	// Publish the Undetermined transition into the shared index (memory
	// only — a nil conn skips the store write) before any blocking I/O,
	// so a concurrent call for the same graph IRI observes a status past
	// CacheLookup and short-circuits instead of dispatching a second
	// dereference of the same resource.
	if err := e.index.SetMemo(ctx, graphIri, entry, nil); err != nil {
		return memo.CacheEntry{}, err
	}

	scheme := parsed.Scheme()

	dereferencer, ok := e.dereferencers.Lookup(scheme, rawIri)
	if !ok {
		// No dereferencer for this scheme: entry stays Undetermined and is
		// not persisted, matching the state machine's "(returns, remains
		// Undetermined)" transition — there is nothing worth remembering.
		return entry, nil
	}

	entry.Dereferencer = scheme
	entry.Status = memo.DereferencerError

	if err := e.index.SetMemo(ctx, graphIri, entry, nil); err != nil {
		return memo.CacheEntry{}, err
	}

	rep, err := dereferencer.Dereference(ctx, rawIri)
	if err != nil {
		entry.MarkTerminal(memo.DereferencerError, time.Now())
		e.finishRetrieval(ctx, graphIri, &entry, conn, start, err)

		return entry, nil
	}

	if rep == nil {
		entry.MarkTerminal(memo.RedirectsToCached, time.Now())
		e.finishRetrieval(ctx, graphIri, &entry, conn, start, nil)

		return entry, nil
	}
	defer rep.Body.Close()

	entry.MediaType = rep.MediaType

	rdfz, rdfizerName, ok := e.rdfizers.Lookup(rep.MediaType)
	if !ok {
		entry.MarkTerminal(memo.BadMediaType, time.Now())
		e.finishRetrieval(ctx, graphIri, &entry, conn, start, nil)

		return entry, nil
	}

	entry.RDFizer = rdfizerName

	pipeline := statement.NewPipeline(graphIri, e.config.UseBlankNodes)

	status := rdfz.Rdfize(ctx, rep.Body, pipeline.Head, parsed.Base())
	entry.MarkTerminal(fromRdfizerStatus(status), time.Now())

	if entry.Status == memo.Success {
		if err := conn.RemoveStatements(ctx, graphIri, "", ""); err != nil {
			e.finishRetrieval(ctx, graphIri, &entry, conn, start, err)

			return entry, err
		}

		sink, err := e.sinkFactory.NewSink(ctx, conn)
		if err != nil {
			e.finishRetrieval(ctx, graphIri, &entry, conn, start, err)

			return entry, err
		}

		if err := pipeline.Buffer.Flush(ctx, sink); err != nil {
			e.finishRetrieval(ctx, graphIri, &entry, conn, start, err)

			return entry, err
		}
	} else {
		pipeline.Buffer.Discard()
	}

	e.finishRetrieval(ctx, graphIri, &entry, conn, start, nil)

	return entry, nil
}

// finishRetrieval is step 12: persist the entry regardless of outcome,
// log non-success outcomes at info level, and record metrics. err, when
// non-nil, is a store-level I/O error that's logged alongside the
// entry's status but does not prevent the persistence attempt (spec §7:
// "the entry is still persisted if the connection is usable").
func (e *Engine) finishRetrieval(
	ctx context.Context,
	graphIri string,
	entry *memo.CacheEntry,
	conn store.Connection,
	start time.Time,
	err error,
) {
	log := zerolog.Ctx(ctx)

	if entry.Status != memo.Success || err != nil {
		event := log.Info()
		if err != nil {
			event = log.Error().Err(err)
		}

		event.Str("graph_iri", graphIri).Str("status", entry.Status.String()).
			Msg("engine: retrieval did not reach Success")
	}

	if setErr := e.index.SetMemo(ctx, graphIri, *entry, conn); setErr != nil {
		log.Error().Err(setErr).Str("graph_iri", graphIri).Msg("engine: persisting memo failed")
	}

	e.metrics.retrievals.WithLabelValues(entry.Status.String()).Inc()
	e.metrics.duration.WithLabelValues(entry.Status.String()).Observe(time.Since(start).Seconds())
}

func fromRdfizerStatus(s rdfizer.Status) memo.Status {
	switch s {
	case rdfizer.Success:
		return memo.Success
	case rdfizer.Failure:
		return memo.Failure
	default:
		return memo.ParseError
	}
}
