// Package store defines the triple-store connection collaborator the
// caching engine persists statements through, and the flat quad
// representation used on the wire between the engine and its backends.
//
// A Connection is deliberately string-based rather than built on
// pkg/statement's richer Term algebra: the engine's own Term/Literal/
// BlankNode distinctions are a concern of composing and rewriting
// statements before they reach a store, not of storing them. Keeping
// Connection string-typed also means pkg/store never needs to import
// pkg/statement, avoiding an import cycle (pkg/statement imports
// pkg/store for StoreInserter).
package store

import (
	"context"
	"errors"
)

// DefaultGraph is the context value used for metadata statements (memo
// records and redirect records), as opposed to statements fetched from a
// specific document, which live in a graph named after that document.
const DefaultGraph = ""

// Metadata predicate IRIs used by the memo and redirect managers.
const (
	Namespace            = "https://ripplecache.dev/ns#"
	PredicateMemo        = Namespace + "memo"
	PredicateRedirectsTo = Namespace + "redirectsTo"
)

// ErrNotFound is returned when a lookup finds no matching statements.
var ErrNotFound = errors.New("store: not found")

// Statement is a flat subject/predicate/object/context quad, the unit
// both Connection and the statement pipeline operate on once a Handler
// has reduced a parsed RDF term stream to its wire representation.
type Statement struct {
	Subject   string
	Predicate string
	Object    string
	Context   string
}

// Connection is the collaborator the engine persists statements through.
// Implementations: pkg/store/memstore (in-process, default) and
// pkg/store/sqlstore (SQL-backed, multi-dialect).
type Connection interface {
	// AddStatement inserts a single statement. Implementations must be
	// safe for concurrent use across distinct graph contexts; the engine
	// only guarantees serialization per graph IRI.
	AddStatement(ctx context.Context, stmt Statement) error

	// RemoveStatements deletes every statement matching the given
	// context, optionally further narrowed by predicate and subject. An
	// empty predicate or subject matches every predicate or subject in
	// that context.
	RemoveStatements(ctx context.Context, ctxIRI, predicate, subject string) error

	// FindStatements returns every statement matching the given context
	// and, if non-empty, predicate and subject.
	FindStatements(ctx context.Context, ctxIRI, predicate, subject string) ([]Statement, error)

	// Begin starts an implementation-defined lifecycle scope; memstore
	// and sqlstore both implement it as a no-op, since each of their
	// methods completes on its own. Callers must call Commit or the
	// connection may leak resources.
	Begin(ctx context.Context) error

	// Commit ends the lifecycle scope started by Begin.
	Commit(ctx context.Context) error

	// Close releases any resources held by the connection (pooled SQL
	// connections, open files). Safe to call more than once.
	Close() error
}

// Factory constructs Connections, e.g. one per retrieval or one shared
// instance for the lifetime of the engine, depending on the backend.
type Factory interface {
	// NewConnection returns a ready-to-use Connection.
	NewConnection(ctx context.Context) (Connection, error)
}

// Truncator is an optional capability a Connection may implement to
// drop every statement it holds regardless of context — the store-side
// half of the engine facade's Clear operation. A Connection that
// doesn't implement it is only cleared in memory (the metadata index),
// not at the store.
type Truncator interface {
	Truncate(ctx context.Context) error
}

// Ptr returns a pointer to v, useful for populating optional CacheEntry
// fields (mediaType, dereferencer, rdfizer) inline.
func Ptr[T any](v T) *T { return &v }
