// Package memstore implements an in-process, mutex-guarded store.Connection.
// It is the backend cmd selects by default (--store-driver=memory), and the
// implementation the package's own test suite is written against, the same
// role pkg/storage/local plays for the teacher's NAR/narinfo stores.
package memstore

import (
	"context"
	"sync"

	"github.com/ripplecache/ripplecache/pkg/store"
)

// Store is an in-memory store.Connection. The zero value is not usable;
// construct one with New.
type Store struct {
	mu    sync.Mutex
	quads []store.Statement
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Factory adapts Store to store.Factory, always returning the same
// underlying Store so state is shared across every retrieval.
type Factory struct {
	store *Store
}

// NewFactory wraps an existing Store (or a fresh one, if s is nil) as a
// store.Factory.
func NewFactory(s *Store) *Factory {
	if s == nil {
		s = New()
	}

	return &Factory{store: s}
}

// NewConnection returns the shared in-memory store, ignoring ctx.
func (f *Factory) NewConnection(_ context.Context) (store.Connection, error) {
	return f.store, nil
}

// AddStatement appends stmt to the store.
func (s *Store) AddStatement(_ context.Context, stmt store.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quads = append(s.quads, stmt)

	return nil
}

// RemoveStatements deletes every statement in ctxIRI whose predicate and
// subject match (an empty predicate or subject matches anything).
func (s *Store) RemoveStatements(_ context.Context, ctxIRI, predicate, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.quads[:0]

	for _, q := range s.quads {
		if q.Context == ctxIRI && (predicate == "" || q.Predicate == predicate) && (subject == "" || q.Subject == subject) {
			continue
		}

		kept = append(kept, q)
	}

	s.quads = kept

	return nil
}

// FindStatements returns statements in ctxIRI matching the given
// predicate and subject, when non-empty.
func (s *Store) FindStatements(_ context.Context, ctxIRI, predicate, subject string) ([]store.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Statement

	for _, q := range s.quads {
		if q.Context != ctxIRI {
			continue
		}

		if predicate != "" && q.Predicate != predicate {
			continue
		}

		if subject != "" && q.Subject != subject {
			continue
		}

		out = append(out, q)
	}

	return out, nil
}

// Begin is a no-op: memstore has no transaction boundary narrower than
// its own mutex, which every method already takes.
func (s *Store) Begin(_ context.Context) error { return nil }

// Commit is a no-op, matching Begin.
func (s *Store) Commit(_ context.Context) error { return nil }

// Close is a no-op; memstore holds no external resources.
func (s *Store) Close() error { return nil }

// Truncate drops every statement in the store, across every context.
func (s *Store) Truncate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quads = nil

	return nil
}
