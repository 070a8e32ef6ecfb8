// Package redirect implements the Redirect Manager (C3): resolving and
// recording IRI redirect chains as statements in the metadata graph.
package redirect

import (
	"context"
	"fmt"

	"github.com/ripplecache/ripplecache/pkg/store"
)

// DefaultMaxChainLength is the chain length New falls back to when given
// a value <= 0. It bounds how many hops Resolve will follow before
// giving up, guarding against a redirect cycle the visited set somehow
// missed and against a pathologically long chain.
const DefaultMaxChainLength = 16

// ErrChainTooLong is returned when a redirect chain exceeds a Manager's
// configured maximum chain length.
var ErrChainTooLong = fmt.Errorf("redirect: chain exceeds configured maximum hops")

// Manager resolves and records redirects as `…/redirectsTo` statements
// in the default (metadata) graph.
type Manager struct {
	maxChainLength int
}

// New returns a Manager bounding Resolve to maxChainLength hops. A
// value <= 0 falls back to DefaultMaxChainLength.
func New(maxChainLength int) *Manager {
	if maxChainLength <= 0 {
		maxChainLength = DefaultMaxChainLength
	}

	return &Manager{maxChainLength: maxChainLength}
}

// Resolve follows the recorded redirect chain starting at iri and
// returns the terminal IRI, breaking cycles via a visited set and
// bounding the chain at m.maxChainLength.
func (m *Manager) Resolve(ctx context.Context, iri string, conn store.Connection) (string, error) {
	visited := map[string]bool{iri: true}
	current := iri

	for hop := 0; hop <= m.maxChainLength; hop++ {
		statements, err := conn.FindStatements(ctx, store.DefaultGraph, store.PredicateRedirectsTo, current)
		if err != nil {
			return "", fmt.Errorf("redirect: resolving %q: %w", iri, err)
		}

		if len(statements) == 0 {
			return current, nil
		}

		next := statements[0].Object
		if visited[next] {
			return current, nil
		}

		visited[next] = true
		current = next
	}

	return "", fmt.Errorf("%w: limit %d", ErrChainTooLong, m.maxChainLength)
}

// Record stores a source→target redirect as a statement in the default
// graph.
func (m *Manager) Record(ctx context.Context, source, target string, conn store.Connection) error {
	if err := conn.AddStatement(ctx, store.Statement{
		Subject:   source,
		Predicate: store.PredicateRedirectsTo,
		Object:    target,
		Context:   store.DefaultGraph,
	}); err != nil {
		return fmt.Errorf("redirect: recording %q -> %q: %w", source, target, err)
	}

	return nil
}
