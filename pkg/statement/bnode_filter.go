package statement

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// BNodeToIriFilter replaces every blank node it sees with a freshly
// minted IRI, deterministic within one run: the same blank-node label
// seen twice in the same retrieval maps to the same replacement IRI, but
// two different retrievals of the same resource never collide, since
// each filter instance mints its own UUIDs.
//
// Used when the cache is configured with useBlankNodes=false, since some
// downstream consumers of the store cannot address a bare blank node.
type BNodeToIriFilter struct {
	GraphIRI string
	Next     Handler

	mu      sync.Mutex
	mapping map[string]string
}

// NewBNodeToIriFilter constructs a filter rewriting blank nodes into
// IRIs scoped under graphIRI.
func NewBNodeToIriFilter(graphIRI string, next Handler) *BNodeToIriFilter {
	return &BNodeToIriFilter{GraphIRI: graphIRI, Next: next, mapping: make(map[string]string)}
}

// Handle rewrites any blank-node subject/object in stmt and forwards it.
func (f *BNodeToIriFilter) Handle(ctx context.Context, stmt Statement) error {
	stmt.Subject = f.replace(stmt.Subject)
	stmt.Object = f.replace(stmt.Object)

	return f.Next.Handle(ctx, stmt)
}

func (f *BNodeToIriFilter) replace(t Term) Term {
	if !t.IsBlankNode() {
		return t
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	iri, ok := f.mapping[t.Value]
	if !ok {
		iri = fmt.Sprintf("urn:ripplecache:bnode:%s:%s", f.GraphIRI, uuid.NewString())
		f.mapping[t.Value] = iri
	}

	return IRI(iri)
}
