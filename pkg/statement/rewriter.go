package statement

import "context"

// SingleContextRewriter overwrites every inbound statement's Context with
// GraphIRI before forwarding to Next, regardless of what an RDFizer put
// there. Every statement produced while retrieving one resource belongs
// to exactly one graph.
type SingleContextRewriter struct {
	GraphIRI string
	Next     Handler
}

// Handle rewrites stmt.Context and forwards it.
func (r *SingleContextRewriter) Handle(ctx context.Context, stmt Statement) error {
	stmt.Context = IRI(r.GraphIRI)

	return r.Next.Handle(ctx, stmt)
}
