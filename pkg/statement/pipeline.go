package statement

import (
	"context"

	"github.com/ripplecache/ripplecache/pkg/store"
)

// SinkFactory is the injection point for write-side behaviour (the
// DataStoreFactory collaborator of spec §6): given the connection the
// orchestrator is already holding for this retrieval, it produces the
// Handler the pipeline's buffer is eventually flushed into. It is
// deliberately handed the existing conn rather than opening one of its
// own — an earlier draft had it open a second connection from a
// store.Factory, which meant every retrieval wrote through two
// independent paths to the same backing store for no reason. Taking
// conn as a parameter collapses that to one path while keeping the
// seam tests need to intercept writes.
type SinkFactory interface {
	NewSink(ctx context.Context, conn store.Connection) (Handler, error)
}

// SinkFactoryFunc adapts a function to a SinkFactory.
type SinkFactoryFunc func(ctx context.Context, conn store.Connection) (Handler, error)

// NewSink calls f.
func (f SinkFactoryFunc) NewSink(ctx context.Context, conn store.Connection) (Handler, error) {
	return f(ctx, conn)
}

// DefaultSinkFactory wraps conn in a StoreInserter; it is the
// SinkFactory createDefault wires unless a caller overrides it.
type DefaultSinkFactory struct{}

// NewSink returns a StoreInserter over conn.
func (DefaultSinkFactory) NewSink(_ context.Context, conn store.Connection) (Handler, error) {
	return NewStoreInserter(conn), nil
}

// Pipeline is the assembled chain of stages an RDFizer writes into:
// SingleContextRewriter, optionally BNodeToIriFilter, terminating in a
// Buffer. It is assembled fresh per retrieval since its GraphIRI and
// buffered statements are specific to one resource.
type Pipeline struct {
	// Head is the first stage; RDFizers call Head.Handle.
	Head Handler

	// Buffer is the terminal stage, holding every statement until the
	// caller decides whether to Flush or Discard it.
	Buffer *Buffer
}

// NewPipeline assembles a Pipeline for one retrieval of graphIRI. When
// useBlankNodes is false, blank nodes are rewritten to IRIs before
// reaching the buffer.
func NewPipeline(graphIRI string, useBlankNodes bool) *Pipeline {
	buf := NewBuffer()

	var head Handler = buf
	if !useBlankNodes {
		head = NewBNodeToIriFilter(graphIRI, head)
	}

	head = &SingleContextRewriter{GraphIRI: graphIRI, Next: head}

	return &Pipeline{Head: head, Buffer: buf}
}
