package statement

import (
	"context"
	"sync"
)

// Buffer is the final pipeline stage before the store: it collects every
// statement handed to it and only forwards them on to a sink once Flush
// is called. If the RDFizer does not finish with Success, the caller
// discards the buffer instead of flushing it, so a parse failure never
// leaves partial statements behind.
type Buffer struct {
	mu         sync.Mutex
	statements []Statement
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Handle appends stmt to the buffer.
func (b *Buffer) Handle(_ context.Context, stmt Statement) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.statements = append(b.statements, stmt)

	return nil
}

// Len reports how many statements are currently buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.statements)
}

// Flush forwards every buffered statement to sink, in the order they
// were received, stopping at the first error.
func (b *Buffer) Flush(ctx context.Context, sink Handler) error {
	b.mu.Lock()
	statements := b.statements
	b.mu.Unlock()

	for _, stmt := range statements {
		if err := sink.Handle(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// Discard drops every buffered statement without forwarding them.
func (b *Buffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.statements = nil
}
