package statement

import "context"

// Handler receives statements one at a time. RDFizers emit through a
// Handler only; they never touch the triple store directly, and never
// see the pipeline stages downstream of the one they were handed.
type Handler interface {
	Handle(ctx context.Context, stmt Statement) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, stmt Statement) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, stmt Statement) error { return f(ctx, stmt) }
