package statement

import (
	"context"
	"fmt"

	"github.com/ripplecache/ripplecache/pkg/store"
)

// StoreInserter is the pipeline's terminal Handler: it converts each
// Statement to a flat store.Statement and writes it through conn. The
// conversion lives here, at the one boundary that needs it, rather than
// in pkg/store itself, since pkg/store is deliberately kept independent
// of this package's richer term algebra (see pkg/store's package doc).
type StoreInserter struct {
	Conn store.Connection
}

// NewStoreInserter returns a StoreInserter writing through conn.
func NewStoreInserter(conn store.Connection) *StoreInserter {
	return &StoreInserter{Conn: conn}
}

// Handle inserts stmt into the underlying store.
func (s *StoreInserter) Handle(ctx context.Context, stmt Statement) error {
	if err := s.Conn.AddStatement(ctx, store.Statement{
		Subject:   stmt.Subject.String(),
		Predicate: stmt.Predicate.String(),
		Object:    encodeObject(stmt.Object),
		Context:   stmt.Context.String(),
	}); err != nil {
		return fmt.Errorf("statement: inserting: %w", err)
	}

	return nil
}

// encodeObject renders a Term's lexical form without the quoting/suffix
// decoration Term.String adds for logging; the store only holds bare
// strings, so a literal's language tag and datatype are dropped and only
// its lexical form is stored, in the same column as IRI and blank-node
// values.
func encodeObject(t Term) string {
	return t.Value
}
