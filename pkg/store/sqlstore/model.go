package sqlstore

import "github.com/uptrace/bun"

// quad is the bun model backing the statement table. It mirrors
// store.Statement exactly; the conversion is a one-to-one field copy.
type quad struct {
	bun.BaseModel `bun:"table:statements,alias:st"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Subject   string `bun:"subject,notnull"`
	Predicate string `bun:"predicate,notnull"`
	Object    string `bun:"object,notnull"`
	Context   string `bun:"context,notnull"`
}
