package sqlstore

import (
	"fmt"
	"net/url"
	"strings"
)

// Type identifies which SQL dialect a data-store URL selects.
type Type uint8

// Supported dialects.
const (
	TypeUnknown Type = iota
	TypeSQLite
	TypePostgreSQL
	TypeMySQL
)

// String returns the human-readable dialect name.
func (t Type) String() string {
	switch t {
	case TypeSQLite:
		return "SQLite"
	case TypePostgreSQL:
		return "PostgreSQL"
	case TypeMySQL:
		return "MySQL"
	case TypeUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

// DetectFromDataStoreURL inspects the scheme of dbURL and reports which
// dialect it selects: sqlite/sqlite3, postgres/postgresql, or mysql.
func DetectFromDataStoreURL(dbURL string) (Type, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return TypeUnknown, fmt.Errorf("sqlstore: parsing data store URL %q: %w", dbURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	case "postgres", "postgresql":
		return TypePostgreSQL, nil
	case "mysql":
		return TypeMySQL, nil
	default:
		return TypeUnknown, fmt.Errorf("%w: %q", ErrUnsupportedDialect, u.Scheme)
	}
}
