package sqlstore

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrUnsupportedDialect is returned when a data store URL's scheme does
// not map to a known dialect.
var ErrUnsupportedDialect = errors.New("sqlstore: unsupported dialect")

// IsDeadlockError reports whether err is a deadlock/lock-busy condition
// across SQLite, PostgreSQL, and MySQL. setMemo's write path retries on
// this rather than surfacing it to the caller.
func IsDeadlockError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy ||
			sqliteErr.Code == sqlite3.ErrLocked ||
			sqliteErr.Code == sqlite3.ErrProtocol
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}

	s := strings.ToLower(err.Error())

	return strings.Contains(s, "deadlock") ||
		strings.Contains(s, "database is locked") ||
		strings.Contains(s, "database is busy")
}

// IsDuplicateKeyError reports whether err is a unique-constraint
// violation across SQLite, PostgreSQL, and MySQL.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	return strings.Contains(err.Error(), "Duplicate entry")
}
