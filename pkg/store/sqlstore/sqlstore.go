// Package sqlstore implements store.Connection on top of database/sql via
// uptrace/bun, across SQLite, PostgreSQL, and MySQL. Dialect selection
// follows the URL scheme exactly as the teacher's pkg/database/type.go
// sniffs a Nix-cache metadata URL; the deadlock/duplicate-key error
// classification in errors.go is the same per-driver errors.As cascade,
// applied to write-retry instead of upstream-signature bookkeeping.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/ripplecache/ripplecache/pkg/store"
)

// PoolConfig tunes the underlying *sql.DB connection pool. A zero value
// selects dialect-appropriate defaults.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// WriteRetry bounds how many attempts a write gets, the first one
// included, while it keeps failing with a classified deadlock/busy error.
const WriteRetry = 3

// Store is a store.Connection backed by a SQL database via bun.
type Store struct {
	db          *bun.DB
	dialectType Type
}

// Open connects to dbURL, selecting a dialect from its scheme, and
// ensures the statements table exists.
func Open(ctx context.Context, dbURL string, poolCfg *PoolConfig) (*Store, error) {
	typ, err := DetectFromDataStoreURL(dbURL)
	if err != nil {
		return nil, err
	}

	sdb, dialect, err := openDialect(typ, dbURL, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s: %w", typ, err)
	}

	db := bun.NewDB(sdb, dialect)

	if _, err := db.NewCreateTable().Model((*quad)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: creating statements table: %w", err)
	}

	return &Store{db: db, dialectType: typ}, nil
}

func openDialect(typ Type, dbURL string, poolCfg *PoolConfig) (*sql.DB, bun.Dialect, error) {
	switch typ {
	case TypeSQLite:
		return openSQLite(dbURL, poolCfg)
	case TypePostgreSQL:
		return openPostgreSQL(dbURL, poolCfg)
	case TypeMySQL:
		return openMySQL(dbURL, poolCfg)
	case TypeUnknown:
		fallthrough
	default:
		return nil, nil, ErrUnsupportedDialect
	}
}

func openSQLite(dbURL string, poolCfg *PoolConfig) (*sql.DB, bun.Dialect, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, nil, err
	}

	sdb, err := otelsql.Open("sqlite3", u.Path, otelsql.WithAttributes(semconv.DBSystemSqlite))
	if err != nil {
		return nil, nil, err
	}

	// SQLite allows only one writer at a time; a larger pool just produces
	// "database is locked" errors under concurrent retrievals.
	sdb.SetMaxOpenConns(1)

	if poolCfg != nil && poolCfg.MaxIdleConns > 0 {
		sdb.SetMaxIdleConns(poolCfg.MaxIdleConns)
	}

	return sdb, sqlitedialect.New(), nil
}

func openPostgreSQL(dbURL string, poolCfg *PoolConfig) (*sql.DB, bun.Dialect, error) {
	sdb, err := otelsql.Open("pgx", dbURL, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		return nil, nil, err
	}

	applyPoolSettings(sdb, poolCfg, 25, 5)

	return sdb, pgdialect.New(), nil
}

func openMySQL(dbURL string, poolCfg *PoolConfig) (*sql.DB, bun.Dialect, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, nil, err
	}

	userinfo := ""
	if u.User != nil {
		userinfo = u.User.String()
	}

	dsn := fmt.Sprintf("%s@tcp(%s)%s?parseTime=true&loc=UTC", userinfo, u.Host, u.Path)

	sdb, err := otelsql.Open("mysql", dsn, otelsql.WithAttributes(semconv.DBSystemMySQL))
	if err != nil {
		return nil, nil, err
	}

	applyPoolSettings(sdb, poolCfg, 25, 5)

	return sdb, mysqldialect.New(), nil
}

func applyPoolSettings(sdb *sql.DB, poolCfg *PoolConfig, defaultMaxOpen, defaultMaxIdle int) {
	maxOpen, maxIdle := defaultMaxOpen, defaultMaxIdle

	if poolCfg != nil {
		if poolCfg.MaxOpenConns > 0 {
			maxOpen = poolCfg.MaxOpenConns
		}

		if poolCfg.MaxIdleConns > 0 {
			maxIdle = poolCfg.MaxIdleConns
		}
	}

	sdb.SetMaxOpenConns(maxOpen)
	sdb.SetMaxIdleConns(maxIdle)
}

// AddStatement inserts a single statement, making at most WriteRetry
// attempts while the failure is a classified deadlock/busy error.
func (s *Store) AddStatement(ctx context.Context, stmt store.Statement) error {
	return s.withWriteRetry(func() error {
		_, err := s.db.NewInsert().Model(&quad{
			Subject:   stmt.Subject,
			Predicate: stmt.Predicate,
			Object:    stmt.Object,
			Context:   stmt.Context,
		}).Exec(ctx)

		return err
	})
}

// RemoveStatements deletes statements in ctxIRI matching predicate and
// subject, when non-empty.
func (s *Store) RemoveStatements(ctx context.Context, ctxIRI, predicate, subject string) error {
	return s.withWriteRetry(func() error {
		q := s.db.NewDelete().Model((*quad)(nil)).Where("context = ?", ctxIRI)
		if predicate != "" {
			q = q.Where("predicate = ?", predicate)
		}

		if subject != "" {
			q = q.Where("subject = ?", subject)
		}

		_, err := q.Exec(ctx)

		return err
	})
}

// FindStatements returns statements in ctxIRI matching predicate and
// subject, when non-empty.
func (s *Store) FindStatements(ctx context.Context, ctxIRI, predicate, subject string) ([]store.Statement, error) {
	var rows []quad

	q := s.db.NewSelect().Model(&rows).Where("context = ?", ctxIRI)
	if predicate != "" {
		q = q.Where("predicate = ?", predicate)
	}

	if subject != "" {
		q = q.Where("subject = ?", subject)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: finding statements: %w", err)
	}

	out := make([]store.Statement, len(rows))
	for i, r := range rows {
		out[i] = store.Statement{Subject: r.Subject, Predicate: r.Predicate, Object: r.Object, Context: r.Context}
	}

	return out, nil
}

// Begin is a no-op: each method already commits its own statement, and
// the orchestrator's cross-statement atomicity requirement (remove then
// insert the replacement memo) is satisfied by RemoveStatements/
// AddStatement running back-to-back under the metadata index's lock, not
// by a SQL transaction spanning them.
func (s *Store) Begin(_ context.Context) error { return nil }

// Commit is a no-op, matching Begin.
func (s *Store) Commit(_ context.Context) error { return nil }

// Close closes the underlying database connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Truncate deletes every row in the statements table, across every context.
func (s *Store) Truncate(ctx context.Context) error {
	return s.withWriteRetry(func() error {
		_, err := s.db.NewDelete().Model((*quad)(nil)).Where("1 = 1").Exec(ctx)

		return err
	})
}

func (s *Store) withWriteRetry(fn func() error) error {
	var err error

	for attempt := 0; attempt < WriteRetry; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if !IsDeadlockError(err) {
			return err
		}

		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}

	return fmt.Errorf("sqlstore: write failed after %d attempts: %w", WriteRetry, err)
}
