package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"coachdesk/internal/domain/apperr"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLiteDSN turns a file path into a modernc DSN with the pragmas every connection needs.
// Writers take the lock at BEGIN so concurrent transactions serialize instead of failing
// on upgrade.
// PRE: path is a file path or ":memory:"
// POST: returns a DSN accepted by the "sqlite" driver
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(path, "file:") + sep +
		"_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_txlock=immediate"
}

// Open connects to driver/dsn and verifies the connection.
// PRE: driver is DriverSQLite or DriverPostgres
// POST: Returns a pinged *sqlx.DB; an in-memory sqlite DB is pinned to one connection
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = SQLiteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		maxOpenConns = 1
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func newMigrationProvider(db *sqlx.DB) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch db.DriverName() {
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	case DriverPostgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("no migration dialect for driver %q", db.DriverName())
	}
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db.DB, fsys)
}

// Migrate applies every pending embedded migration.
// PRE: db is open
// POST: schema is at the latest version; already-applied migrations are skipped
func Migrate(ctx context.Context, db *sqlx.DB) error {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration_event", "event", "applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(ctx context.Context, db *sqlx.DB) (int64, error) {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

// WithTx runs fn inside a transaction, committing when fn returns nil and rolling back
// otherwise (including on panic).
// PRE: db is open
// POST: fn's writes are either all committed or none are
func WithTx(ctx context.Context, db SQLDB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Classify(err, "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return Classify(err, "commit transaction")
	}
	return nil
}

// LockClause returns the row-lock suffix for SELECTs that must block concurrent writers.
// sqlite transactions already hold the database write lock from BEGIN.
func LockClause(q sqlx.ExtContext) string {
	if q.DriverName() == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// IsUniqueViolation reports whether err is a unique or primary key constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

// isContention reports lock timeouts, deadlocks and serialization failures.
func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// Classify maps a store error onto the application error kinds. what names the
// entity or step for the caller-facing message.
// POST: nil stays nil; apperr errors pass through unchanged
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("%s not found", what)
	case IsUniqueViolation(err):
		return &apperr.Error{Kind: apperr.ErrConflict, Message: what + " already exists", Err: err}
	case isContention(err):
		return &apperr.Error{Kind: apperr.ErrConflict, Message: "concurrent update of " + what + ", retry", Err: err}
	}
	return apperr.Internal(err, what)
}
