package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/metrics"
)

// SQLDB is the database interface used by all stores.
// Both *sqlx.DB and *TimedDB satisfy this interface. Inside a transaction stores work
// against the narrower sqlx.ExtContext, which *sqlx.Tx also satisfies.
type SQLDB interface {
	sqlx.ExtContext
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Compile-time check that *sqlx.DB satisfies SQLDB.
var _ SQLDB = (*sqlx.DB)(nil)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sqlx.DB to log slow queries and record latency histograms.
// Satisfies the SQLDB interface so it can be passed to any store constructor.
type TimedDB struct {
	db        *sqlx.DB
	collector *metrics.Collector
	threshold time.Duration
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB that logs queries slower than threshold at WARN
func NewTimedDB(db *sqlx.DB, collector *metrics.Collector, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, threshold: threshold}
}

// RawDB returns the underlying *sqlx.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sqlx.DB {
	return t.db
}

// logQuery logs and records a query timing.
func (t *TimedDB) logQuery(op string, start time.Time) {
	d := time.Since(start)
	durationMs := float64(d.Microseconds()) / 1000.0

	if d >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}
	t.collector.Record(metrics.Entry{Kind: metrics.KindQuery, Path: op, Duration: d})
}

// DriverName returns the driver the connection was opened with.
func (t *TimedDB) DriverName() string { return t.db.DriverName() }

// Rebind converts ? placeholders into the driver's bindvar style.
func (t *TimedDB) Rebind(query string) string { return t.db.Rebind(query) }

// BindNamed binds a query using the driver's bindvar style.
func (t *TimedDB) BindNamed(query string, arg any) (string, []any, error) {
	return t.db.BindNamed(query, arg)
}

// ExecContext wraps sqlx.DB.ExecContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("ExecContext", start)
	return result, err
}

// QueryContext wraps sqlx.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.logQuery("QueryContext", start)
	return rows, err
}

// QueryxContext wraps sqlx.DB.QueryxContext with timing.
func (t *TimedDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryxContext(ctx, query, args...)
	t.logQuery("QueryxContext", start)
	return rows, err
}

// QueryRowxContext wraps sqlx.DB.QueryRowxContext with timing.
// The row is not read until Scan, so only statement dispatch is measured.
func (t *TimedDB) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	start := time.Now()
	row := t.db.QueryRowxContext(ctx, query, args...)
	t.logQuery("QueryRowxContext", start)
	return row
}

// BeginTxx wraps sqlx.DB.BeginTxx with timing.
// PRE: ctx is valid
// POST: transaction started, timing recorded
func (t *TimedDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTxx(ctx, opts)
	t.logQuery("BeginTxx", start)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
// PRE: none
// POST: returns nil if connection is alive
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}
