// Package storagetest opens migrated throwaway databases for store tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"coachdesk/internal/adapters/storage"
)

// Open returns a migrated sqlite database in a temp dir, closed when the test ends.
// A file is used rather than :memory: so concurrent connections share one database.
func Open(t testing.TB) *storage.TimedDB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "coachdesk.db"), 4)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return storage.NewTimedDB(db, nil, 0)
}

// Exec runs setup statements, failing the test on error.
func Exec(t testing.TB, db storage.SQLDB, stmts ...string) {
	t.Helper()
	for _, q := range stmts {
		if _, err := db.ExecContext(context.Background(), q); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
}
