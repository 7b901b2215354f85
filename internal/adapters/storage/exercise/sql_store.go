package exercise

import (
	"context"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/exercise"
)

type row struct {
	ID       string `db:"id"`
	Category string `db:"category"`
	Name     string `db:"name"`
}

// SQLStore implements Store over sqlx.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a catalog entry.
// PRE: id is non-empty
// POST: Returns the exercise or a NotFound error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Exercise, error) {
	var r row
	err := sqlx.GetContext(ctx, s.db, &r, s.db.Rebind(`SELECT id, category, name FROM exercise WHERE id = ?`), id)
	if err != nil {
		return domain.Exercise{}, storage.Classify(err, "exercise "+id)
	}
	return domain.Exercise(r), nil
}

// Create appends a catalog entry.
// PRE: e has been validated
// POST: Entry is persisted; a reused ID is a Conflict
func (s *SQLStore) Create(ctx context.Context, e domain.Exercise) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO exercise (id, category, name) VALUES (?, ?, ?)`),
		e.ID, e.Category, e.Name)
	return storage.Classify(err, "exercise "+e.ID)
}

// List returns the catalog ordered by category then name.
func (s *SQLStore) List(ctx context.Context) ([]domain.Exercise, error) {
	var rows []row
	if err := sqlx.SelectContext(ctx, s.db, &rows, `SELECT id, category, name FROM exercise ORDER BY category, name`); err != nil {
		return nil, storage.Classify(err, "exercises")
	}
	out := make([]domain.Exercise, len(rows))
	for i, r := range rows {
		out[i] = domain.Exercise(r)
	}
	return out, nil
}
