package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/user"
)

const timeLayout = time.RFC3339

// Columns is the select list matching Row.
const Columns = `id, first_name, last_name, email, role, approved, coach_id, created_at`

// Row is the app_user table shape. Other stores reuse it when they lock a user row
// inside their own transaction.
type Row struct {
	ID        string         `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Role      string         `db:"role"`
	Approved  sql.NullBool   `db:"approved"`
	CoachID   sql.NullString `db:"coach_id"`
	CreatedAt string         `db:"created_at"`
}

// ToDomain converts a row. An unknown role is a data fault.
func (r Row) ToDomain() (domain.User, error) {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", r.ID, err)
	}
	u := domain.User{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Role:      role,
		CoachID:   r.CoachID.String,
	}
	if r.Approved.Valid {
		approved := r.Approved.Bool
		u.Approved = &approved
	}
	u.CreatedAt, _ = time.Parse(timeLayout, r.CreatedAt)
	return u, nil
}

// SQLStore implements Store over sqlx.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a User by its ID.
// PRE: id is non-empty
// POST: Returns the user or a NotFound error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	return Get(ctx, s.db, id, false)
}

// Get loads one user through q, optionally locking the row for the enclosing transaction.
func Get(ctx context.Context, q sqlx.ExtContext, id string, lock bool) (domain.User, error) {
	query := `SELECT ` + Columns + ` FROM app_user WHERE id = ?`
	if lock {
		query += storage.LockClause(q)
	}
	var r Row
	if err := sqlx.GetContext(ctx, q, &r, q.Rebind(query), id); err != nil {
		return domain.User{}, storage.Classify(err, "user "+id)
	}
	u, err := r.ToDomain()
	if err != nil {
		return domain.User{}, storage.Classify(err, "user "+id)
	}
	return u, nil
}

// Save inserts or updates a user.
// PRE: u has been validated
// POST: row with u.ID reflects u; a duplicate email is a Conflict
func (s *SQLStore) Save(ctx context.Context, u domain.User) error {
	return Save(ctx, s.db, u)
}

// Save upserts u through q so it can join a caller's transaction.
func Save(ctx context.Context, q sqlx.ExtContext, u domain.User) error {
	var approved sql.NullBool
	if u.Approved != nil {
		approved = sql.NullBool{Bool: *u.Approved, Valid: true}
	}
	coachID := sql.NullString{String: u.CoachID, Valid: u.CoachID != ""}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO app_user (id, first_name, last_name, email, role, approved, coach_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   first_name = excluded.first_name, last_name = excluded.last_name,
		   email = excluded.email, role = excluded.role,
		   approved = excluded.approved, coach_id = excluded.coach_id`),
		u.ID, u.FirstName, u.LastName, u.Email, u.Role.String(), approved, coachID, created.Format(timeLayout))
	return storage.Classify(err, "user with email "+u.Email)
}

// ListByRole returns users with role ordered by last then first name.
// POST: Returns an empty slice when none match
func (s *SQLStore) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var rows []Row
	err := sqlx.SelectContext(ctx, s.db, &rows, s.db.Rebind(
		`SELECT `+Columns+` FROM app_user WHERE role = ? ORDER BY last_name, first_name, id`), role.String())
	if err != nil {
		return nil, storage.Classify(err, "users")
	}
	users := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		u, err := r.ToDomain()
		if err != nil {
			return nil, storage.Classify(err, "users")
		}
		users = append(users, u)
	}
	return users, nil
}
