package checkin

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/checkin"
)

const columns = `id, client_template_id, start_date, end_date, coach_comment, client_comment, completed,
	image_front, image_back, image_side_a, image_side_b`

type row struct {
	ID            string         `db:"id"`
	TemplateID    string         `db:"client_template_id"`
	StartDate     string         `db:"start_date"`
	EndDate       sql.NullString `db:"end_date"`
	CoachComment  sql.NullString `db:"coach_comment"`
	ClientComment sql.NullString `db:"client_comment"`
	Completed     bool           `db:"completed"`
	ImageFront    string         `db:"image_front"`
	ImageBack     string         `db:"image_back"`
	ImageSideA    string         `db:"image_side_a"`
	ImageSideB    string         `db:"image_side_b"`
}

func (r row) toDomain() domain.CheckIn {
	return domain.CheckIn{
		ID:            r.ID,
		TemplateID:    r.TemplateID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate.String,
		CoachComment:  nullablePtr(r.CoachComment),
		ClientComment: nullablePtr(r.ClientComment),
		Completed:     r.Completed,
		Images: domain.Images{
			Front: r.ImageFront,
			Back:  r.ImageBack,
			SideA: r.ImageSideA,
			SideB: r.ImageSideB,
		},
	}
}

func nullablePtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrNullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// SQLStore implements Store over sqlx.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a check-in.
// PRE: id is non-empty
// POST: Returns the check-in or a NotFound error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.CheckIn, error) {
	var r row
	if err := sqlx.GetContext(ctx, s.db, &r, s.db.Rebind(`SELECT `+columns+` FROM check_in WHERE id = ?`), id); err != nil {
		return domain.CheckIn{}, storage.Classify(err, "check-in "+id)
	}
	return r.toDomain(), nil
}

// Update writes the mutable fields of ci.
// PRE: ci has been validated
// POST: comments, completion and image keys reflect ci; NotFound if the row is gone
func (s *SQLStore) Update(ctx context.Context, ci domain.CheckIn) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE check_in SET coach_comment = ?, client_comment = ?, completed = ?,
		   image_front = ?, image_back = ?, image_side_a = ?, image_side_b = ?
		 WHERE id = ?`),
		ptrNullable(ci.CoachComment), ptrNullable(ci.ClientComment), ci.Completed,
		ci.Images.Front, ci.Images.Back, ci.Images.SideA, ci.Images.SideB, ci.ID)
	if err != nil {
		return storage.Classify(err, "check-in "+ci.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.Classify(sql.ErrNoRows, "check-in "+ci.ID)
	}
	return nil
}

// ListByTemplate returns the check-ins of a template ordered by start date.
func (s *SQLStore) ListByTemplate(ctx context.Context, templateID string) ([]domain.CheckIn, error) {
	return List(ctx, s.db, templateID)
}

// List loads the check-ins of templateID through q.
func List(ctx context.Context, q sqlx.ExtContext, templateID string) ([]domain.CheckIn, error) {
	var rows []row
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(
		`SELECT `+columns+` FROM check_in WHERE client_template_id = ? ORDER BY start_date`), templateID)
	if err != nil {
		return nil, storage.Classify(err, "check-ins")
	}
	out := make([]domain.CheckIn, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Insert writes a new check-in through q so it can join the template's transaction.
// PRE: ci has been validated
func Insert(ctx context.Context, q sqlx.ExtContext, ci domain.CheckIn) error {
	end := sql.NullString{String: ci.EndDate, Valid: ci.EndDate != ""}
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO check_in (id, client_template_id, start_date, end_date, coach_comment, client_comment, completed,
		   image_front, image_back, image_side_a, image_side_b)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		ci.ID, ci.TemplateID, ci.StartDate, end, ptrNullable(ci.CoachComment), ptrNullable(ci.ClientComment), ci.Completed,
		ci.Images.Front, ci.Images.Back, ci.Images.SideA, ci.Images.SideB)
	return storage.Classify(err, "check-in "+ci.ID)
}
