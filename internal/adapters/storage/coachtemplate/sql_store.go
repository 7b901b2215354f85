package coachtemplate

import (
	"context"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/storage"
	domain "coachdesk/internal/domain/coachtemplate"
)

type templateRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}

type sessionRow struct {
	ID         string `db:"id"`
	TemplateID string `db:"coach_template_id"`
	Name       string `db:"name"`
	Slug       string `db:"slug"`
	Ordinal    int    `db:"ordinal"`
}

func (r sessionRow) toDomain() domain.Session {
	return domain.Session{ID: r.ID, TemplateID: r.TemplateID, Name: r.Name, Slug: r.Slug, Order: r.Ordinal}
}

type exerciseRow struct {
	ID         string `db:"id"`
	SessionID  string `db:"coach_session_id"`
	ExerciseID string `db:"exercise_id"`
	Ordinal    int    `db:"ordinal"`
	Category   string `db:"category"`
	Name       string `db:"name"`
}

// SQLStore implements Store over sqlx.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// RunInTx runs fn inside storage.WithTx.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(Tx) error) error {
	return storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&sqlTx{tx: tx})
	})
}

// GetTree loads the full template.
// PRE: id is non-empty
// POST: Sessions and their Exercises are ascending by Order
func (s *SQLStore) GetTree(ctx context.Context, id string) (domain.Template, error) {
	var tr templateRow
	if err := sqlx.GetContext(ctx, s.db, &tr, s.db.Rebind(`SELECT id, name, slug FROM coach_template WHERE id = ?`), id); err != nil {
		return domain.Template{}, storage.Classify(err, "coach template "+id)
	}
	t := domain.Template{ID: tr.ID, Name: tr.Name, Slug: tr.Slug}

	var sessions []sessionRow
	if err := sqlx.SelectContext(ctx, s.db, &sessions, s.db.Rebind(
		`SELECT id, coach_template_id, name, slug, ordinal FROM coach_session
		 WHERE coach_template_id = ? ORDER BY ordinal`), id); err != nil {
		return domain.Template{}, storage.Classify(err, "coach sessions")
	}
	var exercises []exerciseRow
	if err := sqlx.SelectContext(ctx, s.db, &exercises, s.db.Rebind(
		`SELECT ce.id, ce.coach_session_id, ce.exercise_id, ce.ordinal, e.category, e.name
		 FROM coach_exercise ce
		 JOIN coach_session cs ON cs.id = ce.coach_session_id
		 JOIN exercise e ON e.id = ce.exercise_id
		 WHERE cs.coach_template_id = ?
		 ORDER BY ce.ordinal`), id); err != nil {
		return domain.Template{}, storage.Classify(err, "coach exercises")
	}

	bySession := make(map[string][]domain.Exercise, len(sessions))
	for _, e := range exercises {
		bySession[e.SessionID] = append(bySession[e.SessionID], domain.Exercise{
			ID: e.ID, SessionID: e.SessionID, ExerciseID: e.ExerciseID, Order: e.Ordinal,
			Category: e.Category, Name: e.Name,
		})
	}
	t.Sessions = make([]domain.Session, len(sessions))
	for i, r := range sessions {
		t.Sessions[i] = r.toDomain()
		t.Sessions[i].Exercises = bySession[r.ID]
	}
	t.SortTree()
	return t, nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) TemplateSlugsContaining(ctx context.Context, base string) ([]string, error) {
	return storage.SlugsContaining(ctx, t.tx, "coach_template", "", "", base)
}

func (t *sqlTx) InsertTemplate(ctx context.Context, tpl domain.Template) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(`INSERT INTO coach_template (id, name, slug) VALUES (?, ?, ?)`),
		tpl.ID, tpl.Name, tpl.Slug)
	return storage.Classify(err, "coach template "+tpl.Slug)
}

func (t *sqlTx) LockTemplate(ctx context.Context, id string) (domain.Template, error) {
	var r templateRow
	err := sqlx.GetContext(ctx, t.tx, &r, t.tx.Rebind(
		`SELECT id, name, slug FROM coach_template WHERE id = ?`+storage.LockClause(t.tx)), id)
	if err != nil {
		return domain.Template{}, storage.Classify(err, "coach template "+id)
	}
	return domain.Template{ID: r.ID, Name: r.Name, Slug: r.Slug}, nil
}

func (t *sqlTx) SessionSlugsContaining(ctx context.Context, templateID, base string) ([]string, error) {
	return storage.SlugsContaining(ctx, t.tx, "coach_session", "coach_template_id", templateID, base)
}

func (t *sqlTx) NextSessionOrder(ctx context.Context, templateID string) (int, error) {
	return storage.NextOrdinal(ctx, t.tx, "coach_session", "coach_template_id", templateID)
}

func (t *sqlTx) InsertSession(ctx context.Context, s domain.Session) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO coach_session (id, coach_template_id, name, slug, ordinal) VALUES (?, ?, ?, ?, ?)`),
		s.ID, s.TemplateID, s.Name, s.Slug, s.Order)
	return storage.Classify(err, "coach session "+s.Slug)
}

func (t *sqlTx) LockSession(ctx context.Context, id string) (domain.Session, error) {
	var r sessionRow
	err := sqlx.GetContext(ctx, t.tx, &r, t.tx.Rebind(
		`SELECT id, coach_template_id, name, slug, ordinal FROM coach_session WHERE id = ?`+storage.LockClause(t.tx)), id)
	if err != nil {
		return domain.Session{}, storage.Classify(err, "coach session "+id)
	}
	return r.toDomain(), nil
}

func (t *sqlTx) NextExerciseOrder(ctx context.Context, sessionID string) (int, error) {
	return storage.NextOrdinal(ctx, t.tx, "coach_exercise", "coach_session_id", sessionID)
}

func (t *sqlTx) InsertExercise(ctx context.Context, e domain.Exercise) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO coach_exercise (id, coach_session_id, exercise_id, ordinal) VALUES (?, ?, ?, ?)`),
		e.ID, e.SessionID, e.ExerciseID, e.Order)
	return storage.Classify(err, "coach exercise")
}
