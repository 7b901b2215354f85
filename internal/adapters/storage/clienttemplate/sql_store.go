package clienttemplate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"coachdesk/internal/adapters/storage"
	checkinstore "coachdesk/internal/adapters/storage/checkin"
	userstore "coachdesk/internal/adapters/storage/user"
	"coachdesk/internal/domain/apperr"
	domain "coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

const (
	templateColumns = `id, name, slug, start_date, end_date, user_id, active, completed`
	sessionColumns  = `id, client_template_id, name, slug, ordinal, completed, completed_date, client_weight, comment`
	workColumns     = `id, client_session_id, sets, reps, weight, category, name, ordinal`

	tableExercises = "client_exercise"
	tableEntries   = "training_entry"
)

type templateRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Slug      string         `db:"slug"`
	StartDate string         `db:"start_date"`
	EndDate   sql.NullString `db:"end_date"`
	UserID    string         `db:"user_id"`
	Active    bool           `db:"active"`
	Completed bool           `db:"completed"`
}

func (r templateRow) toDomain() domain.Template {
	return domain.Template{
		ID:        r.ID,
		Name:      r.Name,
		Slug:      r.Slug,
		StartDate: r.StartDate,
		EndDate:   r.EndDate.String,
		UserID:    r.UserID,
		Active:    r.Active,
		Completed: r.Completed,
	}
}

type sessionRow struct {
	ID            string          `db:"id"`
	TemplateID    string          `db:"client_template_id"`
	Name          string          `db:"name"`
	Slug          string          `db:"slug"`
	Ordinal       int             `db:"ordinal"`
	Completed     bool            `db:"completed"`
	CompletedDate sql.NullString  `db:"completed_date"`
	ClientWeight  sql.NullFloat64 `db:"client_weight"`
	Comment       sql.NullString  `db:"comment"`
}

func (r sessionRow) toDomain() domain.Session {
	s := domain.Session{
		ID:            r.ID,
		TemplateID:    r.TemplateID,
		Name:          r.Name,
		Slug:          r.Slug,
		Order:         r.Ordinal,
		Completed:     r.Completed,
		CompletedDate: r.CompletedDate.String,
	}
	if r.ClientWeight.Valid {
		w := r.ClientWeight.Float64
		s.ClientWeight = &w
	}
	if r.Comment.Valid {
		c := r.Comment.String
		s.Comment = &c
	}
	return s
}

type workRow struct {
	ID        string  `db:"id"`
	SessionID string  `db:"client_session_id"`
	Sets      int     `db:"sets"`
	Reps      int     `db:"reps"`
	Weight    float64 `db:"weight"`
	Category  string  `db:"category"`
	Name      string  `db:"name"`
	Ordinal   int     `db:"ordinal"`
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

// Get loads the template row.
// PRE: id is non-empty
// POST: Returns the template without children or a NotFound error
func (s *SQLStore) Get(ctx context.Context, id string) (domain.Template, error) {
	return loadTemplate(ctx, s.db, id, false)
}

// GetTree loads the template with every child.
// PRE: id is non-empty
// POST: sessions, work and check-ins are in display order
func (s *SQLStore) GetTree(ctx context.Context, id string) (domain.Template, error) {
	t, err := loadTemplate(ctx, s.db, id, false)
	if err != nil {
		return domain.Template{}, err
	}
	if t.Sessions, err = loadSessions(ctx, s.db, id); err != nil {
		return domain.Template{}, err
	}
	if t.CheckIns, err = checkinstore.List(ctx, s.db, id); err != nil {
		return domain.Template{}, err
	}
	t.SortTree()
	return t, nil
}

// GetSession loads one session of a template with its work.
// POST: NotFound names both IDs when the pair does not exist
func (s *SQLStore) GetSession(ctx context.Context, templateID, sessionID string) (domain.Session, error) {
	return loadSession(ctx, s.db, templateID, sessionID)
}

// ListByUser returns template rows, newest start date first.
func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]domain.Template, error) {
	return selectTemplates(ctx, s.db,
		`SELECT `+templateColumns+` FROM client_template WHERE user_id = ? ORDER BY start_date DESC, id`, userID)
}

// ListActive returns the active template rows of userID. More than one is a data fault
// the caller reports.
func (s *SQLStore) ListActive(ctx context.Context, userID string) ([]domain.Template, error) {
	return selectTemplates(ctx, s.db,
		`SELECT `+templateColumns+` FROM client_template WHERE user_id = ? AND active = TRUE ORDER BY start_date DESC, id`, userID)
}

// ListSessions returns the sessions of templateID in order, with work.
func (s *SQLStore) ListSessions(ctx context.Context, templateID string) ([]domain.Session, error) {
	return loadSessions(ctx, s.db, templateID)
}

// ListCompletedSessions returns completed sessions, latest completion first.
// Ties on completed_date are broken by descending order so the result is stable.
func (s *SQLStore) ListCompletedSessions(ctx context.Context, templateID string) ([]domain.Session, error) {
	sessions, err := selectSessions(ctx, s.db,
		`SELECT `+sessionColumns+` FROM client_session
		 WHERE client_template_id = ? AND completed = TRUE
		 ORDER BY completed_date DESC, ordinal DESC`, templateID)
	if err != nil {
		return nil, err
	}
	return sessions, attachWork(ctx, s.db, sessions)
}

// --- shared loaders (work against the pool or a transaction) ---

func loadTemplate(ctx context.Context, q sqlx.ExtContext, id string, lock bool) (domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM client_template WHERE id = ?`
	if lock {
		query += storage.LockClause(q)
	}
	var r templateRow
	if err := sqlx.GetContext(ctx, q, &r, q.Rebind(query), id); err != nil {
		return domain.Template{}, storage.Classify(err, "client template "+id)
	}
	return r.toDomain(), nil
}

func selectTemplates(ctx context.Context, q sqlx.ExtContext, query string, args ...any) ([]domain.Template, error) {
	var rows []templateRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, storage.Classify(err, "client templates")
	}
	out := make([]domain.Template, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func selectSessions(ctx context.Context, q sqlx.ExtContext, query string, args ...any) ([]domain.Session, error) {
	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, storage.Classify(err, "client sessions")
	}
	out := make([]domain.Session, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func loadSessions(ctx context.Context, q sqlx.ExtContext, templateID string) ([]domain.Session, error) {
	sessions, err := selectSessions(ctx, q,
		`SELECT `+sessionColumns+` FROM client_session WHERE client_template_id = ? ORDER BY ordinal`, templateID)
	if err != nil {
		return nil, err
	}
	return sessions, attachWork(ctx, q, sessions)
}

func loadSession(ctx context.Context, q sqlx.ExtContext, templateID, sessionID string) (domain.Session, error) {
	sessions, err := selectSessions(ctx, q,
		`SELECT `+sessionColumns+` FROM client_session WHERE id = ? AND client_template_id = ?`, sessionID, templateID)
	if err != nil {
		return domain.Session{}, err
	}
	if len(sessions) == 0 {
		return domain.Session{}, apperr.NotFound("No session found with template_id: %s and session_id: %s", templateID, sessionID)
	}
	if err := attachWork(ctx, q, sessions); err != nil {
		return domain.Session{}, err
	}
	return sessions[0], nil
}

// attachWork fills Exercises and TrainingEntries of sessions in place.
func attachWork(ctx context.Context, q sqlx.ExtContext, sessions []domain.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	index := make(map[string]int, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
		index[s.ID] = i
	}
	for _, table := range []string{tableExercises, tableEntries} {
		query, args, err := sqlx.In(`SELECT `+workColumns+` FROM `+table+` WHERE client_session_id IN (?) ORDER BY ordinal`, ids)
		if err != nil {
			return apperr.Internal(err, "build work query")
		}
		var rows []workRow
		if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
			return storage.Classify(err, table)
		}
		for _, r := range rows {
			s := &sessions[index[r.SessionID]]
			w := domain.Exercise{
				ID: r.ID, Sets: r.Sets, Reps: r.Reps, Weight: r.Weight,
				Category: r.Category, Name: r.Name, Order: r.Ordinal,
			}
			if table == tableExercises {
				s.Exercises = append(s.Exercises, w)
			} else {
				s.TrainingEntries = append(s.TrainingEntries, w)
			}
		}
	}
	return nil
}

// --- transaction ---

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) LockClient(ctx context.Context, userID string) (user.User, error) {
	u, err := userstore.Get(ctx, t.tx, userID, true)
	if errors.Is(err, apperr.ErrNotFound) {
		return user.User{}, apperr.NotFound("client %s not found", userID)
	}
	return u, err
}

func (t *sqlTx) SaveClient(ctx context.Context, u user.User) error {
	return userstore.Save(ctx, t.tx, u)
}

func (t *sqlTx) LockTemplate(ctx context.Context, id string) (domain.Template, error) {
	return loadTemplate(ctx, t.tx, id, true)
}

func (t *sqlTx) LoadSessions(ctx context.Context, templateID string) ([]domain.Session, error) {
	return loadSessions(ctx, t.tx, templateID)
}

func (t *sqlTx) GetSession(ctx context.Context, templateID, sessionID string) (domain.Session, error) {
	return loadSession(ctx, t.tx, templateID, sessionID)
}

func (t *sqlTx) TemplateSlugsContaining(ctx context.Context, base string) ([]string, error) {
	return storage.SlugsContaining(ctx, t.tx, "client_template", "", "", base)
}

func (t *sqlTx) SessionSlugsContaining(ctx context.Context, templateID, base string) ([]string, error) {
	return storage.SlugsContaining(ctx, t.tx, "client_session", "client_template_id", templateID, base)
}

func (t *sqlTx) NextSessionOrder(ctx context.Context, templateID string) (int, error) {
	return storage.NextOrdinal(ctx, t.tx, "client_session", "client_template_id", templateID)
}

func (t *sqlTx) DeactivateOthers(ctx context.Context, userID, keepID string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`UPDATE client_template SET active = FALSE WHERE user_id = ? AND id <> ? AND active = TRUE`), userID, keepID)
	if err != nil {
		return 0, storage.Classify(err, "client templates")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (t *sqlTx) CountActive(ctx context.Context, userID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, t.tx, &n, t.tx.Rebind(
		`SELECT COUNT(*) FROM client_template WHERE user_id = ? AND active = TRUE`), userID)
	return n, storage.Classify(err, "active templates")
}

func (t *sqlTx) InsertTemplate(ctx context.Context, tpl domain.Template) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO client_template (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		tpl.ID, tpl.Name, tpl.Slug, tpl.StartDate, nullString(tpl.EndDate), tpl.UserID, tpl.Active, tpl.Completed)
	if err != nil {
		return storage.Classify(err, "client template "+tpl.Slug)
	}
	for _, s := range tpl.Sessions {
		if err := t.InsertSession(ctx, s); err != nil {
			return err
		}
	}
	for _, ci := range tpl.CheckIns {
		if err := checkinstore.Insert(ctx, t.tx, ci); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) UpdateTemplate(ctx context.Context, tpl domain.Template) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`UPDATE client_template SET name = ?, start_date = ?, end_date = ?, active = ?, completed = ? WHERE id = ?`),
		tpl.Name, tpl.StartDate, nullString(tpl.EndDate), tpl.Active, tpl.Completed, tpl.ID)
	if err != nil {
		return storage.Classify(err, "client template "+tpl.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("client template %s not found", tpl.ID)
	}
	for _, s := range tpl.Sessions {
		_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
			`UPDATE client_session SET completed = ?, completed_date = ? WHERE id = ?`),
			s.Completed, nullString(s.CompletedDate), s.ID)
		if err != nil {
			return storage.Classify(err, "client session "+s.ID)
		}
	}
	return nil
}

func (t *sqlTx) InsertSession(ctx context.Context, s domain.Session) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`INSERT INTO client_session (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.TemplateID, s.Name, s.Slug, s.Order, s.Completed, nullString(s.CompletedDate),
		nullFloat(s.ClientWeight), nullStringPtr(s.Comment))
	if err != nil {
		return storage.Classify(err, "client session "+s.Slug)
	}
	return t.insertWork(ctx, s)
}

func (t *sqlTx) UpdateSession(ctx context.Context, s domain.Session) error {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(
		`UPDATE client_session SET name = ?, completed = ?, completed_date = ?, client_weight = ?, comment = ?
		 WHERE id = ? AND client_template_id = ?`),
		s.Name, s.Completed, nullString(s.CompletedDate), nullFloat(s.ClientWeight), nullStringPtr(s.Comment),
		s.ID, s.TemplateID)
	if err != nil {
		return storage.Classify(err, "client session "+s.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("No session found with template_id: %s and session_id: %s", s.TemplateID, s.ID)
	}
	for _, table := range []string{tableExercises, tableEntries} {
		if _, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM `+table+` WHERE client_session_id = ?`), s.ID); err != nil {
			return storage.Classify(err, table)
		}
	}
	return t.insertWork(ctx, s)
}

func (t *sqlTx) insertWork(ctx context.Context, s domain.Session) error {
	lists := []struct {
		table string
		work  []domain.Exercise
	}{{tableExercises, s.Exercises}, {tableEntries, s.TrainingEntries}}
	for _, l := range lists {
		table := l.table
		for _, w := range l.work {
			if w.ID == "" {
				return apperr.Internal(fmt.Errorf("%s row without id in session %s", table, s.ID), "save session work")
			}
			_, err := t.tx.ExecContext(ctx, t.tx.Rebind(
				`INSERT INTO `+table+` (`+workColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				w.ID, s.ID, w.Sets, w.Reps, w.Weight, w.Category, w.Name, w.Order)
			if err != nil {
				return storage.Classify(err, table)
			}
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
