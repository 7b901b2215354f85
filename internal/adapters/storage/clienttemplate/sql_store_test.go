package clienttemplate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"coachdesk/internal/adapters/storage"
	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/adapters/storage/storagetest"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	domain "coachdesk/internal/domain/clienttemplate"
)

func f64Ptr(f float64) *float64 { return &f }

func openStore(t *testing.T) (*clientstore.SQLStore, storage.SQLDB) {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO app_user (id, first_name, last_name, email, role, created_at)
		 VALUES ('u1', 'John', 'Smith', 'j@x.io', 'CLIENT', '2026-02-01T00:00:00Z')`)
	return clientstore.NewSQLStore(db), db
}

func sampleTemplate(id, slug string, active bool) domain.Template {
	return domain.Template{
		ID: id, Name: "Push Day", Slug: slug, StartDate: "2024-01-01", UserID: "u1", Active: active,
		Sessions: []domain.Session{
			{
				ID: id + "-s2", TemplateID: id, Name: "Day 2", Slug: "day-2", Order: 2,
				Completed: true, CompletedDate: "2024-01-03",
			},
			{
				ID: id + "-s1", TemplateID: id, Name: "Day 1", Slug: "day-1", Order: 1,
				Completed: true, CompletedDate: "2024-01-02", ClientWeight: f64Ptr(180.5),
				Exercises: []domain.Exercise{
					{ID: id + "-e1", Sets: 3, Reps: 10, Weight: 135, Category: "Chest", Name: "Bench Press", Order: 1},
				},
			},
			{ID: id + "-s3", TemplateID: id, Name: "Day 3", Slug: "day-3", Order: 3},
		},
		CheckIns: []checkin.CheckIn{{ID: id + "-ci", TemplateID: id, StartDate: "2024-01-01", EndDate: "2024-01-04"}},
	}
}

// TestSQLStore_InsertAndGetTree round-trips a full tree.
func TestSQLStore_InsertAndGetTree(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("t1", "push-day-john-smith", true))
	}))

	tpl, err := store.GetTree(ctx, "t1")
	require.NoError(t, err)
	require.True(t, tpl.Active)
	require.Len(t, tpl.Sessions, 3)
	require.Equal(t, 1, tpl.Sessions[0].Order)
	require.Equal(t, "Bench Press", tpl.Sessions[0].Exercises[0].Name)
	require.InDelta(t, 180.5, *tpl.Sessions[0].ClientWeight, 0.001)
	require.Nil(t, tpl.Sessions[1].ClientWeight)
	require.Len(t, tpl.CheckIns, 1)
	require.Equal(t, "2024-01-04", tpl.CheckIns[0].EndDate)

	completed, err := store.ListCompletedSessions(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, completed, 2)
	require.Equal(t, "2024-01-03", completed[0].CompletedDate)
	require.Len(t, completed[1].Exercises, 1)
}

// TestSQLStore_DeactivateOthers leaves only the kept template active.
func TestSQLStore_DeactivateOthers(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("a", "a", true))
	}))
	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		if _, err := tx.LockClient(ctx, "u1"); err != nil {
			return err
		}
		n, err := tx.DeactivateOthers(ctx, "u1", "b")
		if err != nil {
			return err
		}
		require.EqualValues(t, 1, n)
		if err := tx.InsertTemplate(ctx, sampleTemplate("b", "b", true)); err != nil {
			return err
		}
		count, err := tx.CountActive(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 1, count)
		return nil
	}))

	active, err := store.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "b", active[0].ID)
}

// TestSQLStore_SecondActiveRejected verifies the index refuses two active templates.
func TestSQLStore_SecondActiveRejected(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("a", "a", true))
	}))
	err := store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("b", "b", true))
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = store.Get(ctx, "b")
	require.ErrorIs(t, err, apperr.ErrNotFound, "failed insert must leave no rows")
}

// TestSQLStore_UpdateSessionReplacesWork verifies the work lists are replaced wholesale.
func TestSQLStore_UpdateSessionReplacesWork(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("t1", "t1", true))
	}))

	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		s, err := tx.GetSession(ctx, "t1", "t1-s1")
		if err != nil {
			return err
		}
		s.Exercises = nil
		s.TrainingEntries = []domain.TrainingEntry{
			{ID: "te1", Sets: 5, Reps: 5, Weight: 140, Category: "Chest", Name: "Bench Press", Order: 1},
		}
		s.Completed, s.CompletedDate = false, ""
		return tx.UpdateSession(ctx, s)
	}))

	s, err := store.GetSession(ctx, "t1", "t1-s1")
	require.NoError(t, err)
	require.Empty(t, s.Exercises)
	require.Len(t, s.TrainingEntries, 1)
	require.False(t, s.Completed)
	require.Empty(t, s.CompletedDate)
}

// TestSQLStore_DuplicateWorkOrderRejected verifies a session cannot hold two items at one position.
func TestSQLStore_DuplicateWorkOrderRejected(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		return tx.InsertTemplate(ctx, sampleTemplate("t1", "t1", true))
	}))

	err := store.RunInTx(ctx, func(tx clientstore.Tx) error {
		s, err := tx.GetSession(ctx, "t1", "t1-s1")
		if err != nil {
			return err
		}
		s.Exercises = []domain.Exercise{
			{ID: "x1", Sets: 3, Reps: 10, Weight: 135, Category: "Chest", Name: "Bench Press", Order: 1},
			{ID: "x2", Sets: 3, Reps: 12, Weight: 30, Category: "Chest", Name: "Fly", Order: 1},
		}
		return tx.UpdateSession(ctx, s)
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	s, err := store.GetSession(ctx, "t1", "t1-s1")
	require.NoError(t, err)
	require.Len(t, s.Exercises, 1, "rejected update must roll back")
	require.Equal(t, "t1-e1", s.Exercises[0].ID)
}

// TestSQLStore_GetSessionNotFound checks the caller-facing message.
func TestSQLStore_GetSessionNotFound(t *testing.T) {
	store, _ := openStore(t)
	_, err := store.GetSession(context.Background(), "t9", "s9")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
	if apperr.Message(err) != "No session found with template_id: t9 and session_id: s9" {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

// TestSQLStore_ListByUserNewestFirst orders by start date descending.
func TestSQLStore_ListByUserNewestFirst(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	older := sampleTemplate("old", "old", false)
	newer := sampleTemplate("new", "new", true)
	newer.StartDate = "2024-03-01"
	require.NoError(t, store.RunInTx(ctx, func(tx clientstore.Tx) error {
		if err := tx.InsertTemplate(ctx, older); err != nil {
			return err
		}
		return tx.InsertTemplate(ctx, newer)
	}))
	list, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].ID)
}

// TestSQLStore_PostgresLocksClientThenTemplate verifies both row locks on pgx.
func TestSQLStore_PostgresLocksClientThenTemplate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	store := clientstore.NewSQLStore(sqlx.NewDb(mockDB, storage.DriverPostgres))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM app_user WHERE id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "role", "approved", "coach_id", "created_at"}).
			AddRow("u1", "John", "Smith", "j@x.io", "CLIENT", true, "c1", "2026-02-01T00:00:00Z"))
	mock.ExpectQuery(`FROM client_template WHERE id = \$1 FOR UPDATE`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "start_date", "end_date", "user_id", "active", "completed"}).
			AddRow("t1", "A", "a", "2024-01-01", nil, "u1", true, false))
	mock.ExpectExec(`UPDATE client_template SET active = FALSE WHERE user_id = \$1 AND id <> \$2 AND active = TRUE`).
		WithArgs("u1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = store.RunInTx(context.Background(), func(tx clientstore.Tx) error {
		if _, err := tx.LockClient(context.Background(), "u1"); err != nil {
			return err
		}
		if _, err := tx.LockTemplate(context.Background(), "t1"); err != nil {
			return err
		}
		_, err := tx.DeactivateOthers(context.Background(), "u1", "t1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
