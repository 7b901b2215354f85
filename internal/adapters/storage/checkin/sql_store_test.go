package checkin_test

import (
	"context"
	"errors"
	"testing"

	checkinstore "coachdesk/internal/adapters/storage/checkin"
	"coachdesk/internal/adapters/storage/storagetest"
	"coachdesk/internal/domain/apperr"
	domain "coachdesk/internal/domain/checkin"
)

func strPtr(s string) *string { return &s }

func seedTemplate(t *testing.T) *checkinstore.SQLStore {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.Exec(t, db,
		`INSERT INTO app_user (id, first_name, last_name, email, role, created_at)
		 VALUES ('u1', 'John', 'Smith', 'j@x.io', 'CLIENT', '2026-02-01T00:00:00Z')`,
		`INSERT INTO client_template (id, name, slug, start_date, user_id, active) VALUES ('t1', 'A', 'a', '2026-02-01', 'u1', TRUE)`)
	ctx := context.Background()
	for _, ci := range []domain.CheckIn{
		{ID: "ci2", TemplateID: "t1", StartDate: "2026-02-15"},
		{ID: "ci1", TemplateID: "t1", StartDate: "2026-02-01", EndDate: "2026-02-14"},
	} {
		if err := checkinstore.Insert(ctx, db, ci); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return checkinstore.NewSQLStore(db)
}

// TestSQLStore_ListOrdersByStart verifies ordering and open-ended windows.
func TestSQLStore_ListOrdersByStart(t *testing.T) {
	store := seedTemplate(t)
	list, err := store.ListByTemplate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "ci1" || list[1].EndDate != "" {
		t.Errorf("list = %+v", list)
	}
	if list[0].CoachComment != nil {
		t.Errorf("coach comment should start nil")
	}
}

// TestSQLStore_Update writes comments, completion and image keys.
func TestSQLStore_Update(t *testing.T) {
	store := seedTemplate(t)
	ctx := context.Background()

	ci, err := store.GetByID(ctx, "ci1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ci.CoachComment = strPtr("**Great** week")
	ci.Completed = true
	ci.Images.Set(domain.SlotSideA, "check-ins/ci1/side_a-1")
	if err := store.Update(ctx, ci); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetByID(ctx, "ci1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CoachComment == nil || *got.CoachComment != "**Great** week" || !got.Completed {
		t.Errorf("got %+v", got)
	}
	if got.Images.Get(domain.SlotSideA) != "check-ins/ci1/side_a-1" || got.Images.Front != "" {
		t.Errorf("images = %+v", got.Images)
	}
}

// TestSQLStore_NotFound covers reads and writes of missing rows.
func TestSQLStore_NotFound(t *testing.T) {
	store := seedTemplate(t)
	ctx := context.Background()
	if _, err := store.GetByID(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID error = %v, want NotFound", err)
	}
	if err := store.Update(ctx, domain.CheckIn{ID: "nope"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update error = %v, want NotFound", err)
	}
}
