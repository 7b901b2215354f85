package orchestrators

import (
	"context"
	"log/slog"

	coachstore "coachdesk/internal/adapters/storage/coachtemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/exercise"
	"coachdesk/internal/domain/user"
)

// ExerciseStoreForOrchestrator defines the catalog store needed by authoring orchestrators.
type ExerciseStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (exercise.Exercise, error)
	Create(ctx context.Context, e exercise.Exercise) error
}

// CoachTemplateStoreForOrchestrator defines the coach template store needed by authoring orchestrators.
type CoachTemplateStoreForOrchestrator interface {
	RunInTx(ctx context.Context, fn func(coachstore.Tx) error) error
}

func requireCoach(c user.Caller, action string) error {
	if !c.IsCoach() {
		return apperr.Forbidden("only coaches can %s", action)
	}
	return nil
}

// --- Create Exercise ---

// CreateExerciseInput carries input for the create exercise orchestrator.
type CreateExerciseInput struct {
	Caller   user.Caller
	Category string
	Name     string
}

// CreateExerciseDeps holds dependencies for CreateExercise.
type CreateExerciseDeps struct {
	ExerciseStore ExerciseStoreForOrchestrator
	GenerateID    func() string
}

// ExecuteCreateExercise appends an entry to the exercise catalog.
// PRE: Category and Name are non-empty
// POST: the entry is persisted with a generated ID
func ExecuteCreateExercise(ctx context.Context, input CreateExerciseInput, deps CreateExerciseDeps) (exercise.Exercise, error) {
	if err := requireCoach(input.Caller, "add exercises"); err != nil {
		return exercise.Exercise{}, err
	}
	e := exercise.Exercise{ID: deps.GenerateID(), Category: input.Category, Name: input.Name}
	if err := e.Validate(); err != nil {
		return exercise.Exercise{}, apperr.Invalid(err)
	}
	if err := deps.ExerciseStore.Create(ctx, e); err != nil {
		return exercise.Exercise{}, err
	}
	slog.Info("coach_template_event", "event", "exercise_created", "exercise_id", e.ID, "category", e.Category)
	return e, nil
}

// --- Create Coach Template ---

// CreateCoachTemplateInput carries input for the create coach template orchestrator.
type CreateCoachTemplateInput struct {
	Caller user.Caller
	Name   string
}

// CreateCoachTemplateDeps holds dependencies for CreateCoachTemplate.
type CreateCoachTemplateDeps struct {
	CoachTemplates CoachTemplateStoreForOrchestrator
	GenerateID     func() string
}

// ExecuteCreateCoachTemplate creates an empty authoring template.
// PRE: Name is non-empty
// POST: the slug is unique among coach templates
func ExecuteCreateCoachTemplate(ctx context.Context, input CreateCoachTemplateInput, deps CreateCoachTemplateDeps) (coachtemplate.Template, error) {
	if err := requireCoach(input.Caller, "create templates"); err != nil {
		return coachtemplate.Template{}, err
	}
	t := coachtemplate.Template{ID: deps.GenerateID(), Name: input.Name}
	err := deps.CoachTemplates.RunInTx(ctx, func(tx coachstore.Tx) error {
		var err error
		if t.Slug, err = allocateSlug(ctx, input.Name, tx.TemplateSlugsContaining); err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return apperr.Invalid(err)
		}
		return tx.InsertTemplate(ctx, t)
	})
	if err != nil {
		return coachtemplate.Template{}, err
	}
	slog.Info("coach_template_event", "event", "template_created", "template_id", t.ID, "slug", t.Slug)
	return t, nil
}

// --- Add Coach Session ---

// AddCoachSessionInput carries input for the add coach session orchestrator.
type AddCoachSessionInput struct {
	Caller     user.Caller
	TemplateID string
	Name       string
}

// AddCoachSessionDeps holds dependencies for AddCoachSession.
type AddCoachSessionDeps struct {
	CoachTemplates CoachTemplateStoreForOrchestrator
	GenerateID     func() string
}

// ExecuteAddCoachSession appends a session to a coach template.
// PRE: the template exists; Name is non-empty
// POST: order is max+1 within the template; slug is unique within the template
func ExecuteAddCoachSession(ctx context.Context, input AddCoachSessionInput, deps AddCoachSessionDeps) (coachtemplate.Session, error) {
	if err := requireCoach(input.Caller, "edit templates"); err != nil {
		return coachtemplate.Session{}, err
	}
	s := coachtemplate.Session{ID: deps.GenerateID(), TemplateID: input.TemplateID, Name: input.Name}
	err := deps.CoachTemplates.RunInTx(ctx, func(tx coachstore.Tx) error {
		if _, err := tx.LockTemplate(ctx, input.TemplateID); err != nil {
			return err
		}
		var err error
		if s.Order, err = tx.NextSessionOrder(ctx, input.TemplateID); err != nil {
			return err
		}
		s.Slug, err = allocateSlug(ctx, input.Name, func(ctx context.Context, base string) ([]string, error) {
			return tx.SessionSlugsContaining(ctx, input.TemplateID, base)
		})
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return apperr.Invalid(err)
		}
		return tx.InsertSession(ctx, s)
	})
	if err != nil {
		return coachtemplate.Session{}, err
	}
	slog.Info("coach_template_event", "event", "session_added", "template_id", s.TemplateID, "session_id", s.ID, "order", s.Order)
	return s, nil
}

// --- Add Coach Exercise ---

// AddCoachExerciseInput carries input for the add coach exercise orchestrator.
type AddCoachExerciseInput struct {
	Caller     user.Caller
	SessionID  string
	ExerciseID string
}

// AddCoachExerciseDeps holds dependencies for AddCoachExercise.
type AddCoachExerciseDeps struct {
	CoachTemplates CoachTemplateStoreForOrchestrator
	ExerciseStore  ExerciseStoreForOrchestrator
	GenerateID     func() string
}

// ExecuteAddCoachExercise plans a catalog exercise at the end of a coach session.
// PRE: the session and the catalog entry exist
// POST: order is max+1 within the session; Category and Name are resolved from the catalog
func ExecuteAddCoachExercise(ctx context.Context, input AddCoachExerciseInput, deps AddCoachExerciseDeps) (coachtemplate.Exercise, error) {
	if err := requireCoach(input.Caller, "edit templates"); err != nil {
		return coachtemplate.Exercise{}, err
	}
	if input.ExerciseID == "" {
		return coachtemplate.Exercise{}, apperr.Invalid(coachtemplate.ErrEmptyExerciseID)
	}
	cat, err := deps.ExerciseStore.GetByID(ctx, input.ExerciseID)
	if err != nil {
		return coachtemplate.Exercise{}, err
	}
	e := coachtemplate.Exercise{
		ID: deps.GenerateID(), SessionID: input.SessionID, ExerciseID: cat.ID,
		Category: cat.Category, Name: cat.Name,
	}
	err = deps.CoachTemplates.RunInTx(ctx, func(tx coachstore.Tx) error {
		if _, err := tx.LockSession(ctx, input.SessionID); err != nil {
			return err
		}
		var err error
		if e.Order, err = tx.NextExerciseOrder(ctx, input.SessionID); err != nil {
			return err
		}
		if err := e.Validate(); err != nil {
			return apperr.Invalid(err)
		}
		return tx.InsertExercise(ctx, e)
	})
	if err != nil {
		return coachtemplate.Exercise{}, err
	}
	slog.Info("coach_template_event", "event", "exercise_planned", "session_id", e.SessionID, "exercise_id", e.ExerciseID, "order", e.Order)
	return e, nil
}
