package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"coachdesk/internal/adapters/events"
	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// lockOwnedTemplate takes the client lock and then the template lock, and checks the caller
// may act on the template.
// PRE: ownerID was read from the template before the transaction started
// POST: returns the locked template row; Conflict if the owner changed in between
func lockOwnedTemplate(ctx context.Context, tx clientstore.Tx, caller user.Caller, ownerID, templateID string) (clienttemplate.Template, error) {
	if _, err := tx.LockClient(ctx, ownerID); err != nil {
		return clienttemplate.Template{}, err
	}
	tpl, err := tx.LockTemplate(ctx, templateID)
	if err != nil {
		return clienttemplate.Template{}, err
	}
	if tpl.UserID != ownerID {
		return clienttemplate.Template{}, apperr.Conflict("client template %s changed owner, retry", templateID)
	}
	if !caller.CanAccess(tpl.UserID) {
		return clienttemplate.Template{}, apperr.Forbidden("cannot modify client template %s", templateID)
	}
	return tpl, nil
}

// templateOwner returns the owner of templateID, read outside any transaction to learn which
// client row to lock first.
func templateOwner(ctx context.Context, store ClientTemplateStoreForOrchestrator, caller user.Caller, templateID string) (string, error) {
	if templateID == "" {
		return "", apperr.InvalidInput("template id is required")
	}
	tpl, err := store.Get(ctx, templateID)
	if err != nil {
		return "", err
	}
	if !caller.CanAccess(tpl.UserID) {
		return "", apperr.Forbidden("cannot modify client template %s", templateID)
	}
	return tpl.UserID, nil
}

// --- Update Client Template ---

// UpdateClientTemplateInput carries input for the update client template orchestrator.
type UpdateClientTemplateInput struct {
	Caller     user.Caller
	TemplateID string
	Patch      clienttemplate.TemplatePatch
}

// UpdateClientTemplateDeps holds dependencies for UpdateClientTemplate.
type UpdateClientTemplateDeps struct {
	ClientTemplates ClientTemplateStoreForOrchestrator
	Effects         SideEffects
	Now             func() time.Time
}

// ExecuteUpdateClientTemplate applies a partial update. The template always becomes the
// client's active template; a template is only deactivated by activating another one.
// PRE: patch dates, when set, are YYYY-MM-DD
// PRE: patch active, when set, is true
// POST: completed sessions keep completed_date == start_date + order after a start date change
// POST: the client has exactly one active template
func ExecuteUpdateClientTemplate(ctx context.Context, input UpdateClientTemplateInput, deps UpdateClientTemplateDeps) (clienttemplate.Template, error) {
	ownerID, err := templateOwner(ctx, deps.ClientTemplates, input.Caller, input.TemplateID)
	if err != nil {
		return clienttemplate.Template{}, err
	}

	patch := input.Patch
	if patch.Active != nil && !*patch.Active {
		return clienttemplate.Template{}, apperr.InvalidInput("active cannot be false; assign or update another template to make it active")
	}
	active := true
	patch.Active = &active

	var tpl clienttemplate.Template
	err = deps.ClientTemplates.RunInTx(ctx, func(tx clientstore.Tx) error {
		tpl, err = lockOwnedTemplate(ctx, tx, input.Caller, ownerID, input.TemplateID)
		if err != nil {
			return err
		}
		if tpl.Sessions, err = tx.LoadSessions(ctx, tpl.ID); err != nil {
			return err
		}
		if err := patch.Apply(&tpl); err != nil {
			return applyError(err)
		}
		return ActivateTemplate(ctx, tx, tpl.UserID, tpl.ID, func() error {
			return tx.UpdateTemplate(ctx, tpl)
		})
	})
	if err != nil {
		return clienttemplate.Template{}, err
	}

	slog.Info("client_template_event", "event", "template_updated", "template_id", tpl.ID, "user_id", tpl.UserID, "active", tpl.Active)
	deps.Effects.invalidateTrainingLog(ctx, tpl.UserID)
	deps.Effects.publish(ctx, events.Event{Type: events.SubjectTemplateUpdated, ClientID: tpl.UserID, TemplateID: tpl.ID}, deps.Now)
	return tpl, nil
}

// --- Create Client Session ---

// CreateClientSessionInput carries input for the create client session orchestrator.
type CreateClientSessionInput struct {
	Caller          user.Caller
	TemplateID      string
	Name            string
	Completed       bool
	ClientWeight    *float64
	Comment         *string
	Exercises       []clienttemplate.Exercise
	TrainingEntries []clienttemplate.TrainingEntry
}

// CreateClientSessionDeps holds dependencies for CreateClientSession.
type CreateClientSessionDeps struct {
	ClientTemplates ClientTemplateStoreForOrchestrator
	Effects         SideEffects
	GenerateID      func() string
	Now             func() time.Time
}

// ExecuteCreateClientSession appends a session to a client template and activates the template.
// PRE: Name is non-empty
// POST: the session has order max+1 and a slug unique within the template
// POST: a completed session has completed_date == template start + order days
func ExecuteCreateClientSession(ctx context.Context, input CreateClientSessionInput, deps CreateClientSessionDeps) (clienttemplate.Session, error) {
	ownerID, err := templateOwner(ctx, deps.ClientTemplates, input.Caller, input.TemplateID)
	if err != nil {
		return clienttemplate.Session{}, err
	}

	s := clienttemplate.Session{
		ID:              deps.GenerateID(),
		TemplateID:      input.TemplateID,
		Name:            input.Name,
		ClientWeight:    input.ClientWeight,
		Comment:         input.Comment,
		Exercises:       freshIDs(clienttemplate.Resequence(input.Exercises), deps.GenerateID),
		TrainingEntries: freshIDs(clienttemplate.Resequence(input.TrainingEntries), deps.GenerateID),
	}

	var tpl clienttemplate.Template
	err = deps.ClientTemplates.RunInTx(ctx, func(tx clientstore.Tx) error {
		tpl, err = lockOwnedTemplate(ctx, tx, input.Caller, ownerID, input.TemplateID)
		if err != nil {
			return err
		}
		if s.Order, err = tx.NextSessionOrder(ctx, tpl.ID); err != nil {
			return err
		}
		s.Slug, err = allocateSlug(ctx, input.Name, func(ctx context.Context, base string) ([]string, error) {
			return tx.SessionSlugsContaining(ctx, tpl.ID, base)
		})
		if err != nil {
			return err
		}
		if err := s.SetCompleted(input.Completed, tpl.StartDate); err != nil {
			return apperr.Internal(err, "schedule session completion")
		}
		if err := s.Validate(); err != nil {
			return apperr.Invalid(err)
		}
		if err := tx.InsertSession(ctx, s); err != nil {
			return err
		}
		tpl.Active = true
		return ActivateTemplate(ctx, tx, tpl.UserID, tpl.ID, func() error {
			return tx.UpdateTemplate(ctx, tpl)
		})
	})
	if err != nil {
		return clienttemplate.Session{}, err
	}

	slog.Info("client_session_event", "event", "session_created", "session_id", s.ID, "template_id", tpl.ID, "order", s.Order, "completed", s.Completed)
	if s.Completed {
		deps.Effects.invalidateTrainingLog(ctx, tpl.UserID)
		deps.Effects.publish(ctx, events.Event{
			Type: events.SubjectSessionCompleted, ClientID: tpl.UserID, TemplateID: tpl.ID, SessionID: s.ID,
		}, deps.Now)
	}
	return s, nil
}

// --- Update Client Session ---

// UpdateClientSessionInput carries input for the update client session orchestrator.
type UpdateClientSessionInput struct {
	Caller     user.Caller
	TemplateID string
	SessionID  string
	Patch      clienttemplate.SessionPatch
}

// UpdateClientSessionDeps holds dependencies for UpdateClientSession.
type UpdateClientSessionDeps struct {
	ClientTemplates ClientTemplateStoreForOrchestrator
	Effects         SideEffects
	GenerateID      func() string
	Now             func() time.Time
}

// ExecuteUpdateClientSession applies a partial session update and activates the template.
// Supplied work lists replace the stored lists.
// PRE: the session belongs to the template
// POST: completed_date is start + order days when completed, empty otherwise
func ExecuteUpdateClientSession(ctx context.Context, input UpdateClientSessionInput, deps UpdateClientSessionDeps) (clienttemplate.Session, error) {
	ownerID, err := templateOwner(ctx, deps.ClientTemplates, input.Caller, input.TemplateID)
	if err != nil {
		return clienttemplate.Session{}, err
	}

	patch := input.Patch
	if patch.Exercises != nil {
		work := freshIDs(*patch.Exercises, deps.GenerateID)
		patch.Exercises = &work
	}
	if patch.TrainingEntries != nil {
		work := freshIDs(*patch.TrainingEntries, deps.GenerateID)
		patch.TrainingEntries = &work
	}

	var (
		tpl          clienttemplate.Template
		s            clienttemplate.Session
		wasCompleted bool
	)
	err = deps.ClientTemplates.RunInTx(ctx, func(tx clientstore.Tx) error {
		tpl, err = lockOwnedTemplate(ctx, tx, input.Caller, ownerID, input.TemplateID)
		if err != nil {
			return err
		}
		if s, err = tx.GetSession(ctx, tpl.ID, input.SessionID); err != nil {
			return err
		}
		wasCompleted = s.Completed
		if err := patch.Apply(&s, tpl.StartDate); err != nil {
			return applyError(err)
		}
		if err := tx.UpdateSession(ctx, s); err != nil {
			return err
		}
		tpl.Active = true
		return ActivateTemplate(ctx, tx, tpl.UserID, tpl.ID, func() error {
			return tx.UpdateTemplate(ctx, tpl)
		})
	})
	if err != nil {
		return clienttemplate.Session{}, err
	}

	slog.Info("client_session_event", "event", "session_updated", "session_id", s.ID, "template_id", tpl.ID, "completed", s.Completed)
	deps.Effects.invalidateTrainingLog(ctx, tpl.UserID)
	if s.Completed && !wasCompleted {
		deps.Effects.publish(ctx, events.Event{
			Type: events.SubjectSessionCompleted, ClientID: tpl.UserID, TemplateID: tpl.ID, SessionID: s.ID,
		}, deps.Now)
	}
	return s, nil
}

// freshIDs gives every work item a new ID. Work lists are replaced wholesale, so IDs sent by
// the caller are never reused.
func freshIDs(work []clienttemplate.Exercise, newID func() string) []clienttemplate.Exercise {
	out := make([]clienttemplate.Exercise, len(work))
	for i, w := range work {
		w.ID = newID()
		out[i] = w
	}
	return out
}

// applyError separates corrupt stored dates (Internal) from rejected input (InvalidInput).
func applyError(err error) error {
	if errors.Is(err, clienttemplate.ErrCorruptDate) {
		return apperr.Internal(err, "stored template date is unparsable")
	}
	return apperr.Invalid(err)
}
