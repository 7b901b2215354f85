package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	emailAdapter "coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/user"
)

// ClientTemplateStoreForOrchestrator defines the client template store needed by orchestrators.
type ClientTemplateStoreForOrchestrator interface {
	RunInTx(ctx context.Context, fn func(clientstore.Tx) error) error
	Get(ctx context.Context, id string) (clienttemplate.Template, error)
	GetTree(ctx context.Context, id string) (clienttemplate.Template, error)
}

// CoachTemplateReader loads authoring templates as instantiation sources.
type CoachTemplateReader interface {
	GetTree(ctx context.Context, id string) (coachtemplate.Template, error)
}

// InstantiateTemplateInput carries input for the instantiate template orchestrator.
type InstantiateTemplateInput struct {
	Caller user.Caller
	// SourceRole selects where SourceID lives: RoleCoach for a coach template,
	// RoleClient for an existing client template.
	SourceRole   user.Role
	SourceID     string
	ClientID     string
	Overrides    []clienttemplate.Override
	CheckInDates []string
}

// InstantiateTemplateDeps holds dependencies for InstantiateTemplate.
type InstantiateTemplateDeps struct {
	CoachTemplates  CoachTemplateReader
	ClientTemplates ClientTemplateStoreForOrchestrator
	Effects         SideEffects
	GenerateID      func() string
	Now             func() time.Time
}

type instantiationSource struct {
	name     string
	sessions []clienttemplate.SourceSession
}

// ExecuteInstantiateTemplate copies a coach template, or another client template, into a new
// active client template.
// PRE: an override with sets, reps and weight exists for every exercise of the source
// POST: the new template is the client's only active template; its sessions mirror the source
// order and slugs; check-ins cover the supplied dates or today..today+len(sessions)
// POST: on any error nothing is written
func ExecuteInstantiateTemplate(ctx context.Context, input InstantiateTemplateInput, deps InstantiateTemplateDeps) (clienttemplate.Template, error) {
	if input.ClientID == "" {
		return clienttemplate.Template{}, apperr.InvalidInput("client_id is required")
	}
	if input.SourceID == "" {
		return clienttemplate.Template{}, apperr.InvalidInput("source template id is required")
	}
	if !input.Caller.CanAccess(input.ClientID) {
		return clienttemplate.Template{}, apperr.Forbidden("cannot assign templates to client %s", input.ClientID)
	}

	src, err := loadSource(ctx, input, deps)
	if err != nil {
		return clienttemplate.Template{}, err
	}

	today := deps.Now()
	tpl := clienttemplate.Template{
		ID:        deps.GenerateID(),
		Name:      src.name,
		StartDate: today.Format(clienttemplate.DateLayout),
		UserID:    input.ClientID,
		Active:    true,
	}
	tpl.Sessions, err = clienttemplate.CloneSessions(tpl.ID, src.sessions, input.Overrides, deps.GenerateID)
	if err != nil {
		return clienttemplate.Template{}, cloneError(err)
	}
	tpl.CheckIns, err = buildCheckIns(tpl.ID, input.CheckInDates, today, len(tpl.Sessions), deps.GenerateID)
	if err != nil {
		return clienttemplate.Template{}, err
	}

	var client user.User
	err = deps.ClientTemplates.RunInTx(ctx, func(tx clientstore.Tx) error {
		client, err = tx.LockClient(ctx, input.ClientID)
		if err != nil {
			return err
		}
		if client.Role != user.RoleClient {
			return apperr.InvalidInput("user %s is not a client", input.ClientID)
		}
		tpl.Slug, err = allocateSlug(ctx, src.name+"-"+client.FirstName+"-"+client.LastName, tx.TemplateSlugsContaining)
		if err != nil {
			return err
		}
		if err := tpl.Validate(); err != nil {
			return apperr.Invalid(err)
		}
		return ActivateTemplate(ctx, tx, tpl.UserID, tpl.ID, func() error {
			return tx.InsertTemplate(ctx, tpl)
		})
	})
	if err != nil {
		return clienttemplate.Template{}, err
	}

	slog.Info("client_template_event", "event", "template_instantiated",
		"template_id", tpl.ID, "slug", tpl.Slug, "user_id", tpl.UserID,
		"source_role", input.SourceRole.String(), "source_id", input.SourceID,
		"sessions", len(tpl.Sessions), "check_ins", len(tpl.CheckIns))

	req, buildErr := emailAdapter.TemplateAssignedEmail(
		emailAdapter.Recipient{Name: client.FullName(), Email: client.Email}, tpl.Name, tpl.StartDate, deps.Effects.AppURL)
	deps.Effects.sendEmail(ctx, "template_assigned", req, buildErr)
	deps.Effects.publish(ctx, events.Event{
		Type: events.SubjectTemplateAssigned, ClientID: tpl.UserID, TemplateID: tpl.ID,
	}, deps.Now)
	return tpl, nil
}

// loadSource resolves the source tree named by the input's role.
func loadSource(ctx context.Context, input InstantiateTemplateInput, deps InstantiateTemplateDeps) (instantiationSource, error) {
	switch input.SourceRole {
	case user.RoleCoach:
		if !input.Caller.IsCoach() {
			return instantiationSource{}, apperr.Forbidden("only coaches can assign coach templates")
		}
		ct, err := deps.CoachTemplates.GetTree(ctx, input.SourceID)
		if err != nil {
			return instantiationSource{}, err
		}
		return fromCoachTemplate(ct), nil
	case user.RoleClient:
		src, err := deps.ClientTemplates.GetTree(ctx, input.SourceID)
		if err != nil {
			return instantiationSource{}, err
		}
		if !input.Caller.CanAccess(src.UserID) {
			return instantiationSource{}, apperr.Forbidden("cannot copy client template %s", input.SourceID)
		}
		return fromClientTemplate(src), nil
	}
	return instantiationSource{}, apperr.InvalidInput("role must be one of: COACH, CLIENT")
}

func fromCoachTemplate(t coachtemplate.Template) instantiationSource {
	t.SortTree()
	src := instantiationSource{name: t.Name, sessions: make([]clienttemplate.SourceSession, 0, len(t.Sessions))}
	for _, s := range t.Sessions {
		ss := clienttemplate.SourceSession{ID: s.ID, Name: s.Name, Slug: s.Slug, Order: s.Order}
		for _, e := range s.Exercises {
			ss.Exercises = append(ss.Exercises, clienttemplate.SourceExercise{
				ID: e.ID, Category: e.Category, Name: e.Name, Order: e.Order,
			})
		}
		src.sessions = append(src.sessions, ss)
	}
	return src
}

// fromClientTemplate uses the planned exercises of each session. Logged training entries
// belong to the source client's history and are not copied.
func fromClientTemplate(t clienttemplate.Template) instantiationSource {
	t.SortTree()
	src := instantiationSource{name: t.Name, sessions: make([]clienttemplate.SourceSession, 0, len(t.Sessions))}
	for _, s := range t.Sessions {
		ss := clienttemplate.SourceSession{ID: s.ID, Name: s.Name, Slug: s.Slug, Order: s.Order}
		for _, e := range s.Exercises {
			ss.Exercises = append(ss.Exercises, clienttemplate.SourceExercise{
				ID: e.ID, Category: e.Category, Name: e.Name, Order: e.Order,
			})
		}
		src.sessions = append(src.sessions, ss)
	}
	return src
}

// buildCheckIns creates one check-in per explicit date window, or a single window spanning
// today..today+sessionCount when no dates were supplied.
func buildCheckIns(templateID string, dates []string, today time.Time, sessionCount int, newID func() string) ([]checkin.CheckIn, error) {
	var windows []checkin.Window
	if len(dates) > 0 {
		var err error
		windows, err = checkin.WindowsFromDates(dates)
		if err != nil {
			var bad *checkin.InvalidDateError
			if errors.As(err, &bad) {
				return nil, apperr.InvalidInput("%s", bad.Error())
			}
			return nil, apperr.Invalid(err)
		}
	} else {
		windows = []checkin.Window{checkin.WindowFromSessionCount(today, sessionCount)}
	}
	out := make([]checkin.CheckIn, len(windows))
	for i, w := range windows {
		out[i] = checkin.CheckIn{ID: newID(), TemplateID: templateID, StartDate: w.StartDate, EndDate: w.EndDate}
	}
	return out, nil
}

// cloneError maps cloner failures onto error kinds: references outside the source are
// NotFound, missing values are InvalidInput.
func cloneError(err error) error {
	switch {
	case errors.Is(err, clienttemplate.ErrUnknownSession), errors.Is(err, clienttemplate.ErrUnknownExercise):
		return &apperr.Error{Kind: apperr.ErrNotFound, Message: err.Error(), Err: err}
	default:
		return apperr.Invalid(err)
	}
}
