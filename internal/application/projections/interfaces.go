package projections

import (
	"context"

	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/user"
)

// ClientTemplateStore interface for client template queries.
type ClientTemplateStore interface {
	Get(ctx context.Context, id string) (clienttemplate.Template, error)
	GetTree(ctx context.Context, id string) (clienttemplate.Template, error)
	GetSession(ctx context.Context, templateID, sessionID string) (clienttemplate.Session, error)
	ListByUser(ctx context.Context, userID string) ([]clienttemplate.Template, error)
	ListActive(ctx context.Context, userID string) ([]clienttemplate.Template, error)
	ListSessions(ctx context.Context, templateID string) ([]clienttemplate.Session, error)
	ListCompletedSessions(ctx context.Context, templateID string) ([]clienttemplate.Session, error)
}

// CheckInStore interface for check-in queries.
type CheckInStore interface {
	GetByID(ctx context.Context, id string) (checkin.CheckIn, error)
}

// CoachTemplateStore interface for authoring queries.
type CoachTemplateStore interface {
	GetTree(ctx context.Context, id string) (coachtemplate.Template, error)
}

// UserStore interface for account queries.
type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
}

// requireAccess rejects callers that may not read data owned by ownerID.
func requireAccess(caller user.Caller, ownerID, what string) error {
	if !caller.CanAccess(ownerID) {
		return apperr.Forbidden("cannot read %s", what)
	}
	return nil
}
