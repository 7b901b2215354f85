package projections

import (
	"context"
	"errors"

	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// ValidSessionsQuery carries input for the check-in review set projection.
type ValidSessionsQuery struct {
	Caller    user.Caller
	CheckInID string
}

// ValidSessionsDeps holds dependencies for the check-in review set projection.
type ValidSessionsDeps struct {
	CheckIns        CheckInStore
	ClientTemplates ClientTemplateStore
}

// QueryValidSessions returns the sessions a coach reviews for a check-in: incomplete
// sessions and sessions completed strictly after the check-in start.
// PRE: CheckInID names an existing check-in
// POST: sessions are in template order; a corrupt stored date is Internal
func QueryValidSessions(ctx context.Context, query ValidSessionsQuery, deps ValidSessionsDeps) ([]clienttemplate.Session, error) {
	ci, err := deps.CheckIns.GetByID(ctx, query.CheckInID)
	if err != nil {
		return nil, err
	}
	tpl, err := deps.ClientTemplates.Get(ctx, ci.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(query.Caller, tpl.UserID, "check-in "+ci.ID); err != nil {
		return nil, err
	}
	sessions, err := deps.ClientTemplates.ListSessions(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	valid, err := clienttemplate.ValidSessions(ci, sessions)
	if errors.Is(err, clienttemplate.ErrCorruptDate) {
		return nil, apperr.Internal(err, "stored session date is unparsable")
	}
	return valid, err
}
