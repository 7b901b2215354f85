package clienttemplate

import (
	"context"

	domain "coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// Store persists client templates with their sessions, work and check-ins.
type Store interface {
	// RunInTx runs fn in one transaction; any error rolls back every write fn made.
	RunInTx(ctx context.Context, fn func(Tx) error) error
	// Get loads the template row without children.
	Get(ctx context.Context, id string) (domain.Template, error)
	// GetTree loads the template with ordered sessions, their work and its check-ins.
	GetTree(ctx context.Context, id string) (domain.Template, error)
	GetSession(ctx context.Context, templateID, sessionID string) (domain.Session, error)
	// ListByUser returns template rows of userID, newest start date first.
	ListByUser(ctx context.Context, userID string) ([]domain.Template, error)
	ListActive(ctx context.Context, userID string) ([]domain.Template, error)
	// ListSessions returns every session of templateID in order, with work.
	ListSessions(ctx context.Context, templateID string) ([]domain.Session, error)
	// ListCompletedSessions returns completed sessions of templateID, latest completion first.
	ListCompletedSessions(ctx context.Context, templateID string) ([]domain.Session, error)
}

// Tx is the transactional view used by the client template orchestrators.
// Locks follow one order: client row first, then template row.
type Tx interface {
	LockClient(ctx context.Context, userID string) (user.User, error)
	SaveClient(ctx context.Context, u user.User) error
	LockTemplate(ctx context.Context, id string) (domain.Template, error)
	LoadSessions(ctx context.Context, templateID string) ([]domain.Session, error)
	GetSession(ctx context.Context, templateID, sessionID string) (domain.Session, error)

	TemplateSlugsContaining(ctx context.Context, base string) ([]string, error)
	SessionSlugsContaining(ctx context.Context, templateID, base string) ([]string, error)
	NextSessionOrder(ctx context.Context, templateID string) (int, error)

	// DeactivateOthers clears the active flag on every template of userID except keepID.
	DeactivateOthers(ctx context.Context, userID, keepID string) (int64, error)
	// CountActive returns how many templates of userID are active.
	CountActive(ctx context.Context, userID string) (int, error)

	// InsertTemplate writes the template row, its sessions with work, and its check-ins.
	InsertTemplate(ctx context.Context, t domain.Template) error
	// UpdateTemplate writes the template row and the completion state of t.Sessions.
	UpdateTemplate(ctx context.Context, t domain.Template) error
	InsertSession(ctx context.Context, s domain.Session) error
	// UpdateSession writes the session row and replaces both work lists.
	UpdateSession(ctx context.Context, s domain.Session) error
}
