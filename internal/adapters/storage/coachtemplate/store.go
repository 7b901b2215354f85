package coachtemplate

import (
	"context"

	domain "coachdesk/internal/domain/coachtemplate"
)

// Store persists coach templates.
type Store interface {
	// RunInTx runs fn in one transaction; any error rolls back every write fn made.
	RunInTx(ctx context.Context, fn func(Tx) error) error
	// GetTree loads a template with its ordered sessions and exercises, the latter
	// resolved against the catalog.
	GetTree(ctx context.Context, id string) (domain.Template, error)
}

// Tx is the transactional view used by the authoring orchestrators.
type Tx interface {
	TemplateSlugsContaining(ctx context.Context, base string) ([]string, error)
	InsertTemplate(ctx context.Context, t domain.Template) error
	// LockTemplate loads the template row and blocks concurrent writers to its sessions.
	LockTemplate(ctx context.Context, id string) (domain.Template, error)
	SessionSlugsContaining(ctx context.Context, templateID, base string) ([]string, error)
	NextSessionOrder(ctx context.Context, templateID string) (int, error)
	InsertSession(ctx context.Context, s domain.Session) error
	// LockSession loads the session row and blocks concurrent writers to its exercises.
	LockSession(ctx context.Context, id string) (domain.Session, error)
	NextExerciseOrder(ctx context.Context, sessionID string) (int, error)
	InsertExercise(ctx context.Context, e domain.Exercise) error
}
