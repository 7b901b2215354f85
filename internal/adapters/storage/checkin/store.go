package checkin

import (
	"context"

	domain "coachdesk/internal/domain/checkin"
)

// Store persists check-ins. Check-ins are created together with their client template;
// afterwards only comments, completion and image keys change.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.CheckIn, error)
	Update(ctx context.Context, ci domain.CheckIn) error
	ListByTemplate(ctx context.Context, templateID string) ([]domain.CheckIn, error)
}
