package user

import (
	"context"

	domain "coachdesk/internal/domain/user"
)

// Store persists User state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	Save(ctx context.Context, u domain.User) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}
