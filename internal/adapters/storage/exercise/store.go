package exercise

import (
	"context"

	domain "coachdesk/internal/domain/exercise"
)

// Store persists the exercise catalog. Rows are append-only.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Exercise, error)
	Create(ctx context.Context, e domain.Exercise) error
	List(ctx context.Context) ([]domain.Exercise, error)
}
