package exercise

import (
	"errors"
	"strings"
)

// Domain errors
var (
	ErrEmptyName     = errors.New("exercise name is required")
	ErrEmptyCategory = errors.New("exercise category is required")
)

// Exercise is a catalog entry. Catalog rows are append-only; sessions copy
// Category and Name at creation time rather than referencing the row.
type Exercise struct {
	ID       string
	Category string
	Name     string
}

// Validate checks if the Exercise has valid data.
// PRE: Exercise struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Exercise) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
