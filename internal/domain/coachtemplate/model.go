package coachtemplate

import (
	"errors"
	"sort"
	"strings"
)

// Domain errors
var (
	ErrEmptyName        = errors.New("template name is required")
	ErrEmptySlug        = errors.New("slug is required")
	ErrEmptySessionName = errors.New("session name is required")
	ErrInvalidOrder     = errors.New("order must be at least 1")
	ErrEmptyExerciseID  = errors.New("exercise ID is required")
	ErrEmptyTemplateID  = errors.New("template ID is required")
)

// Template is a reusable authoring program. It is never tied to a client.
type Template struct {
	ID       string
	Name     string
	Slug     string
	Sessions []Session
}

// Session is one workout day within a Template.
type Session struct {
	ID         string
	TemplateID string
	Name       string
	Slug       string
	Order      int
	Exercises  []Exercise
}

// Exercise is a planned exercise with no numeric targets. Sets, reps and weight are
// supplied when the template is instantiated for a client.
type Exercise struct {
	ID         string
	SessionID  string
	ExerciseID string
	Order      int
	// Category and Name are resolved from the catalog on read and never stored here.
	Category string
	Name     string
}

// Validate checks if the Template has valid data.
// PRE: Template struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.Slug == "" {
		return ErrEmptySlug
	}
	return nil
}

// Validate checks if the Session has valid data.
// PRE: Session struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Session) Validate() error {
	if s.TemplateID == "" {
		return ErrEmptyTemplateID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptySessionName
	}
	if s.Slug == "" {
		return ErrEmptySlug
	}
	if s.Order < 1 {
		return ErrInvalidOrder
	}
	return nil
}

// Validate checks if the Exercise has valid data.
// PRE: Exercise struct is populated
// POST: Returns nil if valid, error otherwise
func (e *Exercise) Validate() error {
	if e.ExerciseID == "" {
		return ErrEmptyExerciseID
	}
	if e.Order < 1 {
		return ErrInvalidOrder
	}
	return nil
}

// SortTree orders sessions and each session's exercises by Order.
// POST: Sessions and Exercises are ascending by Order
func (t *Template) SortTree() {
	sort.SliceStable(t.Sessions, func(i, j int) bool { return t.Sessions[i].Order < t.Sessions[j].Order })
	for i := range t.Sessions {
		ex := t.Sessions[i].Exercises
		sort.SliceStable(ex, func(a, b int) bool { return ex[a].Order < ex[b].Order })
	}
}
