package clienttemplate

import (
	"errors"
	"fmt"
)

// Clone errors. ErrUnknown* mean an override points outside the source template;
// ErrMissingOverride and ErrIncompleteOverride mean required values were not supplied.
var (
	ErrUnknownSession     = errors.New("session not found in source template")
	ErrUnknownExercise    = errors.New("exercise not found in source session")
	ErrMissingOverride    = errors.New("missing sets/reps/weight override for exercise")
	ErrIncompleteOverride = errors.New("override must supply sets, reps and weight")
)

// SourceSession is a session of the template being instantiated, with each exercise
// already resolved to the catalog values it should snapshot.
type SourceSession struct {
	ID        string
	Name      string
	Slug      string
	Order     int
	Exercises []SourceExercise
}

// SourceExercise is one planned exercise of a SourceSession.
type SourceExercise struct {
	ID       string // coach exercise ID, or client exercise ID when cloning a client template
	Category string
	Name     string
	Order    int
}

// Override supplies the client-specific work for one source exercise.
type Override struct {
	SessionID  string
	ExerciseID string
	Sets       *int
	Reps       *int
	Weight     *float64
}

type overrideKey struct{ session, exercise string }

// CloneSessions copies the source tree into sessions of templateID, keeping session
// order and slugs, snapshotting exercise names and categories and applying overrides.
// PRE: source slugs are unique within the source template
// POST: one Session per source session, all incomplete; every exercise carries its override
func CloneSessions(templateID string, source []SourceSession, overrides []Override, newID func() string) ([]Session, error) {
	known := make(map[overrideKey]bool)
	sessions := make(map[string]bool, len(source))
	for _, s := range source {
		sessions[s.ID] = true
		for _, e := range s.Exercises {
			known[overrideKey{s.ID, e.ID}] = true
		}
	}

	byKey := make(map[overrideKey]Override, len(overrides))
	for _, o := range overrides {
		if !sessions[o.SessionID] {
			return nil, fmt.Errorf("session %q: %w", o.SessionID, ErrUnknownSession)
		}
		k := overrideKey{o.SessionID, o.ExerciseID}
		if !known[k] {
			return nil, fmt.Errorf("session %q exercise %q: %w", o.SessionID, o.ExerciseID, ErrUnknownExercise)
		}
		if o.Sets == nil || o.Reps == nil || o.Weight == nil {
			return nil, fmt.Errorf("session %q exercise %q: %w", o.SessionID, o.ExerciseID, ErrIncompleteOverride)
		}
		byKey[k] = o
	}

	out := make([]Session, 0, len(source))
	for _, src := range source {
		s := Session{
			ID:         newID(),
			TemplateID: templateID,
			Name:       src.Name,
			Slug:       src.Slug,
			Order:      src.Order,
			Exercises:  make([]Exercise, 0, len(src.Exercises)),
		}
		for _, e := range src.Exercises {
			o, ok := byKey[overrideKey{src.ID, e.ID}]
			if !ok {
				return nil, fmt.Errorf("session %q exercise %q (%s): %w", src.ID, e.ID, e.Name, ErrMissingOverride)
			}
			s.Exercises = append(s.Exercises, Exercise{
				ID:       newID(),
				Sets:     *o.Sets,
				Reps:     *o.Reps,
				Weight:   *o.Weight,
				Category: e.Category,
				Name:     e.Name,
				Order:    e.Order,
			})
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("session %q: %w", src.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}
