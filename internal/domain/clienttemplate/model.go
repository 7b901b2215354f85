package clienttemplate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"coachdesk/internal/domain/checkin"
)

// DateLayout is the storage and wire format of every template and session date.
const DateLayout = checkin.DateLayout

// Domain errors
var (
	ErrEmptyName          = errors.New("name is required")
	ErrEmptySlug          = errors.New("slug is required")
	ErrEmptyUserID        = errors.New("client ID is required")
	ErrEmptyTemplateID    = errors.New("client template ID is required")
	ErrInvalidDate        = errors.New("dates must use YYYY-MM-DD")
	ErrEndBeforeStart     = errors.New("end date is before start date")
	ErrInvalidOrder       = errors.New("order must be at least 1")
	ErrCompletionMismatch = errors.New("completed_date must be set exactly when completed is true")
	ErrNegativeWork       = errors.New("sets, reps and weight must not be negative")
	ErrEmptyExerciseName  = errors.New("exercise name is required")
	ErrCorruptDate        = errors.New("stored date is unparsable")
)

// Template is a client-owned instance of a program.
// INVARIANT: at most one Template per UserID has Active == true in any committed state
type Template struct {
	ID        string
	Name      string
	Slug      string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD, empty when open-ended
	UserID    string
	Active    bool
	Completed bool
	Sessions  []Session
	CheckIns  []checkin.CheckIn
}

// Session is one workout day of a client template.
// INVARIANT: CompletedDate != "" if and only if Completed
type Session struct {
	ID              string
	TemplateID      string
	Name            string
	Slug            string
	Order           int
	Completed       bool
	CompletedDate   string
	ClientWeight    *float64
	Comment         *string
	Exercises       []Exercise
	TrainingEntries []TrainingEntry
}

// Exercise is a denormalized snapshot of a catalog exercise with the planned work.
// Category and Name are copied, never referenced, so catalog edits leave history intact.
type Exercise struct {
	ID       string
	Sets     int
	Reps     int
	Weight   float64
	Category string
	Name     string
	Order    int
}

// TrainingEntry is work logged by the client. It has the same shape as Exercise.
type TrainingEntry = Exercise

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
	if t.UserID == "" {
		return ErrEmptyUserID
	}
	start, err := ParseDate(t.StartDate)
	if err != nil {
		return fmt.Errorf("start_date %q: %w", t.StartDate, ErrInvalidDate)
	}
	if t.EndDate != "" {
		end, err := ParseDate(t.EndDate)
		if err != nil {
			return fmt.Errorf("end_date %q: %w", t.EndDate, ErrInvalidDate)
		}
		if end.Before(start) {
			return ErrEndBeforeStart
		}
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
		return ErrEmptyName
	}
	if s.Slug == "" {
		return ErrEmptySlug
	}
	if s.Order < 1 {
		return ErrInvalidOrder
	}
	if s.Completed != (s.CompletedDate != "") {
		return ErrCompletionMismatch
	}
	for _, e := range s.Exercises {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, e := range s.TrainingEntries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the Exercise has valid data.
func (e *Exercise) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyExerciseName
	}
	if e.Sets < 0 || e.Reps < 0 || e.Weight < 0 {
		return ErrNegativeWork
	}
	if e.Order < 1 {
		return ErrInvalidOrder
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// CompletionDate returns start + order days, the scheduled completion date of the
// session at position order.
// PRE: start is YYYY-MM-DD
// POST: returns YYYY-MM-DD or ErrCorruptDate
func CompletionDate(start string, order int) (string, error) {
	d, err := ParseDate(start)
	if err != nil {
		return "", fmt.Errorf("template start_date %q: %w", start, ErrCorruptDate)
	}
	return d.AddDate(0, 0, order).Format(DateLayout), nil
}

// SetCompleted applies a completion transition. Marking complete derives CompletedDate
// from the template start and the session order, never from the wall clock.
// Marking incomplete clears CompletedDate.
// PRE: templateStart is the parent template's StartDate
// POST: Completed == completed; CompletedDate set iff completed
func (s *Session) SetCompleted(completed bool, templateStart string) error {
	if !completed {
		s.Completed = false
		s.CompletedDate = ""
		return nil
	}
	date, err := CompletionDate(templateStart, s.Order)
	if err != nil {
		return err
	}
	s.Completed = true
	s.CompletedDate = date
	return nil
}

// Reschedule recomputes CompletedDate of every completed session after a start date change.
// POST: every completed session satisfies CompletedDate == StartDate + Order days
func (t *Template) Reschedule() error {
	for i := range t.Sessions {
		if !t.Sessions[i].Completed {
			continue
		}
		if err := t.Sessions[i].SetCompleted(true, t.StartDate); err != nil {
			return err
		}
	}
	return nil
}

// SortTree orders sessions, their exercises and entries by Order, and check-ins by start.
func (t *Template) SortTree() {
	sort.SliceStable(t.Sessions, func(i, j int) bool { return t.Sessions[i].Order < t.Sessions[j].Order })
	for i := range t.Sessions {
		t.Sessions[i].sortWork()
	}
	sort.SliceStable(t.CheckIns, func(i, j int) bool { return t.CheckIns[i].StartDate < t.CheckIns[j].StartDate })
}

func (s *Session) sortWork() {
	sort.SliceStable(s.Exercises, func(i, j int) bool { return s.Exercises[i].Order < s.Exercises[j].Order })
	sort.SliceStable(s.TrainingEntries, func(i, j int) bool { return s.TrainingEntries[i].Order < s.TrainingEntries[j].Order })
}

// --- Partial updates ---

// TemplatePatch carries the optional fields of a template update. Nil means unchanged.
type TemplatePatch struct {
	Name      *string
	StartDate *string
	EndDate   *string
	Completed *bool
	Active    *bool
}

// Apply writes the set fields into t and keeps completion dates consistent with a new
// start date.
// PRE: t is a loaded template including its sessions
// POST: t reflects the patch; Validate() has passed
func (p TemplatePatch) Apply(t *Template) error {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Active != nil {
		t.Active = *p.Active
	}
	rescheduled := false
	if p.StartDate != nil && *p.StartDate != t.StartDate {
		t.StartDate = *p.StartDate
		rescheduled = true
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if rescheduled {
		return t.Reschedule()
	}
	return nil
}

// SessionPatch carries the optional fields of a session update. Work lists, when set,
// replace the stored lists entirely.
type SessionPatch struct {
	Name            *string
	ClientWeight    *float64
	Comment         *string
	Completed       *bool
	Exercises       *[]Exercise
	TrainingEntries *[]TrainingEntry
}

// Apply writes the set fields into s.
// PRE: templateStart is the parent template's StartDate
// POST: s reflects the patch; Validate() has passed
func (p SessionPatch) Apply(s *Session, templateStart string) error {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ClientWeight != nil {
		s.ClientWeight = p.ClientWeight
	}
	if p.Comment != nil {
		s.Comment = p.Comment
	}
	if p.Exercises != nil {
		s.Exercises = Resequence(*p.Exercises)
	}
	if p.TrainingEntries != nil {
		s.TrainingEntries = Resequence(*p.TrainingEntries)
	}
	if p.Completed != nil {
		if err := s.SetCompleted(*p.Completed, templateStart); err != nil {
			return err
		}
	}
	return s.Validate()
}

// Resequence numbers a work list 1..n. When every item carries an order the list is first
// stably sorted by it; otherwise the list position wins.
// POST: orders are exactly 1..len(work) with no duplicates
func Resequence(work []Exercise) []Exercise {
	out := slices.Clone(work)
	explicit := len(out) > 0
	for _, w := range out {
		if w.Order < 1 {
			explicit = false
			break
		}
	}
	if explicit {
		slices.SortStableFunc(out, func(a, b Exercise) int { return cmp.Compare(a.Order, b.Order) })
	}
	for i := range out {
		out[i].Order = i + 1
	}
	if out == nil {
		out = []Exercise{}
	}
	return out
}

// --- Check-in membership ---

// ValidSessions returns the sessions that belong to the review set of ci: incomplete
// sessions, and sessions completed strictly after the check-in start.
// PRE: sessions belong to ci's template
// POST: returns ErrCorruptDate if a completed session's date cannot be parsed
func ValidSessions(ci checkin.CheckIn, sessions []Session) ([]Session, error) {
	start, err := ParseDate(ci.StartDate)
	if err != nil {
		return nil, fmt.Errorf("check-in %s start_date %q: %w", ci.ID, ci.StartDate, ErrCorruptDate)
	}
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Completed {
			out = append(out, s)
			continue
		}
		done, err := ParseDate(s.CompletedDate)
		if err != nil {
			return nil, fmt.Errorf("session %s completed_date %q: %w", s.ID, s.CompletedDate, ErrCorruptDate)
		}
		if done.After(start) {
			out = append(out, s)
		}
	}
	return out, nil
}
