package checkin

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted date format for check-in windows.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyTemplateID = errors.New("client template ID is required")
	ErrInvalidDate     = errors.New("dates must use YYYY-MM-DD")
	ErrDatesNotOrdered = errors.New("check-in dates must be strictly increasing")
	ErrEndBeforeStart  = errors.New("check-in end date is before its start date")
	ErrInvalidSlot     = errors.New("image slot must be one of: front, back, side_a, side_b")
)

// Slot names one of the four progress photo positions.
type Slot string

const (
	SlotFront Slot = "front"
	SlotBack  Slot = "back"
	SlotSideA Slot = "side_a"
	SlotSideB Slot = "side_b"
)

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToLower(s)) {
	case SlotFront:
		return SlotFront, nil
	case SlotBack:
		return SlotBack, nil
	case SlotSideA:
		return SlotSideA, nil
	case SlotSideB:
		return SlotSideB, nil
	}
	return "", ErrInvalidSlot
}

// Images holds the object keys of a check-in's progress photos. Empty means not uploaded.
type Images struct {
	Front string
	Back  string
	SideA string
	SideB string
}

// Set stores key under slot.
func (im *Images) Set(slot Slot, key string) {
	switch slot {
	case SlotFront:
		im.Front = key
	case SlotBack:
		im.Back = key
	case SlotSideA:
		im.SideA = key
	case SlotSideB:
		im.SideB = key
	}
}

// Get returns the key stored under slot.
func (im Images) Get(slot Slot) string {
	switch slot {
	case SlotFront:
		return im.Front
	case SlotBack:
		return im.Back
	case SlotSideA:
		return im.SideA
	case SlotSideB:
		return im.SideB
	}
	return ""
}

// CheckIn is a progress-review window attached to a client template.
type CheckIn struct {
	ID            string
	TemplateID    string
	StartDate     string // YYYY-MM-DD
	EndDate       string // YYYY-MM-DD, empty when open-ended
	CoachComment  *string
	ClientComment *string
	Completed     bool
	Images        Images
}

// Validate checks if the CheckIn has valid data.
// PRE: CheckIn struct is populated
// POST: Returns nil if valid, error otherwise
func (c *CheckIn) Validate() error {
	if c.TemplateID == "" {
		return ErrEmptyTemplateID
	}
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return fmt.Errorf("start date %q: %w", c.StartDate, ErrInvalidDate)
	}
	if c.EndDate == "" {
		return nil
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return fmt.Errorf("end date %q: %w", c.EndDate, ErrInvalidDate)
	}
	if end.Before(start) {
		return ErrEndBeforeStart
	}
	return nil
}

// Window is a date range produced by the window builders. EndDate is empty for an
// open-ended window.
type Window struct {
	StartDate string
	EndDate   string
}

// InvalidDateError names the value that failed to parse.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid check-in date %q (expected YYYY-MM-DD)", e.Value)
}

// Unwrap lets errors.Is match ErrInvalidDate.
func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// WindowsFromDates turns coach-supplied start dates d0..dn into windows
// [d0, d1-1day], [d1, d2-1day], ..., [dn, open).
// PRE: dates are YYYY-MM-DD and strictly increasing
// POST: len(result) == len(dates); only the last window is open-ended
func WindowsFromDates(dates []string) ([]Window, error) {
	parsed := make([]time.Time, len(dates))
	for i, d := range dates {
		t, err := time.Parse(DateLayout, strings.TrimSpace(d))
		if err != nil {
			return nil, &InvalidDateError{Value: d}
		}
		if i > 0 && !t.After(parsed[i-1]) {
			return nil, fmt.Errorf("%s after %s: %w", d, dates[i-1], ErrDatesNotOrdered)
		}
		parsed[i] = t
	}

	windows := make([]Window, len(parsed))
	for i, start := range parsed {
		w := Window{StartDate: start.Format(DateLayout)}
		if i+1 < len(parsed) {
			w.EndDate = parsed[i+1].AddDate(0, 0, -1).Format(DateLayout)
		}
		windows[i] = w
	}
	return windows, nil
}

// WindowFromSessionCount spans [today, today + sessionCount days].
// PRE: sessionCount >= 0
// POST: returns one closed window
func WindowFromSessionCount(today time.Time, sessionCount int) Window {
	return Window{
		StartDate: today.Format(DateLayout),
		EndDate:   today.AddDate(0, 0, sessionCount).Format(DateLayout),
	}
}
