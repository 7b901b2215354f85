package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyFirstName = errors.New("first name is required")
	ErrEmptyLastName  = errors.New("last name is required")
	ErrInvalidEmail   = errors.New("a valid email is required")
	ErrInvalidRole    = errors.New("role must be one of: COACH, CLIENT")
	ErrNotClient      = errors.New("user is not a client")
	ErrNotCoach       = errors.New("expected role of COACH")
)

// Role is the closed set of caller roles.
type Role int

const (
	RoleCoach Role = iota + 1
	RoleClient
)

// String returns the wire form of the role.
func (r Role) String() string {
	switch r {
	case RoleCoach:
		return "COACH"
	case RoleClient:
		return "CLIENT"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole converts the wire form into a Role.
// PRE: none
// POST: returns a valid Role or ErrInvalidRole
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COACH":
		return RoleCoach, nil
	case "CLIENT":
		return RoleClient, nil
	}
	return 0, ErrInvalidRole
}

// Client list groupings.
const (
	StatusApproved   = "approved"
	StatusUnapproved = "unapproved"
	StatusPast       = "past"
)

// User is an account known to the engine. Accounts are created by the identity provider;
// the engine only reads names for slugs and tracks the coach/client relationship.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	// Approved is nil for a past (terminated) client.
	Approved  *bool
	CoachID   string
	CreatedAt time.Time
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if strings.TrimSpace(u.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(u.LastName) == "" {
		return ErrEmptyLastName
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if u.Role != RoleCoach && u.Role != RoleClient {
		return ErrInvalidRole
	}
	return nil
}

// FullName returns "First Last".
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ClientStatus returns which client list the user belongs to.
// INVARIANT: only meaningful for RoleClient
func (u User) ClientStatus() string {
	switch {
	case u.Approved == nil:
		return StatusPast
	case *u.Approved:
		return StatusApproved
	default:
		return StatusUnapproved
	}
}

// Approve marks the client as approved under coachID.
// PRE: u.Role == RoleClient
// POST: Approved is true and CoachID is set
func (u *User) Approve(coachID string) error {
	if u.Role != RoleClient {
		return ErrNotClient
	}
	approved := true
	u.Approved = &approved
	u.CoachID = coachID
	return nil
}

// Terminate moves the client to the past-client list.
// PRE: u.Role == RoleClient
// POST: Approved is nil
func (u *User) Terminate() error {
	if u.Role != RoleClient {
		return ErrNotClient
	}
	u.Approved = nil
	return nil
}

// Caller is the authenticated identity of a request as vouched for by the identity provider.
type Caller struct {
	ID   string
	Role Role
}

// IsCoach reports whether the caller acts with coach rights.
func (c Caller) IsCoach() bool {
	return c.Role == RoleCoach
}

// CanAccess reports whether the caller may read or change data owned by ownerID.
// Coaches may act on every client; clients only on themselves.
func (c Caller) CanAccess(ownerID string) bool {
	switch c.Role {
	case RoleCoach:
		return true
	case RoleClient:
		return c.ID != "" && c.ID == ownerID
	}
	return false
}
