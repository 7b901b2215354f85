package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	emailAdapter "coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/user"
)

// UserStoreForOrchestrator defines the user store needed by client orchestrators.
type UserStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	Save(ctx context.Context, u user.User) error
}

// --- Register User ---

// RegisterUserInput carries input for the register user orchestrator.
type RegisterUserInput struct {
	ID        string // optional; the identity provider's subject when known
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// RegisterUserDeps holds dependencies for RegisterUser.
type RegisterUserDeps struct {
	UserStore  UserStoreForOrchestrator
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteRegisterUser creates or refreshes an account handed over by the identity provider.
// New clients start unapproved.
// PRE: Role is COACH or CLIENT
// POST: the account is stored; an existing account keeps its approval state and coach
func ExecuteRegisterUser(ctx context.Context, input RegisterUserInput, deps RegisterUserDeps) (user.User, error) {
	role, err := user.ParseRole(input.Role)
	if err != nil {
		return user.User{}, apperr.Invalid(err)
	}
	u := user.User{
		ID:        input.ID,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Role:      role,
		CreatedAt: deps.Now(),
	}
	isNew := true
	if u.ID == "" {
		u.ID = deps.GenerateID()
	} else {
		existing, err := deps.UserStore.GetByID(ctx, u.ID)
		switch {
		case err == nil:
			isNew = false
			u.Approved, u.CoachID, u.CreatedAt = existing.Approved, existing.CoachID, existing.CreatedAt
		case !errors.Is(err, apperr.ErrNotFound):
			return user.User{}, err
		}
	}
	if isNew && u.Role == user.RoleClient {
		approved := false
		u.Approved = &approved
	}
	if err := u.Validate(); err != nil {
		return user.User{}, apperr.Invalid(err)
	}
	if err := deps.UserStore.Save(ctx, u); err != nil {
		return user.User{}, err
	}
	slog.Info("client_event", "event", "user_registered", "user_id", u.ID, "role", u.Role.String())
	return u, nil
}

// --- Approve Client ---

// ApproveClientInput carries input for the approve client orchestrator.
type ApproveClientInput struct {
	Caller   user.Caller
	ClientID string
}

// ApproveClientDeps holds dependencies for ApproveClient.
type ApproveClientDeps struct {
	UserStore UserStoreForOrchestrator
	Effects   SideEffects
	Now       func() time.Time
}

// ExecuteApproveClient moves a client onto the caller's approved list and emails them.
// PRE: caller is a coach
// POST: Approved is true and CoachID is the caller
func ExecuteApproveClient(ctx context.Context, input ApproveClientInput, deps ApproveClientDeps) (user.User, error) {
	if err := requireCoach(input.Caller, "approve clients"); err != nil {
		return user.User{}, err
	}
	u, err := deps.UserStore.GetByID(ctx, input.ClientID)
	if err != nil {
		return user.User{}, err
	}
	if err := u.Approve(input.Caller.ID); err != nil {
		return user.User{}, apperr.Invalid(err)
	}
	if err := deps.UserStore.Save(ctx, u); err != nil {
		return user.User{}, err
	}
	slog.Info("client_event", "event", "client_approved", "client_id", u.ID, "coach_id", u.CoachID)

	req, buildErr := emailAdapter.ApprovedEmail(emailAdapter.Recipient{Name: u.FullName(), Email: u.Email}, deps.Effects.AppURL)
	deps.Effects.sendEmail(ctx, "client_approved", req, buildErr)
	deps.Effects.publish(ctx, events.Event{Type: events.SubjectClientApproved, ClientID: u.ID}, deps.Now)
	return u, nil
}

// --- Terminate Client ---

// TerminateClientInput carries input for the terminate client orchestrator.
type TerminateClientInput struct {
	Caller   user.Caller
	ClientID string
}

// TerminateClientDeps holds dependencies for TerminateClient.
type TerminateClientDeps struct {
	ClientTemplates ClientTemplateStoreForOrchestrator
	Effects         SideEffects
	Now             func() time.Time
}

// ExecuteTerminateClient moves a client to the past list and deactivates all of their templates
// in one transaction.
// PRE: caller is a coach
// POST: Approved is nil; the client has no active template
func ExecuteTerminateClient(ctx context.Context, input TerminateClientInput, deps TerminateClientDeps) (user.User, error) {
	if err := requireCoach(input.Caller, "terminate clients"); err != nil {
		return user.User{}, err
	}
	var (
		u           user.User
		deactivated int64
	)
	err := deps.ClientTemplates.RunInTx(ctx, func(tx clientstore.Tx) error {
		var err error
		if u, err = tx.LockClient(ctx, input.ClientID); err != nil {
			return err
		}
		if err := u.Terminate(); err != nil {
			return apperr.Invalid(err)
		}
		if err := tx.SaveClient(ctx, u); err != nil {
			return err
		}
		deactivated, err = tx.DeactivateOthers(ctx, u.ID, "")
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	slog.Info("client_event", "event", "client_terminated", "client_id", u.ID, "templates_deactivated", deactivated)
	deps.Effects.publish(ctx, events.Event{Type: events.SubjectClientTerminated, ClientID: u.ID}, deps.Now)
	return u, nil
}
