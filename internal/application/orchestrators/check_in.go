package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	emailAdapter "coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	"coachdesk/internal/adapters/images"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// MaxImageBytes bounds a single progress photo upload.
const MaxImageBytes = 10 << 20

// CheckInStoreForOrchestrator defines the check-in store needed by check-in orchestrators.
type CheckInStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (checkin.CheckIn, error)
	Update(ctx context.Context, ci checkin.CheckIn) error
}

// TemplateGetter reads client template rows for ownership checks.
type TemplateGetter interface {
	Get(ctx context.Context, id string) (clienttemplate.Template, error)
}

// UserGetter reads accounts for notification addresses.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// loadOwnedCheckIn returns the check-in and the owning client's ID after checking access.
func loadOwnedCheckIn(ctx context.Context, caller user.Caller, id string, checkIns CheckInStoreForOrchestrator, templates TemplateGetter) (checkin.CheckIn, string, error) {
	if id == "" {
		return checkin.CheckIn{}, "", apperr.InvalidInput("check-in id is required")
	}
	ci, err := checkIns.GetByID(ctx, id)
	if err != nil {
		return checkin.CheckIn{}, "", err
	}
	tpl, err := templates.Get(ctx, ci.TemplateID)
	if err != nil {
		return checkin.CheckIn{}, "", err
	}
	if !caller.CanAccess(tpl.UserID) {
		return checkin.CheckIn{}, "", apperr.Forbidden("cannot access check-in %s", id)
	}
	return ci, tpl.UserID, nil
}

// --- Update Check-In ---

// UpdateCheckInInput carries input for the update check-in orchestrator. Nil fields are unchanged.
type UpdateCheckInInput struct {
	Caller        user.Caller
	CheckInID     string
	CoachComment  *string
	ClientComment *string
	Completed     *bool
}

// UpdateCheckInDeps holds dependencies for UpdateCheckIn.
type UpdateCheckInDeps struct {
	CheckIns  CheckInStoreForOrchestrator
	Templates TemplateGetter
	Users     UserGetter
	Effects   SideEffects
	Now       func() time.Time
}

// ExecuteUpdateCheckIn records comments and completion on a check-in. A new coach comment
// notifies the client.
// PRE: only coaches set CoachComment
// POST: the check-in reflects the set fields
func ExecuteUpdateCheckIn(ctx context.Context, input UpdateCheckInInput, deps UpdateCheckInDeps) (checkin.CheckIn, error) {
	if input.CoachComment != nil && !input.Caller.IsCoach() {
		return checkin.CheckIn{}, apperr.Forbidden("only coaches can write coach comments")
	}
	ci, ownerID, err := loadOwnedCheckIn(ctx, input.Caller, input.CheckInID, deps.CheckIns, deps.Templates)
	if err != nil {
		return checkin.CheckIn{}, err
	}

	reviewed := input.CoachComment != nil && strings.TrimSpace(*input.CoachComment) != "" &&
		(ci.CoachComment == nil || *ci.CoachComment != *input.CoachComment)
	if input.CoachComment != nil {
		ci.CoachComment = input.CoachComment
	}
	if input.ClientComment != nil {
		ci.ClientComment = input.ClientComment
	}
	if input.Completed != nil {
		ci.Completed = *input.Completed
	}
	if err := ci.Validate(); err != nil {
		return checkin.CheckIn{}, apperr.Internal(err, "stored check-in is invalid")
	}
	if err := deps.CheckIns.Update(ctx, ci); err != nil {
		return checkin.CheckIn{}, err
	}
	slog.Info("check_in_event", "event", "check_in_updated", "check_in_id", ci.ID, "completed", ci.Completed, "reviewed", reviewed)

	if reviewed {
		notifyReviewed(ctx, ci, ownerID, deps)
	}
	return ci, nil
}

func notifyReviewed(ctx context.Context, ci checkin.CheckIn, ownerID string, deps UpdateCheckInDeps) {
	deps.Effects.publish(ctx, events.Event{
		Type: events.SubjectCheckInReviewed, ClientID: ownerID, TemplateID: ci.TemplateID, CheckInID: ci.ID,
	}, deps.Now)
	if deps.Users == nil {
		return
	}
	client, err := deps.Users.GetByID(ctx, ownerID)
	if err != nil {
		slog.Warn("notify_event", "event", "recipient_lookup_failed", "user_id", ownerID, "error", err)
		return
	}
	req, buildErr := emailAdapter.CheckInReviewedEmail(
		emailAdapter.Recipient{Name: client.FullName(), Email: client.Email}, ci.StartDate, *ci.CoachComment, deps.Effects.AppURL)
	deps.Effects.sendEmail(ctx, "check_in_reviewed", req, buildErr)
}

// --- Upload Check-In Image ---

// UploadCheckInImageInput carries input for the upload check-in image orchestrator.
type UploadCheckInImageInput struct {
	Caller      user.Caller
	CheckInID   string
	Slot        string
	ContentType string
	Body        []byte
}

// UploadCheckInImageDeps holds dependencies for UploadCheckInImage.
type UploadCheckInImageDeps struct {
	CheckIns   CheckInStoreForOrchestrator
	Templates  TemplateGetter
	Images     images.Store
	GenerateID func() string
}

// UploadCheckInImageResult carries the stored key and a temporary download URL.
type UploadCheckInImageResult struct {
	CheckIn checkin.CheckIn
	Key     string
	URL     string
}

// ExecuteUploadCheckInImage stores a progress photo and records its key on the check-in.
// PRE: Slot is front, back, side_a or side_b; ContentType is image/*
// POST: the object is stored under check-ins/<id>/<slot>-<uuid> and the slot points at it
func ExecuteUploadCheckInImage(ctx context.Context, input UploadCheckInImageInput, deps UploadCheckInImageDeps) (UploadCheckInImageResult, error) {
	slot, err := checkin.ParseSlot(input.Slot)
	if err != nil {
		return UploadCheckInImageResult{}, apperr.Invalid(err)
	}
	if !strings.HasPrefix(input.ContentType, "image/") {
		return UploadCheckInImageResult{}, apperr.InvalidInput("content type %q is not an image", input.ContentType)
	}
	if len(input.Body) == 0 {
		return UploadCheckInImageResult{}, apperr.InvalidInput("image body is empty")
	}
	if len(input.Body) > MaxImageBytes {
		return UploadCheckInImageResult{}, apperr.InvalidInput("image exceeds %d bytes", MaxImageBytes)
	}
	ci, _, err := loadOwnedCheckIn(ctx, input.Caller, input.CheckInID, deps.CheckIns, deps.Templates)
	if err != nil {
		return UploadCheckInImageResult{}, err
	}

	key := images.ObjectKey(ci.ID, slot, deps.GenerateID())
	if err := deps.Images.Put(ctx, key, input.ContentType, input.Body); err != nil {
		return UploadCheckInImageResult{}, apperr.Internal(err, "store image")
	}
	previous := ci.Images.Get(slot)
	ci.Images.Set(slot, key)
	if err := deps.CheckIns.Update(ctx, ci); err != nil {
		slog.Warn("check_in_event", "event", "image_orphaned", "key", key, "error", err)
		return UploadCheckInImageResult{}, err
	}
	url, err := deps.Images.PresignGet(ctx, key)
	if err != nil {
		return UploadCheckInImageResult{}, apperr.Internal(err, "presign image")
	}
	slog.Info("check_in_event", "event", "image_uploaded", "check_in_id", ci.ID, "slot", string(slot), "key", key, "replaced", previous)
	return UploadCheckInImageResult{CheckIn: ci, Key: key, URL: url}, nil
}
