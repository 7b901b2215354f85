package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"coachdesk/internal/adapters/cache"
	emailAdapter "coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
)

// SideEffects groups the collaborators notified after a transaction commits.
// Nil fields are skipped. Failures are logged and never fail the request.
type SideEffects struct {
	Email  emailAdapter.Sender
	Events events.Publisher
	Cache  cache.TrainingLog
	AppURL string
}

// sendEmail delivers req unless building it failed.
func (s SideEffects) sendEmail(ctx context.Context, kind string, req emailAdapter.SendRequest, buildErr error) {
	if s.Email == nil {
		return
	}
	if buildErr != nil {
		slog.Warn("notify_event", "event", "email_build_failed", "kind", kind, "error", buildErr)
		return
	}
	if _, err := s.Email.Send(ctx, req); err != nil {
		slog.Warn("notify_event", "event", "email_failed", "kind", kind, "to", req.To, "error", err)
		return
	}
	slog.Info("notify_event", "event", "email_sent", "kind", kind, "to", req.To)
}

// publish emits e, stamping OccurredAt when missing.
func (s SideEffects) publish(ctx context.Context, e events.Event, now func() time.Time) {
	if s.Events == nil {
		return
	}
	if e.OccurredAt.IsZero() && now != nil {
		e.OccurredAt = now()
	}
	if err := s.Events.Publish(ctx, e); err != nil {
		slog.Warn("notify_event", "event", "publish_failed", "subject", e.Type, "error", err)
	}
}

// invalidateTrainingLog drops the cached training log of clientID.
func (s SideEffects) invalidateTrainingLog(ctx context.Context, clientID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, clientID); err != nil {
		slog.Warn("notify_event", "event", "cache_invalidate_failed", "client_id", clientID, "error", err)
	}
}
