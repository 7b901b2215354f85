package orchestrators

import (
	"context"
	"log/slog"

	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/slug"
)

// ActivateTemplate makes templateID the only active template of userID. write persists the
// target with Active set; it runs between the deactivation and the final check, inside
// the caller's transaction.
// PRE: tx holds the lock on userID's row; the target template belongs to userID
// POST: exactly one template of userID is active, or an error is returned and the caller
// rolls back every write made so far
// INVARIANT: at most one active template per client at any committed state
func ActivateTemplate(ctx context.Context, tx clientstore.Tx, userID, templateID string, write func() error) error {
	deactivated, err := tx.DeactivateOthers(ctx, userID, templateID)
	if err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	n, err := tx.CountActive(ctx, userID)
	if err != nil {
		return err
	}
	if n != 1 {
		return apperr.Conflict("client %s has %d active templates after activating %s", userID, n, templateID)
	}
	if deactivated > 0 {
		slog.Info("client_template_event", "event", "templates_deactivated", "user_id", userID, "kept", templateID, "count", deactivated)
	}
	return nil
}

// allocateSlug slugifies name and makes it unique among the candidates returned by existing.
func allocateSlug(ctx context.Context, name string, existing func(ctx context.Context, base string) ([]string, error)) (string, error) {
	base := slug.Make(name)
	taken, err := existing(ctx, base)
	if err != nil {
		return "", err
	}
	return slug.Next(base, taken), nil
}
