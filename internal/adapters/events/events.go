// Package events publishes committed domain changes for other services.
package events

import (
	"context"
	"time"

	"coachdesk/internal/adapters/metrics"
)

// Subjects. The subject doubles as the event type.
const (
	SubjectTemplateAssigned = "client_template.assigned"
	SubjectTemplateUpdated  = "client_template.updated"
	SubjectSessionCompleted = "client_session.completed"
	SubjectCheckInReviewed  = "check_in.reviewed"
	SubjectClientApproved   = "client.approved"
	SubjectClientTerminated = "client.terminated"
)

// Event is the JSON body published on Type.
type Event struct {
	Type       string    `json:"event_type"`
	ClientID   string    `json:"client_id,omitempty"`
	TemplateID string    `json:"client_template_id,omitempty"`
	SessionID  string    `json:"client_session_id,omitempty"`
	CheckInID  string    `json:"check_in_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends events. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }

type counting struct {
	next      Publisher
	collector *metrics.Collector
}

// WithMetrics counts successfully published events per type.
func WithMetrics(next Publisher, c *metrics.Collector) Publisher {
	return &counting{next: next, collector: c}
}

func (p *counting) Publish(ctx context.Context, e Event) error {
	if err := p.next.Publish(ctx, e); err != nil {
		return err
	}
	p.collector.CountEvent(e.Type)
	return nil
}
