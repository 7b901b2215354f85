package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
}

// NatsPublisher publishes events as JSON on their type subject.
type NatsPublisher struct {
	conn conn
	nc   *nats.Conn
}

// NewNatsPublisher connects to url.
// PRE: url is a nats:// URL
// POST: Returns a connected publisher or the connection error
func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("coachdesk"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsPublisher{conn: nc, nc: nc}, nil
}

// Publish implements Publisher.
// POST: the event is buffered by the client; delivery is asynchronous
func (p *NatsPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if err := p.conn.Publish(e.Type, data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	slog.Debug("nats_published", "subject", e.Type)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
