// Package events publishes completed analyses to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// TypeAnalysisCompleted is the type of events published after an analysis.
const TypeAnalysisCompleted = "analysis.completed"

// Event describes one completed analysis.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	RecordID   string          `json:"record_id,omitempty"`
	Input      json.RawMessage `json:"input"`
	Output     json.RawMessage `json:"output"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewAnalysisCompleted builds an event with a fresh id.
func NewAnalysisCompleted(collection, recordID string, input, output any) (Event, error) {
	in, err := json.Marshal(input)
	if err != nil {
		return Event{}, fmt.Errorf("marshal input: %w", err)
	}
	out, err := json.Marshal(output)
	if err != nil {
		return Event{}, fmt.Errorf("marshal output: %w", err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeAnalysisCompleted,
		Collection: collection,
		RecordID:   recordID,
		Input:      in,
		Output:     out,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a publisher for subject. The connection
// reconnects in the background; publishes during an outage are buffered
// by the client.
func Connect(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("cofounder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// Subject returns the subject events are published on.
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Publish sends ev. The event id is set as the message id header so
// JetStream consumers can deduplicate.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.logger.Debug("event published", "subject", p.subject, "id", ev.ID, "collection", ev.Collection)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Drain()
	if err != nil {
		p.conn.Close()
	}
	return err
}
