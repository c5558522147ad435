// Package pubsub publishes message-pipeline events to an AMQP topic
// exchange for downstream consumers (CRM sync, analytics). Publishing is
// best effort and optional; a nil Publisher drops everything.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is one pipeline occurrence: a message received or a reply sent.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "message.inbound" | "message.reply" | "dispatch.failed"
	Sender    string    `json:"sender"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Publisher struct {
	conn     *amqp.Connection
	exchange string
	log      *slog.Logger
}

// Connect dials the broker and declares a durable topic exchange.
func Connect(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, exchange: exchange, log: logger}, nil
}

// Publish emits one event. A nil receiver is a no-op so callers don't need
// to branch on whether events are configured.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("event marshal failed", "error", err)
		return
	}

	ch, err := p.conn.Channel()
	if err != nil {
		p.log.Warn("event publish failed", "error", err)
		return
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, p.exchange, "wagate."+evt.Kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   evt.ID,
		Timestamp:   evt.Timestamp,
		Body:        body,
	})
	if err != nil {
		p.log.Warn("event publish failed", "kind", evt.Kind, "error", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.conn.Close()
}
