package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/publika/go-presence"
)

const (
	// RoutingKeyConnected routes session-open events to the status queue.
	RoutingKeyConnected = "user.status.connected"
	// RoutingKeyDisconnected routes session-close events to the status queue.
	RoutingKeyDisconnected = "user.status.disconnected"
	// RoutingKeyDeleted routes account deletions to the deletion queue.
	RoutingKeyDeleted = "user.deleted"
)

// Publisher emits user lifecycle events onto the topic exchange. The
// upstream auth service is the normal producer; tests and tooling use this
// one.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher opens a channel on conn and ensures the exchange exists.
func NewPublisher(conn *amqp.Connection, cfg Config) (*Publisher, error) {
	cfg = cfg.withDefaults()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Publisher{channel: ch, exchange: cfg.Exchange}, nil
}

// PublishConnected emits a connected event for externalID with optional
// profile attributes.
func (p *Publisher) PublishConnected(ctx context.Context, externalID string, attrs presence.ConnectionAttrs) error {
	return p.publish(ctx, RoutingKeyConnected, statusEnvelope{
		UserID:   externalID,
		Event:    eventConnected,
		Username: attrs.Username,
		Email:    attrs.Email,
		Role:     string(attrs.Role),
	})
}

// PublishDisconnected emits a disconnected event for externalID.
func (p *Publisher) PublishDisconnected(ctx context.Context, externalID string) error {
	return p.publish(ctx, RoutingKeyDisconnected, statusEnvelope{
		UserID: externalID,
		Event:  eventDisconnected,
	})
}

// PublishDeleted emits a deletion event for externalID.
func (p *Publisher) PublishDeleted(ctx context.Context, externalID string) error {
	return p.publish(ctx, RoutingKeyDeleted, deletionEnvelope{UserID: externalID})
}

// Close releases the publisher channel.
func (p *Publisher) Close() error {
	return p.channel.Close()
}

func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", routingKey, err)
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
