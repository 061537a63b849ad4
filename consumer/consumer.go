package consumer

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/publika/go-presence"
)

const (
	// DefaultExchange carries every user lifecycle event, partitioned by
	// routing key into the status and deletion streams.
	DefaultExchange = "user_events"
	// DefaultStatusQueue receives connected/disconnected events.
	DefaultStatusQueue = "user_status_events"
	// DefaultDeletionQueue receives account deletion events.
	DefaultDeletionQueue = "user_deleted_events"
	// DefaultStatusBinding matches both status routing keys.
	DefaultStatusBinding = "user.status.*"
	// DefaultDeletionBinding matches the deletion routing key.
	DefaultDeletionBinding = "user.deleted"

	dialMaxRetries = 8
)

// UserDirectory is the surface of the presence directory the consumer
// drives.
type UserDirectory interface {
	HandleConnection(ctx context.Context, externalID string, attrs presence.ConnectionAttrs) (*presence.User, error)
	HandleDisconnection(ctx context.Context, externalID string) error
	DeleteUser(ctx context.Context, externalID string) error
}

// Config holds broker topology options. Zero values fall back to the
// defaults above.
type Config struct {
	URL             string
	Exchange        string
	StatusQueue     string
	DeletionQueue   string
	StatusBinding   string
	DeletionBinding string
}

func (cfg Config) withDefaults() Config {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.StatusQueue == "" {
		cfg.StatusQueue = DefaultStatusQueue
	}
	if cfg.DeletionQueue == "" {
		cfg.DeletionQueue = DefaultDeletionQueue
	}
	if cfg.StatusBinding == "" {
		cfg.StatusBinding = DefaultStatusBinding
	}
	if cfg.DeletionBinding == "" {
		cfg.DeletionBinding = DefaultDeletionBinding
	}
	return cfg
}

// Consumer subscribes the two lifecycle queues and feeds the directory.
// Each queue is consumed on its own channel by its own goroutine, so the
// streams proceed independently; messages within one queue are handled to
// completion, in delivery order, before the next one is taken.
type Consumer struct {
	cfg       Config
	directory UserDirectory
	logger    presence.Logger
	conn      *amqp.Connection
}

type Option func(*Consumer)

// WithLogger replaces the default stdout logger.
func WithLogger(logger presence.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Consumer. Call Dial then Start.
func New(directory UserDirectory, cfg Config, opts ...Option) *Consumer {
	c := &Consumer{
		cfg:       cfg.withDefaults(),
		directory: directory,
		logger:    presence.NewDefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Dial connects to the broker, retrying with exponential backoff. Brokers
// routinely come up after their consumers in dev and CI.
func (c *Consumer) Dial() error {
	operation := func() error {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.logger.Error("broker dial failed, backing off: %v", err)
			return err
		}
		c.conn = conn
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), dialMaxRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Start declares the topology and launches one consume loop per queue. The
// loops run until ctx is canceled or the broker closes the delivery stream.
func (c *Consumer) Start(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("consumer is not connected, call Dial first")
	}

	if err := c.declareTopology(); err != nil {
		return err
	}

	if err := c.consumeQueue(ctx, c.cfg.StatusQueue, c.handleStatus); err != nil {
		return err
	}
	if err := c.consumeQueue(ctx, c.cfg.DeletionQueue, c.handleDeletion); err != nil {
		return err
	}

	c.logger.Info("consuming %s and %s on exchange %s", c.cfg.StatusQueue, c.cfg.DeletionQueue, c.cfg.Exchange)
	return nil
}

// Close tears down the broker connection and with it every channel.
func (c *Consumer) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Consumer) declareTopology() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open topology channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.cfg.Exchange, err)
	}

	for _, q := range []struct {
		name    string
		binding string
	}{
		{c.cfg.StatusQueue, c.cfg.StatusBinding},
		{c.cfg.DeletionQueue, c.cfg.DeletionBinding},
	} {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.binding, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", q.name, q.binding, err)
		}
	}

	return nil
}

func (c *Consumer) consumeQueue(ctx context.Context, queue string, handle func(context.Context, amqp.Delivery)) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel for %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Info("delivery stream for %s closed", queue)
					return
				}
				handle(ctx, d)
			}
		}
	}()

	return nil
}

func (c *Consumer) handleStatus(ctx context.Context, d amqp.Delivery) {
	event, err := DecodeStatusEvent(d.Body)
	if err != nil {
		c.drop(d, err)
		return
	}

	switch event.Kind {
	case StatusConnected:
		_, err = c.directory.HandleConnection(ctx, event.UserID, event.Attrs)
	case StatusDisconnected:
		err = c.directory.HandleDisconnection(ctx, event.UserID)
	default:
		// Unknown event types are a successful no-op so that new lifecycle
		// events never wedge the queue.
		c.logger.Info("ignoring unknown status event %q for user %s", event.RawEvent, event.UserID)
	}

	if err != nil {
		c.requeue(d, err)
		return
	}
	c.ack(d)
}

func (c *Consumer) handleDeletion(ctx context.Context, d amqp.Delivery) {
	event, err := DecodeDeletionEvent(d.Body)
	if err != nil {
		c.drop(d, err)
		return
	}

	if err := c.directory.DeleteUser(ctx, event.UserID); err != nil {
		c.requeue(d, err)
		return
	}
	c.ack(d)
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Error("ack failed for delivery %d: %v", d.DeliveryTag, err)
	}
}

// drop negatively acknowledges without requeue. Poison messages cannot be
// fixed by redelivery; the raw body is logged for forensics.
func (c *Consumer) drop(d amqp.Delivery, err error) {
	c.logger.Error("dropping poison message on %s: %v (body: %s)", d.RoutingKey, err, d.Body)
	if nackErr := d.Nack(false, false); nackErr != nil {
		c.logger.Error("nack failed for delivery %d: %v", d.DeliveryTag, nackErr)
	}
}

// requeue negatively acknowledges with requeue so the broker redelivers.
func (c *Consumer) requeue(d amqp.Delivery, err error) {
	c.logger.Error("transient failure on %s (redelivered=%t), requeueing: %v", d.RoutingKey, d.Redelivered, err)
	if nackErr := d.Nack(false, true); nackErr != nil {
		c.logger.Error("nack failed for delivery %d: %v", d.DeliveryTag, nackErr)
	}
}
