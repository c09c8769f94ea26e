package streamforwarder

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type amqpConnection interface {
	channel() (amqpChannel, error)
	Close() error
}

type realAMQPConnection struct {
	conn *amqp091.Connection
}

func (c *realAMQPConnection) channel() (amqpChannel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *realAMQPConnection) Close() error {
	return c.conn.Close()
}

// RabbitMQPublisher publishes to rabbitmq://<exchange>/<routing-key> endpoints. Each publish uses its own
// channel so that concurrent publishes never share one.
type RabbitMQPublisher struct {
	conn amqpConnection
}

type RabbitMQDialOptions struct {
	URL      string
	Attempts int
	Backoff  Backoff
	Logger   Logger
}

// DialRabbitMQ connects to RabbitMQ, retrying failed dials according to the backoff.
func DialRabbitMQ(ctx context.Context, opts RabbitMQDialOptions) (*RabbitMQPublisher, error) {
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff(1, 1, 1, 30*time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = DiscardLogger
	}
	var conn *amqp091.Connection
	err := retry(ctx, opts.Attempts, opts.Backoff,
		func(attempt int) error {
			c, err := amqp091.Dial(opts.URL)
			if err != nil {
				return err
			}
			if attempt > 1 {
				opts.Logger.Info("rabbitmq connected", slog.Int("attempt", attempt))
			}
			conn = c
			return nil
		},
		func(attempt int, wait time.Duration, err error) {
			opts.Logger.Error("rabbitmq dial failed",
				slog.Int("attempt", attempt),
				slog.Duration("sleep", wait),
				slog.Any("error", err),
			)
		},
	)
	if err != nil {
		return nil, err
	}
	return &RabbitMQPublisher{conn: &realAMQPConnection{conn: conn}}, nil
}

func (p *RabbitMQPublisher) Supports(endpoint string) bool {
	_, _, err := endpointTarget(endpoint)
	return err == nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	exchange, key, err := endpointTarget(endpoint)
	if err != nil {
		return err
	}
	ch, err := p.conn.channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	msgID := msg.RecordID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	return ch.PublishWithContext(ctx, exchange, key, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msgID,
		Type:         string(msg.EventName),
		Timestamp:    time.Now(),
		Body:         msg.Body,
	})
}

func (p *RabbitMQPublisher) Close() error {
	return p.conn.Close()
}
