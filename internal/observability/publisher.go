package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingMessageCreated = "chat.message.created"
	RoutingRoomDeleted    = "chat.room.deleted"
	RoutingPresence       = "chat.presence.changed"
)

// Publisher публикует доменные события
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// EventEnvelope обертка публикуемого события
type EventEnvelope struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewPublisher подключается к RabbitMQ. При пустом url или недоступном брокере
// возвращает NoopPublisher.
func NewPublisher(url, exchange string, logger *slog.Logger) Publisher {
	if url == "" {
		logger.Info("amqp disabled, using noop publisher", "reason", "empty url")
		return NoopPublisher{logger: logger}
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Warn("amqp disabled, using noop publisher", "error", err)
		return NoopPublisher{logger: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("amqp disabled, using noop publisher", "error", err)
		_ = conn.Close()
		return NoopPublisher{logger: logger}
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		logger.Warn("amqp disabled, using noop publisher", "error", err)
		_ = ch.Close()
		_ = conn.Close()
		return NoopPublisher{logger: logger}
	}

	logger.Info("amqp connected", "exchange", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *slog.Logger
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(EventEnvelope{EventType: routingKey, OccurredAt: time.Now().UTC(), Payload: event})
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		IncPublishError()
		p.logger.Warn("amqp publish failed", "routing_key", routingKey, "error", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type NoopPublisher struct {
	logger *slog.Logger
}

func (p NoopPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	if p.logger != nil {
		p.logger.Debug("noop publish", "routing_key", routingKey)
	}
	return nil
}

func (NoopPublisher) Close() error { return nil }
