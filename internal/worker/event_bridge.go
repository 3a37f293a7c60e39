package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/servicedesk-io/helpdesk-service/internal/config"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
)

// EventBridge forwards domain events to a durable RabbitMQ queue so
// downstream consumers (reporting, external notification channels) can
// react without sitting inside the request path. Publish failures are
// logged and swallowed: the broker is never allowed to fail a state
// change that already committed.
type EventBridge struct {
	cfg    config.AMQPConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewEventBridge builds the bridge and registers it on the dispatcher.
// With an empty AMQP URL the bridge stays inert.
func NewEventBridge(cfg config.AMQPConfig, dispatcher events.Dispatcher, logger *zap.Logger) *EventBridge {
	b := &EventBridge{cfg: cfg, logger: logger}
	if cfg.URL == "" {
		logger.Info("amqp bridge disabled, no broker url configured")
		return b
	}
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventDiagnosisSubmitted,
		events.EventWorkOrderCreated,
		events.EventWorkOrderStatusChanged,
		events.EventBookingApproved,
		events.EventBookingRejected,
		events.EventCommentAdded,
	} {
		dispatcher.Subscribe(t, b.publish)
	}
	return b
}

func (b *EventBridge) publish(ctx context.Context, event events.Event) error {
	if b.cfg.URL == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("amqp bridge: marshal event failed", zap.Error(err))
		return nil
	}

	ch, err := b.channel()
	if err != nil {
		b.logger.Warn("amqp bridge: broker unavailable", zap.Error(err))
		return nil
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", b.cfg.Queue, false, false, pub); err != nil {
		b.logger.Warn("amqp bridge: publish failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
		b.reset()
	}
	return nil
}

// channel returns the cached channel, dialing and declaring the durable
// queue on first use or after a failure.
func (b *EventBridge) channel() (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil && !b.conn.IsClosed() {
		return b.ch, nil
	}

	conn, err := amqp.Dial(b.cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(b.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	b.conn = conn
	b.ch = ch
	return ch, nil
}

func (b *EventBridge) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

// Close tears down the broker connection.
func (b *EventBridge) Close() {
	b.reset()
}
