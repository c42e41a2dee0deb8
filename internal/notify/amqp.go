package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange downstream consumers (reminders, EHR
// sync) bind to. Routing keys are "<tenant>.<event>".
const Exchange = "appointments"

// AMQPBus publishes persistent messages to the appointments exchange.
type AMQPBus struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPBus(url string) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPBus{conn: conn, ch: ch}, nil
}

func RoutingKey(tenantID uuid.UUID, event string) string {
	return tenantID.String() + "." + event
}

// Publish serializes access to the channel; amqp channels are not safe
// for concurrent publishers.
func (b *AMQPBus) Publish(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	body, err := encode(tenantID, event, payload)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         event,
		Body:         body,
		Headers:      amqp.Table{"tenant_id": tenantID.String()},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.PublishWithContext(ctx, Exchange, RoutingKey(tenantID, event), false, false, msg); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (b *AMQPBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ch.Close(); err != nil && !b.conn.IsClosed() {
		return fmt.Errorf("close amqp channel: %w", err)
	}
	return b.conn.Close()
}
