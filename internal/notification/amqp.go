package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"spotbooker/internal/models"
)

// Publisher delivers messages to durable RabbitMQ queues. A connection is
// dialed per publish; dispatch runs off the request path, so robustness
// against stale connections wins over latency here.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

func (p *Publisher) BookingReserved(ctx context.Context, b models.Booking) error {
	return p.publish(ctx, QueueBookingReserved, newMessage(b))
}

func (p *Publisher) BookingConfirmed(ctx context.Context, b models.Booking) error {
	return p.publish(ctx, QueueBookingConfirmed, newMessage(b))
}

func (p *Publisher) BookingCancelled(ctx context.Context, b models.Booking) error {
	return p.publish(ctx, QueueBookingCancelled, newMessage(b))
}

func (p *Publisher) publish(ctx context.Context, queue string, msg Message) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts; declare is idempotent.
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err = ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	return nil
}
