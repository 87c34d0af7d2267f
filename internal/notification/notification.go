// Package notification dispatches booking lifecycle messages to a queue
// after the owning transaction committed. Dispatch never runs inside a
// storage transaction and failures must not fail the request.
package notification

import (
	"context"
	"time"

	"spotbooker/internal/models"
)

const (
	QueueBookingReserved  = "booking.reserved"
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

type Message struct {
	Reference  string    `json:"reference"`
	EventID    int64     `json:"event_id"`
	UserID     string    `json:"user_id"`
	Attendees  int       `json:"attendees"`
	Status     string    `json:"status"`
	TotalPrice int64     `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newMessage(b models.Booking) Message {
	return Message{
		Reference:  b.Reference,
		EventID:    b.EventID,
		UserID:     b.UserID,
		Attendees:  b.Attendees,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

type Notifier interface {
	BookingReserved(ctx context.Context, b models.Booking) error
	BookingConfirmed(ctx context.Context, b models.Booking) error
	BookingCancelled(ctx context.Context, b models.Booking) error
}

// Nop is used when no broker is configured and in tests.
type Nop struct{}

func (Nop) BookingReserved(context.Context, models.Booking) error  { return nil }
func (Nop) BookingConfirmed(context.Context, models.Booking) error { return nil }
func (Nop) BookingCancelled(context.Context, models.Booking) error { return nil }
