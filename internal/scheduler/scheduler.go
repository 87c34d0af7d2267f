// Package scheduler runs the periodic sweep that cancels pending bookings
// whose confirmation deadline has passed, returning their spots.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"spotbooker/internal/lib/logger/sl"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
)

type ExpiredCanceller interface {
	CancelExpired(ctx context.Context) ([]models.Booking, error)
}

type Scheduler struct {
	log       *slog.Logger
	canceller ExpiredCanceller
	notifier  notification.Notifier
	interval  time.Duration
}

func New(log *slog.Logger, canceller ExpiredCanceller, notifier notification.Notifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		log:       log.With(slog.String("component", "scheduler")),
		canceller: canceller,
		notifier:  notifier,
		interval:  interval,
	}
}

// Run blocks until ctx is done, sweeping once per interval.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Sweep(ctx context.Context) {
	cancelled, err := s.canceller.CancelExpired(ctx)
	if err != nil {
		s.log.Error("failed to cancel expired bookings", sl.Err(err))
	}

	if len(cancelled) == 0 {
		return
	}

	s.log.Info("expired bookings cancelled", slog.Int("count", len(cancelled)))

	for _, booking := range cancelled {
		if err = s.notifier.BookingCancelled(ctx, booking); err != nil {
			s.log.Error("failed to publish cancellation",
				slog.String("reference", booking.Reference), sl.Err(err))
		}
	}
}
