package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spotbooker/internal/lib/logger/handlers/slogdiscard"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
)

type fakeCanceller struct {
	mu        sync.Mutex
	calls     int
	expired   []models.Booking
	cancelErr error
}

func (f *fakeCanceller) CancelExpired(_ context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.expired, f.cancelErr
}

func (f *fakeCanceller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu        sync.Mutex
	cancelled []string
}

func (r *recordingNotifier) BookingReserved(context.Context, models.Booking) error  { return nil }
func (r *recordingNotifier) BookingConfirmed(context.Context, models.Booking) error { return nil }

func (r *recordingNotifier) BookingCancelled(_ context.Context, b models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, b.Reference)
	return nil
}

func TestSweepPublishesCancellations(t *testing.T) {
	t.Parallel()

	canceller := &fakeCanceller{
		expired: []models.Booking{
			{Reference: "ref-1", Status: models.BookingStatusCancelled},
			{Reference: "ref-2", Status: models.BookingStatusCancelled},
		},
	}
	notifier := &recordingNotifier{}

	s := New(slogdiscard.NewDiscardLogger(), canceller, notifier, time.Minute)
	s.Sweep(context.Background())

	assert.Equal(t, 1, canceller.callCount())
	assert.Equal(t, []string{"ref-1", "ref-2"}, notifier.cancelled)
}

func TestSweepNothingExpired(t *testing.T) {
	t.Parallel()

	canceller := &fakeCanceller{}
	notifier := &recordingNotifier{}

	s := New(slogdiscard.NewDiscardLogger(), canceller, notifier, time.Minute)
	s.Sweep(context.Background())

	assert.Empty(t, notifier.cancelled)
}

func TestSweepSurvivesCancelError(t *testing.T) {
	t.Parallel()

	canceller := &fakeCanceller{cancelErr: errors.New("db down")}

	s := New(slogdiscard.NewDiscardLogger(), canceller, notification.Nop{}, time.Minute)
	s.Sweep(context.Background())

	assert.Equal(t, 1, canceller.callCount())
}

func TestRunStopsOnContextDone(t *testing.T) {
	t.Parallel()

	canceller := &fakeCanceller{}

	s := New(slogdiscard.NewDiscardLogger(), canceller, notification.Nop{}, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	assert.GreaterOrEqual(t, canceller.callCount(), 1)
}
