package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spotbooker/internal/models"
	"spotbooker/internal/storage"
)

// Reserve books attendees spots against an event inside one short
// transaction. The event row is locked first, so concurrent reservations
// for the same event serialize here while other events proceed in
// parallel. No spots are consumed on any failure path.
func (s *Storage) Reserve(ctx context.Context, eventID int64, userID string, attendees int, confirmed bool) (*models.Booking, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lockQuery := `
		SELECT price, available_spots
		FROM events
		WHERE id = $1
		FOR UPDATE`

	var price int64
	var available int
	if err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&price, &available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		if err = mapPQError(err); errors.Is(err, storage.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	if attendees > available {
		return nil, storage.ErrCapacityExceeded
	}

	status := models.BookingStatusPending
	if confirmed {
		status = models.BookingStatusConfirmed
	}

	booking := models.Booking{
		Reference:  uuid.NewString(),
		EventID:    eventID,
		UserID:     userID,
		Attendees:  attendees,
		Status:     status,
		TotalPrice: price * int64(attendees),
	}

	insertQuery := `
		INSERT INTO bookings (reference, event_id, user_id, attendees, status, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		booking.Reference,
		booking.EventID,
		booking.UserID,
		booking.Attendees,
		booking.Status,
		booking.TotalPrice,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if err = mapPQError(err); errors.Is(err, storage.ErrDuplicateBooking) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	decrementQuery := `
		UPDATE events
		SET available_spots = available_spots - $2
		WHERE id = $1`

	if _, err = tx.ExecContext(ctx, decrementQuery, eventID, attendees); err != nil {
		return nil, fmt.Errorf("failed to decrement available spots: %w", mapPQError(err))
	}

	if err = tx.Commit(); err != nil {
		if err = mapPQError(err); errors.Is(err, storage.ErrDuplicateBooking) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return &booking, nil
}

// Confirm moves a user's pending booking for an event to confirmed.
// Spots were already consumed at reservation time, so availability does
// not change. Confirming after the event's deadline has passed fails.
func (s *Storage) Confirm(ctx context.Context, eventID int64, userID string) (*models.Booking, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lockQuery := `SELECT deadline_minutes FROM events WHERE id = $1 FOR UPDATE`

	var deadline int
	if err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		if err = mapPQError(err); errors.Is(err, storage.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	bookingQuery := `
		SELECT id, reference, event_id, user_id, attendees, status, total_price, created_at, updated_at
		FROM bookings
		WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`

	var booking models.Booking
	err = tx.QueryRowContext(ctx, bookingQuery, eventID, userID).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.EventID,
		&booking.UserID,
		&booking.Attendees,
		&booking.Status,
		&booking.TotalPrice,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if !booking.Status.CanTransitionTo(models.BookingStatusConfirmed) {
		return nil, storage.ErrInvalidTransition
	}

	if deadline > 0 && time.Since(booking.CreatedAt) > time.Duration(deadline)*time.Minute {
		return nil, storage.ErrBookingExpired
	}

	updateQuery := `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = tx.QueryRowContext(ctx, updateQuery, booking.ID, models.BookingStatusConfirmed).Scan(&booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}
	booking.Status = models.BookingStatusConfirmed

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}

	return &booking, nil
}

// Cancel marks a booking cancelled and returns its spots to the event.
// The bool result reports whether spots were restored: cancelling an
// already cancelled booking is a no-op and never credits spots twice.
func (s *Storage) Cancel(ctx context.Context, bookingID int64) (*models.Booking, bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// The event id is read first so the event row can be locked before
	// the booking is inspected; every mutation takes the same lock, so
	// the booking state read below cannot race a concurrent reserve,
	// confirm or cancel.
	var eventID int64
	err = tx.QueryRowContext(ctx, `SELECT event_id FROM bookings WHERE id = $1`, bookingID).Scan(&eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrBookingNotFound
		}
		return nil, false, fmt.Errorf("failed to get booking event: %w", err)
	}

	lockQuery := `SELECT id FROM events WHERE id = $1 FOR UPDATE`
	if err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&eventID); err != nil {
		if err = mapPQError(err); errors.Is(err, storage.ErrLockTimeout) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to lock event: %w", err)
	}

	bookingQuery := `
		SELECT id, reference, event_id, user_id, attendees, status, total_price, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	var booking models.Booking
	err = tx.QueryRowContext(ctx, bookingQuery, bookingID).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.EventID,
		&booking.UserID,
		&booking.Attendees,
		&booking.Status,
		&booking.TotalPrice,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrBookingNotFound
		}
		return nil, false, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.Status == models.BookingStatusCancelled {
		return &booking, false, tx.Commit()
	}

	updateQuery := `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = tx.QueryRowContext(ctx, updateQuery, bookingID, models.BookingStatusCancelled).Scan(&booking.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	booking.Status = models.BookingStatusCancelled

	// LEAST guards against crediting past capacity if the ledger was
	// corrupted out of band; with intact invariants it never clamps.
	restoreQuery := `
		UPDATE events
		SET available_spots = LEAST(capacity, available_spots + $2)
		WHERE id = $1`

	if _, err = tx.ExecContext(ctx, restoreQuery, eventID, booking.Attendees); err != nil {
		return nil, false, fmt.Errorf("failed to restore available spots: %w", mapPQError(err))
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return &booking, true, nil
}

// CancelExpired cancels pending bookings whose event confirmation
// deadline has passed, restoring their spots. Candidates are scanned
// without locks and re-checked one by one under the event row lock, so
// a booking confirmed mid-sweep is never cancelled.
func (s *Storage) CancelExpired(ctx context.Context) ([]models.Booking, error) {
	query := `
		SELECT b.id
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.status = 'pending'
		  AND e.deadline_minutes > 0
		  AND b.created_at + make_interval(mins => e.deadline_minutes) < now()`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan expired booking: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired bookings: %w", err)
	}

	var cancelled []models.Booking
	for _, id := range ids {
		booking, err := s.cancelExpired(ctx, id)
		if err != nil {
			return cancelled, fmt.Errorf("failed to cancel expired booking %d: %w", id, err)
		}
		if booking != nil {
			cancelled = append(cancelled, *booking)
		}
	}

	return cancelled, nil
}

// cancelExpired cancels one booking if, re-checked under the event row
// lock, it is still pending and still past the deadline. A booking that
// got confirmed or cancelled between the sweep scan and the lock is left
// alone and nil is returned.
func (s *Storage) cancelExpired(ctx context.Context, bookingID int64) (*models.Booking, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var eventID int64
	err = tx.QueryRowContext(ctx, `SELECT event_id FROM bookings WHERE id = $1`, bookingID).Scan(&eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking event: %w", err)
	}

	lockQuery := `SELECT deadline_minutes FROM events WHERE id = $1 FOR UPDATE`

	var deadline int
	if err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&deadline); err != nil {
		return nil, fmt.Errorf("failed to lock event: %w", mapPQError(err))
	}

	bookingQuery := `
		SELECT id, reference, event_id, user_id, attendees, status, total_price, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	var booking models.Booking
	err = tx.QueryRowContext(ctx, bookingQuery, bookingID).Scan(
		&booking.ID,
		&booking.Reference,
		&booking.EventID,
		&booking.UserID,
		&booking.Attendees,
		&booking.Status,
		&booking.TotalPrice,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.Status != models.BookingStatusPending ||
		deadline <= 0 ||
		time.Since(booking.CreatedAt) <= time.Duration(deadline)*time.Minute {
		return nil, tx.Commit()
	}

	updateQuery := `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = tx.QueryRowContext(ctx, updateQuery, bookingID, models.BookingStatusCancelled).Scan(&booking.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}
	booking.Status = models.BookingStatusCancelled

	restoreQuery := `
		UPDATE events
		SET available_spots = LEAST(capacity, available_spots + $2)
		WHERE id = $1`

	if _, err = tx.ExecContext(ctx, restoreQuery, eventID, booking.Attendees); err != nil {
		return nil, fmt.Errorf("failed to restore available spots: %w", mapPQError(err))
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return &booking, nil
}
