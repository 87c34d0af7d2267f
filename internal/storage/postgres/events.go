package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spotbooker/internal/models"
	"spotbooker/internal/storage"
)

func (s *Storage) CreateEvent(ctx context.Context, title string, date time.Time, price int64, capacity, deadline int) (*models.Event, error) {
	query := `
		INSERT INTO events (title, date, price, capacity, available_spots, deadline_minutes)
		VALUES ($1, $2, $3, $4, $4, $5)
		RETURNING id`

	event := models.Event{
		Title:          title,
		Date:           date,
		Price:          price,
		Capacity:       capacity,
		AvailableSpots: capacity,
		Deadline:       deadline,
	}

	err := s.DB.QueryRowContext(ctx, query, title, date, price, capacity, deadline).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &event, nil
}

func (s *Storage) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT id, title, date, price, capacity, available_spots, deadline_minutes
		FROM events
		WHERE id = $1`

	var event models.Event
	err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Date,
		&event.Price,
		&event.Capacity,
		&event.AvailableSpots,
		&event.Deadline,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (s *Storage) GetAllEvents(ctx context.Context) ([]models.Event, error) {
	query := `
		SELECT id, title, date, price, capacity, available_spots, deadline_minutes
		FROM events
		ORDER BY date ASC`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err = rows.Scan(
			&event.ID,
			&event.Title,
			&event.Date,
			&event.Price,
			&event.Capacity,
			&event.AvailableSpots,
			&event.Deadline,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func (s *Storage) GetEventWithBookings(ctx context.Context, eventID int64) (*models.Event, []models.Booking, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}

	query := `
		SELECT id, reference, event_id, user_id, attendees, status, total_price, created_at, updated_at
		FROM bookings
		WHERE event_id = $1
		ORDER BY created_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		err = rows.Scan(
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
			return nil, nil, fmt.Errorf("failed to scan booking: %w", err)
		}

		bookings = append(bookings, booking)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return event, bookings, nil
}

// UpdateCapacity changes an event's capacity and re-derives available_spots
// from the sum of live bookings rather than applying a delta, so repeated
// edits cannot drift. Shrinking below already committed spots is rejected.
func (s *Storage) UpdateCapacity(ctx context.Context, eventID int64, capacity int) (*models.Event, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lockQuery := `SELECT capacity FROM events WHERE id = $1 FOR UPDATE`

	var oldCapacity int
	if err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&oldCapacity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEventNotFound
		}
		if err = mapPQError(err); errors.Is(err, storage.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	bookedQuery := `
		SELECT COALESCE(SUM(attendees), 0)
		FROM bookings
		WHERE event_id = $1 AND status <> 'cancelled'`

	var booked int
	if err = tx.QueryRowContext(ctx, bookedQuery, eventID).Scan(&booked); err != nil {
		return nil, fmt.Errorf("failed to sum booked spots: %w", err)
	}

	if capacity < booked {
		return nil, storage.ErrCapacityBelowBooked
	}

	updateQuery := `
		UPDATE events
		SET capacity = $2, available_spots = $2 - $3
		WHERE id = $1
		RETURNING id, title, date, price, capacity, available_spots, deadline_minutes`

	var event models.Event
	err = tx.QueryRowContext(ctx, updateQuery, eventID, capacity, booked).Scan(
		&event.ID,
		&event.Title,
		&event.Date,
		&event.Price,
		&event.Capacity,
		&event.AvailableSpots,
		&event.Deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update capacity: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit capacity update: %w", mapPQError(err))
	}

	return &event, nil
}
