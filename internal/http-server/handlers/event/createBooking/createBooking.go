package createBooking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"spotbooker/internal/lib/api/response"
	"spotbooker/internal/lib/logger/sl"
	"spotbooker/internal/lib/retry"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
	"spotbooker/internal/storage"
)

type BookingRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Attendees int    `json:"attendees" validate:"required,gte=1"`
	// Confirm creates the booking already confirmed, for events whose
	// payment settles synchronously.
	Confirm bool `json:"confirm"`
}

type BookingResponse struct {
	response.Response
	Booking *models.Booking `json:"booking"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=BookingReserver
type BookingReserver interface {
	Reserve(ctx context.Context, eventID int64, userID string, attendees int, confirmed bool) (*models.Booking, error)
}

func New(log *slog.Logger, booking BookingReserver, notifier notification.Notifier, rs retry.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.createBooking.New"

		log = log.With(slog.String("op", op))

		eventIDStr := chi.URLParam(r, "id")
		if eventIDStr == "" {
			log.Error("event id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("event id is required"))
			return
		}

		eventID, err := strconv.ParseInt(eventIDStr, 10, 64)
		if err != nil {
			log.Error("invalid event id format", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid event id format"))
			return
		}

		log = log.With(slog.Int64("event_id", eventID))

		var req BookingRequest

		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		log.Info("request body decoded", slog.Any("request", req))

		if err = validator.New().Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				log.Error("invalid request", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ValidationError(validateErr))
				return
			}
		}

		var created *models.Booking
		err = retry.Do(r.Context(), rs, isLockTimeout, func() error {
			created, err = booking.Reserve(r.Context(), eventID, req.UserID, req.Attendees, req.Confirm)
			return err
		})
		if err != nil {
			log.Error("failed to book event", sl.Err(err))

			switch {
			case errors.Is(err, storage.ErrEventNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
			case errors.Is(err, storage.ErrCapacityExceeded):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("not enough available spots"))
			case errors.Is(err, storage.ErrDuplicateBooking):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("user already has a booking for this event"))
			case errors.Is(err, storage.ErrLockTimeout):
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("event is busy, try again"))
			default:
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to book event"))
			}
			return
		}

		log.Info("event booked successfully",
			slog.String("user_id", req.UserID),
			slog.String("reference", created.Reference),
			slog.Int("attendees", created.Attendees),
		)

		// Dispatch happens after the transaction committed; a broker
		// failure must not fail the booking.
		go func(b models.Booking) {
			ctx := context.WithoutCancel(r.Context())
			if err := notifier.BookingReserved(ctx, b); err != nil {
				log.Error("failed to publish reservation", sl.Err(err))
			}
		}(*created)

		responseOK(w, r, created)
	}
}

func isLockTimeout(err error) bool {
	return errors.Is(err, storage.ErrLockTimeout)
}

func responseOK(w http.ResponseWriter, r *http.Request, booking *models.Booking) {
	render.JSON(w, r, BookingResponse{
		Response: response.OK(),
		Booking:  booking,
	})
}
