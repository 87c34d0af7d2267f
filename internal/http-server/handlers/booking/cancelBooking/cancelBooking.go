package cancelBooking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"spotbooker/internal/lib/api/response"
	"spotbooker/internal/lib/logger/sl"
	"spotbooker/internal/lib/retry"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
	"spotbooker/internal/storage"
)

type CancelResponse struct {
	response.Response
	Booking *models.Booking `json:"booking"`
	// SpotsRestored is false when the booking was already cancelled;
	// cancellation is idempotent and never credits spots twice.
	SpotsRestored bool `json:"spots_restored"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=BookingCanceller
type BookingCanceller interface {
	Cancel(ctx context.Context, bookingID int64) (*models.Booking, bool, error)
}

func New(log *slog.Logger, booking BookingCanceller, notifier notification.Notifier, rs retry.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.booking.cancelBooking.New"

		log = log.With(slog.String("op", op))

		bookingIDStr := chi.URLParam(r, "id")
		if bookingIDStr == "" {
			log.Error("booking id is required")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("booking id is required"))
			return
		}

		bookingID, err := strconv.ParseInt(bookingIDStr, 10, 64)
		if err != nil {
			log.Error("invalid booking id format", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid booking id format"))
			return
		}

		log = log.With(slog.Int64("booking_id", bookingID))

		var cancelled *models.Booking
		var restored bool
		err = retry.Do(r.Context(), rs, isLockTimeout, func() error {
			cancelled, restored, err = booking.Cancel(r.Context(), bookingID)
			return err
		})
		if err != nil {
			log.Error("failed to cancel booking", sl.Err(err))

			switch {
			case errors.Is(err, storage.ErrBookingNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("booking not found"))
			case errors.Is(err, storage.ErrLockTimeout):
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("event is busy, try again"))
			default:
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to cancel booking"))
			}
			return
		}

		log.Info("booking cancelled",
			slog.String("reference", cancelled.Reference),
			slog.Bool("spots_restored", restored),
		)

		if restored {
			go func(b models.Booking) {
				ctx := context.WithoutCancel(r.Context())
				if err := notifier.BookingCancelled(ctx, b); err != nil {
					log.Error("failed to publish cancellation", sl.Err(err))
				}
			}(*cancelled)
		}

		responseOK(w, r, cancelled, restored)
	}
}

func isLockTimeout(err error) bool {
	return errors.Is(err, storage.ErrLockTimeout)
}

func responseOK(w http.ResponseWriter, r *http.Request, booking *models.Booking, restored bool) {
	render.JSON(w, r, CancelResponse{
		Response:      response.OK(),
		Booking:       booking,
		SpotsRestored: restored,
	})
}
