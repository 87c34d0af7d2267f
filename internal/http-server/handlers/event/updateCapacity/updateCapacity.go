package updateCapacity

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
	"spotbooker/internal/storage"
)

// Capacity is a pointer so an explicit 0 (closing the event to new
// bookings) is distinguishable from an absent field.
type CapacityRequest struct {
	Capacity *int `json:"capacity" validate:"required,gte=0"`
}

type CapacityResponse struct {
	response.Response
	Event *models.Event `json:"event"`
}

//go:generate go run github.com/vektra/mockery/v2@v2.51.1 --name=CapacityUpdater
type CapacityUpdater interface {
	UpdateCapacity(ctx context.Context, eventID int64, capacity int) (*models.Event, error)
}

func New(log *slog.Logger, updater CapacityUpdater, rs retry.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.event.updateCapacity.New"

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

		var req CapacityRequest

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

		var event *models.Event
		err = retry.Do(r.Context(), rs, isLockTimeout, func() error {
			event, err = updater.UpdateCapacity(r.Context(), eventID, *req.Capacity)
			return err
		})
		if err != nil {
			log.Error("failed to update capacity", sl.Err(err))

			switch {
			case errors.Is(err, storage.ErrEventNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("event not found"))
			case errors.Is(err, storage.ErrCapacityBelowBooked):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("capacity is below already booked spots"))
			case errors.Is(err, storage.ErrLockTimeout):
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("event is busy, try again"))
			default:
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to update capacity"))
			}
			return
		}

		log.Info("capacity updated",
			slog.Int("capacity", event.Capacity),
			slog.Int("available_spots", event.AvailableSpots),
		)

		responseOK(w, r, event)
	}
}

func isLockTimeout(err error) bool {
	return errors.Is(err, storage.ErrLockTimeout)
}

func responseOK(w http.ResponseWriter, r *http.Request, event *models.Event) {
	render.JSON(w, r, CapacityResponse{
		Response: response.OK(),
		Event:    event,
	})
}
