package cancelBooking

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spotbooker/internal/http-server/handlers/booking/cancelBooking/mocks"
	"spotbooker/internal/lib/logger/handlers/slogdiscard"
	"spotbooker/internal/lib/retry"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
	"spotbooker/internal/storage"
)

func TestCancelBookingHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	rs := retry.Strategy{Attempts: 2, Delay: time.Millisecond}

	testCases := []struct {
		name           string
		bookingID      string
		mockSetup      func(m *mocks.BookingCanceller)
		expectedStatus int
		expectedBody   string
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:      "Success restores spots",
			bookingID: "10",
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, int64(10)).
					Return(&models.Booking{
						ID:        10,
						EventID:   1,
						UserID:    "user123",
						Attendees: 2,
						Status:    models.BookingStatusCancelled,
					}, true, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				var resp CancelResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.Equal(t, "OK", resp.Status)
				assert.True(t, resp.SpotsRestored)
				assert.Equal(t, models.BookingStatusCancelled, resp.Booking.Status)
			},
		},
		{
			name:      "Idempotent second cancel",
			bookingID: "10",
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, int64(10)).
					Return(&models.Booking{
						ID:     10,
						Status: models.BookingStatusCancelled,
					}, false, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				var resp CancelResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.Equal(t, "OK", resp.Status)
				assert.False(t, resp.SpotsRestored)
			},
		},
		{
			name:           "Missing booking ID",
			bookingID:      "",
			mockSetup:      func(m *mocks.BookingCanceller) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"booking id is required"}`,
		},
		{
			name:           "Invalid booking ID format",
			bookingID:      "oops",
			mockSetup:      func(m *mocks.BookingCanceller) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid booking id format"}`,
		},
		{
			name:      "Booking not found",
			bookingID: "404",
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, int64(404)).
					Return(nil, false, storage.ErrBookingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"booking not found"}`,
		},
		{
			name:      "Lock timeout exhausts retries",
			bookingID: "10",
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, int64(10)).
					Return(nil, false, storage.ErrLockTimeout).Twice()
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"Error","error":"event is busy, try again"}`,
		},
		{
			name:      "Internal server error",
			bookingID: "10",
			mockSetup: func(m *mocks.BookingCanceller) {
				m.On("Cancel", mock.Anything, int64(10)).
					Return(nil, false, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to cancel booking"}`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockCanceller := mocks.NewBookingCanceller(t)
			tc.mockSetup(mockCanceller)

			handler := New(logger, mockCanceller, notification.Nop{}, rs)

			url := "/bookings/cancel"
			if tc.bookingID != "" {
				url = "/bookings/" + tc.bookingID + "/cancel"
			}

			req, err := http.NewRequest(http.MethodPost, url, nil)
			require.NoError(t, err)

			router := chi.NewRouter()
			router.Route("/bookings", func(r chi.Router) {
				r.Route("/{id}", func(r chi.Router) {
					r.Post("/cancel", handler)
				})
				r.Post("/cancel", handler)
			})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code, "Status code mismatch")

			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String(), "Response body mismatch")
			} else if tc.checkBody != nil {
				tc.checkBody(t, rr.Body.String())
			}
		})
	}
}
