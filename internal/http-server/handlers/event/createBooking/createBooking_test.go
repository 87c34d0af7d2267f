package createBooking

import (
	"bytes"
	"context"
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

	"spotbooker/internal/http-server/handlers/event/createBooking/mocks"
	"spotbooker/internal/lib/logger/handlers/slogdiscard"
	"spotbooker/internal/lib/retry"
	"spotbooker/internal/models"
	"spotbooker/internal/notification"
	"spotbooker/internal/storage"
)

func TestCreateBookingHandler(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	rs := retry.Strategy{Attempts: 2, Delay: time.Millisecond}

	testCases := []struct {
		name           string
		eventID        string
		requestBody    string
		mockSetup      func(m *mocks.BookingReserver)
		expectedStatus int
		expectedBody   string
		checkBody      func(t *testing.T, body string)
	}{
		{
			name:        "Success pending booking",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 2}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 2, false).
					Return(&models.Booking{
						ID:         10,
						Reference:  "11111111-2222-3333-4444-555555555555",
						EventID:    1,
						UserID:     "user123",
						Attendees:  2,
						Status:     models.BookingStatusPending,
						TotalPrice: 3000,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				var resp BookingResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.Equal(t, "OK", resp.Status)
				require.NotNil(t, resp.Booking)
				assert.Equal(t, models.BookingStatusPending, resp.Booking.Status)
				assert.Equal(t, int64(3000), resp.Booking.TotalPrice)
			},
		},
		{
			name:        "Success synchronous payment",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 1, "confirm": true}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 1, true).
					Return(&models.Booking{
						ID:        11,
						EventID:   1,
						UserID:    "user123",
						Attendees: 1,
						Status:    models.BookingStatusConfirmed,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			checkBody: func(t *testing.T, body string) {
				var resp BookingResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.Equal(t, models.BookingStatusConfirmed, resp.Booking.Status)
			},
		},
		{
			name:           "Missing event ID",
			eventID:        "",
			requestBody:    `{"user_id": "user123", "attendees": 1}`,
			mockSetup:      func(m *mocks.BookingReserver) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"event id is required"}`,
		},
		{
			name:           "Invalid event ID format",
			eventID:        "invalid",
			requestBody:    `{"user_id": "user123", "attendees": 1}`,
			mockSetup:      func(m *mocks.BookingReserver) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid event id format"}`,
		},
		{
			name:           "Invalid JSON",
			eventID:        "1",
			requestBody:    `invalid json`,
			mockSetup:      func(m *mocks.BookingReserver) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"failed to decode request"}`,
		},
		{
			name:           "Missing user_id",
			eventID:        "1",
			requestBody:    `{"attendees": 1}`,
			mockSetup:      func(m *mocks.BookingReserver) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"Error"`)
				assert.Contains(t, body, "UserID")
			},
		},
		{
			name:           "Zero attendees",
			eventID:        "1",
			requestBody:    `{"user_id": "user123", "attendees": 0}`,
			mockSetup:      func(m *mocks.BookingReserver) {},
			expectedStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body string) {
				assert.Contains(t, body, `"status":"Error"`)
				assert.Contains(t, body, "Attendees")
			},
		},
		{
			name:        "Capacity exceeded",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 5}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 5, false).
					Return(nil, storage.ErrCapacityExceeded)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"not enough available spots"}`,
		},
		{
			name:        "Duplicate booking",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 1}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 1, false).
					Return(nil, storage.ErrDuplicateBooking)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"status":"Error","error":"user already has a booking for this event"}`,
		},
		{
			name:        "Event not found",
			eventID:     "99",
			requestBody: `{"user_id": "user123", "attendees": 1}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(99), "user123", 1, false).
					Return(nil, storage.ErrEventNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"event not found"}`,
		},
		{
			name:        "Lock timeout exhausts retries",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 1}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 1, false).
					Return(nil, storage.ErrLockTimeout).Twice()
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"Error","error":"event is busy, try again"}`,
		},
		{
			name:        "Internal server error",
			eventID:     "1",
			requestBody: `{"user_id": "user123", "attendees": 1}`,
			mockSetup: func(m *mocks.BookingReserver) {
				m.On("Reserve", mock.Anything, int64(1), "user123", 1, false).
					Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to book event"}`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockReserver := mocks.NewBookingReserver(t)
			tc.mockSetup(mockReserver)

			handler := New(logger, mockReserver, notification.Nop{}, rs)

			url := "/events/book"
			if tc.eventID != "" {
				url = "/events/" + tc.eventID + "/book"
			}

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(tc.requestBody))
			require.NoError(t, err)

			router := chi.NewRouter()
			router.Route("/events", func(r chi.Router) {
				r.Route("/{id}", func(r chi.Router) {
					r.Post("/book", handler)
				})
				r.Post("/book", handler)
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

func TestRetryRecoversFromTransientLockTimeout(t *testing.T) {
	t.Parallel()

	logger := slogdiscard.NewDiscardLogger()
	mockReserver := mocks.NewBookingReserver(t)

	mockReserver.On("Reserve", mock.Anything, int64(1), "user123", 1, false).
		Return(nil, storage.ErrLockTimeout).Once()
	mockReserver.On("Reserve", mock.Anything, int64(1), "user123", 1, false).
		Return(&models.Booking{ID: 1, EventID: 1, UserID: "user123", Attendees: 1, Status: models.BookingStatusPending}, nil).Once()

	handler := New(logger, mockReserver, notification.Nop{}, retry.Strategy{Attempts: 3, Delay: time.Millisecond})

	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"user_id": "user123", "attendees": 1}`))
	require.NoError(t, err)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	mockReserver.AssertExpectations(t)
}
