package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/passengers"
	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/Domenick1991/flightbooking/internal/service/seats"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	flight := store.AddFlight(domain.Flight{
		FlightNumber:   "FB700",
		Origin:         "AMS",
		Destination:    "BCN",
		Status:         domain.FlightStatusScheduled,
		DepartureTime:  time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
		BasePriceCents: 8000,
		Classes:        []domain.FlightClass{{Name: "economy", PriceMultiplier: 1, SeatCount: 2}},
	})
	store.AddPromo(domain.PromoCode{Code: "WELCOME", DiscountType: domain.DiscountFixed, DiscountValue: 1000, IsActive: true})

	promoSvc := promo.NewService(store.Promos())
	router := NewRouter(Handlers{
		Flights:    NewFlightHandler(flights.NewFlightService(store.Flights(), nil, nil), seats.NewSeatService(store.Seats(), store.Flights())),
		Bookings:   NewBookingHandler(booking.NewBookingService(store.Bookings(), store.Flights(), promoSvc)),
		Passengers: NewPassengerHandler(passengers.NewPassengerService(store.Bookings(), store.Seats())),
		Promos:     NewPromoHandler(promoSvc),
	}, "", nil)
	return router, flight.Classes[0].ID
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req.WithContext(context.Background()))
	return w
}

func TestRouter_BookingLifecycle(t *testing.T) {
	r, classID := newTestRouter(t)
	seatsPath := fmt.Sprintf("/api/v1/flights/classes/%d/seats", classID)

	w := do(t, r, "POST", seatsPath, `{"seat_numbers":["1A","1B"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, "GET", seatsPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	var seatMap []domain.FlightSeat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &seatMap))
	require.Len(t, seatMap, 2)

	body := fmt.Sprintf(`{"flight_class_id":%d,"contact_email":"ops@example.com","promo_code":"welcome",
		"passengers":[{"first_name":"Ada","last_name":"Lovelace","passenger_type":"adult","seat_id":%d}]}`,
		classID, seatMap[0].ID)
	w = do(t, r, "POST", "/api/v1/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(8000), created.TotalAmount)
	assert.Equal(t, int64(1000), created.DiscountAmount)
	assert.Equal(t, int64(7000), created.FinalAmount)
	require.Len(t, created.Passengers, 1)
	passengerPath := fmt.Sprintf("/api/v1/passengers/%d", created.Passengers[0].ID)
	bookingPath := "/api/v1/bookings/" + created.TransactionCode

	// Check-in before payment is refused.
	w = do(t, r, "POST", passengerPath+"/check-in", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, "POST", bookingPath+"/payment", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, "PUT", passengerPath+"/seat", fmt.Sprintf(`{"seat_id":%d}`, seatMap[1].ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, "POST", passengerPath+"/check-in", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, "POST", passengerPath+"/board", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, "POST", bookingPath+"/cancel", `{"reason":"late"}`, ActorHeader, "1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, "POST", bookingPath+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, "GET", bookingPath, "")
	require.Equal(t, http.StatusOK, w.Code)
	var final bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &final))
	assert.Equal(t, string(domain.BookingCompleted), final.BookingStatus)
	assert.Equal(t, string(domain.PaymentCompleted), final.PaymentStatus)
}

func TestRouter_CancelReleasesSeats(t *testing.T) {
	r, classID := newTestRouter(t)
	seatsPath := fmt.Sprintf("/api/v1/flights/classes/%d/seats", classID)
	do(t, r, "POST", seatsPath, `{"seat_numbers":["3C"]}`)

	var seatMap []domain.FlightSeat
	require.NoError(t, json.Unmarshal(do(t, r, "GET", seatsPath, "").Body.Bytes(), &seatMap))

	body := fmt.Sprintf(`{"flight_class_id":%d,"contact_email":"ops@example.com",
		"passengers":[{"first_name":"Ada","last_name":"Lovelace","passenger_type":"adult","seat_id":%d}]}`,
		classID, seatMap[0].ID)
	w := do(t, r, "POST", "/api/v1/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, r, "POST", "/api/v1/bookings", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, "POST", "/api/v1/bookings/"+created.TransactionCode+"/cancel", "", ActorHeader, "8")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, json.Unmarshal(do(t, r, "GET", seatsPath, "").Body.Bytes(), &seatMap))
	assert.True(t, seatMap[0].IsAvailable)

	w = do(t, r, "POST", "/api/v1/bookings", body)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_PromoQuoteAndHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, "GET", "/api/v1/promo-codes/welcome/quote?amount=5000&passengers=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"WELCOME","amount":5000,"discount_amount":1000,"final_amount":4000,"applicable":true}`, w.Body.String())

	w = do(t, r, "GET", "/api/v1/promo-codes/nope/quote?amount=5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applicable":false`)

	w = do(t, r, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("x: %w", domain.ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidInput))
	assert.Equal(t, http.StatusConflict, statusFor(&domain.TransitionError{}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.DeadlineExceeded))
}
