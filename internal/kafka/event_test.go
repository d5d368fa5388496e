package kafka

import (
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingEvent(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	seat := int64(12)
	b := &domain.BookingTransaction{
		TransactionCode: "TRX1",
		FlightID:        1,
		FlightClassID:   2,
		ContactEmail:    "owner@example.com",
		BookingStatus:   domain.BookingConfirmed,
		PaymentStatus:   domain.PaymentPaid,
		FinalAmount:     45000,
	}

	e := NewBookingEvent(EventBookingConfirmed, b, now)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "TRX1", e.TransactionCode)
	assert.Equal(t, "confirmed", e.BookingStatus)
	assert.Equal(t, "paid", e.PaymentStatus)
	assert.Equal(t, now, e.OccurredAt)

	withP := e.WithPassenger(&domain.PassengerRecord{ID: 9, Email: "pax@example.com", FlightSeatID: &seat})
	assert.Equal(t, int64(9), withP.PassengerID)
	assert.Equal(t, int64(12), withP.SeatID)
	assert.Equal(t, "pax@example.com", withP.Email)
	assert.Equal(t, "owner@example.com", e.Email)
}
