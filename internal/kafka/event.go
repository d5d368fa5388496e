package kafka

import (
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingConfirmed   = "booking_confirmed"
	EventPaymentFailed      = "payment_failed"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCompleted   = "booking_completed"
	EventBookingRefunded    = "booking_refunded"
	EventBookingDeleted     = "booking_deleted"
	EventPassengerSeated    = "passenger_seated"
	EventPassengerUnseated  = "passenger_unseated"
	EventPassengerCheckedIn = "passenger_checked_in"
	EventPassengerBoarded   = "passenger_boarded"
)

type BookingEvent struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	TransactionCode string    `json:"transaction_code"`
	FlightID        int64     `json:"flight_id"`
	FlightClassID   int64     `json:"flight_class_id"`
	PassengerID     int64     `json:"passenger_id,omitempty"`
	SeatID          int64     `json:"seat_id,omitempty"`
	BookingStatus   string    `json:"booking_status"`
	PaymentStatus   string    `json:"payment_status"`
	FinalAmount     int64     `json:"final_amount"`
	Email           string    `json:"email"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.BookingTransaction, now time.Time) BookingEvent {
	return BookingEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		TransactionCode: b.TransactionCode,
		FlightID:        b.FlightID,
		FlightClassID:   b.FlightClassID,
		BookingStatus:   string(b.BookingStatus),
		PaymentStatus:   string(b.PaymentStatus),
		FinalAmount:     b.FinalAmount,
		Email:           b.ContactEmail,
		Reason:          b.CancellationReason,
		OccurredAt:      now,
	}
}

// WithPassenger tags the event with the passenger it concerns.
func (e BookingEvent) WithPassenger(p *domain.PassengerRecord) BookingEvent {
	e.PassengerID = p.ID
	if p.FlightSeatID != nil {
		e.SeatID = *p.FlightSeatID
	}
	if p.Email != "" {
		e.Email = p.Email
	}
	return e
}
