package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/flightbooking/internal/kafka"
)

// Sender turns booking events into customer notifications. Delivery is a log line;
// an SMTP or provider client plugs in here.
type Sender struct {
	log *slog.Logger
}

func NewSender(logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{log: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	subject, ok := Subject(event)
	if !ok {
		return nil
	}
	if event.Email == "" {
		s.log.Warn("notification without recipient", "type", event.Type, "transaction", event.TransactionCode)
		return nil
	}
	s.log.InfoContext(ctx, "send email",
		"to", event.Email,
		"subject", subject,
		"transaction", event.TransactionCode,
		"flight_id", event.FlightID,
	)
	return nil
}

// Subject returns the mail subject for events customers are told about.
func Subject(event kafka.BookingEvent) (string, bool) {
	switch event.Type {
	case kafka.EventBookingCreated:
		return fmt.Sprintf("Booking %s received", event.TransactionCode), true
	case kafka.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s confirmed", event.TransactionCode), true
	case kafka.EventPaymentFailed:
		return fmt.Sprintf("Payment for booking %s failed", event.TransactionCode), true
	case kafka.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.TransactionCode), true
	case kafka.EventBookingRefunded:
		return fmt.Sprintf("Refund issued for booking %s", event.TransactionCode), true
	case kafka.EventPassengerCheckedIn:
		return fmt.Sprintf("You are checked in (%s)", event.TransactionCode), true
	}
	return "", false
}
