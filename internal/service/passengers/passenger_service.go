package passengers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type PassengerUseCase interface {
	AssignSeat(ctx context.Context, passengerID, seatID int64) (*domain.PassengerRecord, error)
	ReleaseSeat(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error)
	CheckIn(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error)
	Board(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type PassengerService struct {
	bookings repository.BookingRepository
	seats    repository.SeatRepository
	producer Producer
	topic    string
	clock    domain.Clock
	log      *slog.Logger
}

type Option func(*PassengerService)

func WithProducer(p Producer, topic string) Option {
	return func(s *PassengerService) {
		s.producer = p
		s.topic = topic
	}
}

func WithClock(c domain.Clock) Option {
	return func(s *PassengerService) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *PassengerService) { s.log = l }
}

func NewPassengerService(bookings repository.BookingRepository, seats repository.SeatRepository, opts ...Option) *PassengerService {
	s := &PassengerService{
		bookings: bookings,
		seats:    seats,
		clock:    domain.SystemClock(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PassengerService) load(ctx context.Context, passengerID int64) (*domain.BookingTransaction, *domain.PassengerRecord, error) {
	b, err := s.bookings.GetByPassengerID(ctx, passengerID)
	if err != nil {
		return nil, nil, err
	}
	p := b.Passenger(passengerID)
	if p == nil {
		return nil, nil, fmt.Errorf("passenger %d: %w", passengerID, domain.ErrNotFound)
	}
	return b, p, nil
}

// AssignSeat moves the passenger to seatID. A different seat already held is released
// first, so when the target turns out to be taken the passenger ends up seatless and
// domain.ErrSeatUnavailable is returned together with the updated record.
func (s *PassengerService) AssignSeat(ctx context.Context, passengerID, seatID int64) (*domain.PassengerRecord, error) {
	b, p, err := s.load(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if p.HoldsSeat(seatID) {
		return p, nil
	}
	if p.Status == domain.PassengerCancelled || p.Status == domain.PassengerBoarded {
		return nil, &domain.TransitionError{Entity: "passenger", Op: "assign seat", From: string(p.Status)}
	}

	seat, err := s.seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if seat.FlightClassID != b.FlightClassID {
		return nil, fmt.Errorf("seat %s is not in the booked class: %w", seat.SeatNumber, domain.ErrInvalidInput)
	}

	if p.HasSeat() {
		previous := *p.FlightSeatID
		if err := s.seats.Release(ctx, previous); err != nil {
			return nil, fmt.Errorf("failed to release seat %d: %w", previous, err)
		}
		p.FlightSeatID = nil
		s.publish(ctx, kafka.EventPassengerUnseated, b, p, previous)
	}

	if err := s.seats.Claim(ctx, seatID, p.ID); err != nil {
		if errors.Is(err, domain.ErrSeatUnavailable) {
			s.log.Info("seat taken", "passenger_id", p.ID, "seat_id", seatID)
		}
		return p, err
	}
	p.FlightSeatID = &seatID
	s.publish(ctx, kafka.EventPassengerSeated, b, p, seatID)
	return p, nil
}

// ReleaseSeat gives up the passenger's seat. Seatless passengers are returned unchanged.
func (s *PassengerService) ReleaseSeat(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error) {
	b, p, err := s.load(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if !p.HasSeat() {
		return p, nil
	}
	seatID := *p.FlightSeatID
	if err := s.seats.Release(ctx, seatID); err != nil {
		return nil, err
	}
	p.FlightSeatID = nil
	s.publish(ctx, kafka.EventPassengerUnseated, b, p, seatID)
	return p, nil
}

// CheckIn checks the passenger in. The booking must be paid, and its first check-in
// moves it from confirmed to checked_in.
func (s *PassengerService) CheckIn(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error) {
	b, p, err := s.load(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	bookingFrom := b.BookingStatus
	if err := b.MarkCheckedIn(); err != nil {
		return nil, err
	}
	if err := p.CheckIn(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdatePassengerStatus(ctx, p, domain.PassengerBooked, b, bookingFrom); err != nil {
		return nil, err
	}

	s.log.Info("passenger checked in", "passenger_id", p.ID, "booking", b.TransactionCode)
	s.publish(ctx, kafka.EventPassengerCheckedIn, b, p, 0)
	return p, nil
}

func (s *PassengerService) Board(ctx context.Context, passengerID int64) (*domain.PassengerRecord, error) {
	b, p, err := s.load(ctx, passengerID)
	if err != nil {
		return nil, err
	}
	if err := p.Board(s.clock.Now()); err != nil {
		return nil, err
	}
	bookingFrom := b.BookingStatus
	if err := b.MarkBoarded(); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdatePassengerStatus(ctx, p, domain.PassengerCheckedIn, b, bookingFrom); err != nil {
		return nil, err
	}

	s.log.Info("passenger boarded", "passenger_id", p.ID, "booking", b.TransactionCode)
	s.publish(ctx, kafka.EventPassengerBoarded, b, p, 0)
	return p, nil
}

func (s *PassengerService) publish(ctx context.Context, eventType string, b *domain.BookingTransaction, p *domain.PassengerRecord, seatID int64) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, b, s.clock.Now()).WithPassenger(p)
	if seatID != 0 {
		event.SeatID = seatID
	}
	if err := s.producer.Publish(ctx, s.topic, b.TransactionCode, event); err != nil {
		s.log.Warn("failed to publish passenger event", "type", eventType, "passenger_id", p.ID, "error", err)
	}
}

var _ PassengerUseCase = (*PassengerService)(nil)
