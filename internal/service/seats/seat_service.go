package seats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

// SeatUseCase is the seat inventory. A seat has at most one holder at any time.
type SeatUseCase interface {
	ListByClass(ctx context.Context, classID int64) ([]domain.FlightSeat, error)
	Claim(ctx context.Context, seatID, passengerID int64) error
	Release(ctx context.Context, seatID int64) error
	Provision(ctx context.Context, classID int64, seatNumbers []string) (int, error)
}

type SeatService struct {
	seats   repository.SeatRepository
	flights repository.FlightRepository
	log     *slog.Logger
}

type Option func(*SeatService)

func WithLogger(l *slog.Logger) Option {
	return func(s *SeatService) { s.log = l }
}

func NewSeatService(seats repository.SeatRepository, flights repository.FlightRepository, opts ...Option) *SeatService {
	s := &SeatService{seats: seats, flights: flights, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SeatService) ListByClass(ctx context.Context, classID int64) ([]domain.FlightSeat, error) {
	if _, err := s.flights.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	return s.seats.ListByClass(ctx, classID)
}

// Claim hands the seat to the passenger or fails with domain.ErrSeatUnavailable.
func (s *SeatService) Claim(ctx context.Context, seatID, passengerID int64) error {
	if seatID <= 0 || passengerID <= 0 {
		return fmt.Errorf("seat %d for passenger %d: %w", seatID, passengerID, domain.ErrInvalidInput)
	}
	if err := s.seats.Claim(ctx, seatID, passengerID); err != nil {
		return err
	}
	s.log.Debug("seat claimed", "seat_id", seatID, "passenger_id", passengerID)
	return nil
}

// Release frees the seat. Releasing a free seat is a no-op.
func (s *SeatService) Release(ctx context.Context, seatID int64) error {
	if err := s.seats.Release(ctx, seatID); err != nil {
		return err
	}
	s.log.Debug("seat released", "seat_id", seatID)
	return nil
}

// Provision creates the missing seats of a class and returns how many were added.
func (s *SeatService) Provision(ctx context.Context, classID int64, seatNumbers []string) (int, error) {
	class, err := s.flights.GetClass(ctx, classID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(seatNumbers))
	numbers := make([]string, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			return 0, fmt.Errorf("empty seat number: %w", domain.ErrInvalidInput)
		}
		if !seen[n] {
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return 0, fmt.Errorf("no seat numbers: %w", domain.ErrInvalidInput)
	}

	created, err := s.seats.Provision(ctx, class.ID, numbers)
	if err != nil {
		return 0, err
	}
	s.log.Info("seats provisioned", "class_id", class.ID, "requested", len(numbers), "created", created)
	return created, nil
}

var _ SeatUseCase = (*SeatService)(nil)
