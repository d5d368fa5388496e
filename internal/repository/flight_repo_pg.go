package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetClass(ctx context.Context, classID int64) (*domain.FlightClass, error)
}

type PGFlightRepository struct {
	db DBConn
}

func NewFlightRepository(db DBConn) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, status, base_price_cents, created_at, updated_at`

func scanFlight(row rowScanner, f *domain.Flight) error {
	return row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.Status, &f.BasePriceCents, &f.CreatedAt, &f.UpdatedAt)
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// GetByID returns the flight with its fare classes.
func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var f domain.Flight
	if err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id = $1`, id), &f); err != nil {
		return nil, notFound(err, "flight")
	}

	rows, err := r.db.Query(ctx, `SELECT id, flight_id, name, price_multiplier, seat_count FROM flight_classes WHERE flight_id = $1 ORDER BY price_multiplier`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight classes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.FlightClass
		if err := rows.Scan(&c.ID, &c.FlightID, &c.Name, &c.PriceMultiplier, &c.SeatCount); err != nil {
			return nil, fmt.Errorf("failed to scan flight class: %w", err)
		}
		f.Classes = append(f.Classes, c)
	}
	return &f, rows.Err()
}

func (r *PGFlightRepository) GetClass(ctx context.Context, classID int64) (*domain.FlightClass, error) {
	var c domain.FlightClass
	err := r.db.QueryRow(ctx, `SELECT id, flight_id, name, price_multiplier, seat_count FROM flight_classes WHERE id = $1`, classID).
		Scan(&c.ID, &c.FlightID, &c.Name, &c.PriceMultiplier, &c.SeatCount)
	if err != nil {
		return nil, notFound(err, "flight class")
	}
	return &c, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
