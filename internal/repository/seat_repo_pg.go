package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SeatRepository is the storage side of the seat inventory. Claim and Release are
// single atomic transitions on the seat row.
type SeatRepository interface {
	ListByClass(ctx context.Context, classID int64) ([]domain.FlightSeat, error)
	GetByID(ctx context.Context, seatID int64) (*domain.FlightSeat, error)
	Claim(ctx context.Context, seatID, passengerID int64) error
	Release(ctx context.Context, seatID int64) error
	Provision(ctx context.Context, classID int64, seatNumbers []string) (int, error)
}

type PGSeatRepository struct {
	db DBConn
}

func NewSeatRepository(db DBConn) SeatRepository {
	return &PGSeatRepository{db: db}
}

const seatColumns = `id, flight_class_id, seat_number, is_available, passenger_id`

// The seat must be free and belong to the fare class of the passenger's booking, and
// both passenger and booking must still be live. The state checks run in the same
// statement so a cancellation committed after the caller's read is honoured.
const claimSeatSQL = `UPDATE flight_seats SET is_available = false, passenger_id = $2
	WHERE id = $1 AND is_available AND flight_class_id = (
		SELECT b.flight_class_id FROM passengers p JOIN booking_transactions b ON b.id = p.booking_transaction_id
		WHERE p.id = $2 AND p.status IN ('booked', 'checked_in') AND p.deleted_at IS NULL
		AND b.booking_status NOT IN ('cancelled', 'completed', 'boarded') AND b.deleted_at IS NULL)`

const bindSeatSQL = `UPDATE passengers SET flight_seat_id = $1 WHERE id = $2 AND (flight_seat_id IS NULL OR flight_seat_id = $1)`

func (r *PGSeatRepository) ListByClass(ctx context.Context, classID int64) ([]domain.FlightSeat, error) {
	rows, err := r.db.Query(ctx, `SELECT `+seatColumns+` FROM flight_seats WHERE flight_class_id = $1 ORDER BY seat_number`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	seats := make([]domain.FlightSeat, 0)
	for rows.Next() {
		var s domain.FlightSeat
		if err := rows.Scan(&s.ID, &s.FlightClassID, &s.SeatNumber, &s.IsAvailable, &s.PassengerID); err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *PGSeatRepository) GetByID(ctx context.Context, seatID int64) (*domain.FlightSeat, error) {
	var s domain.FlightSeat
	err := r.db.QueryRow(ctx, `SELECT `+seatColumns+` FROM flight_seats WHERE id = $1`, seatID).
		Scan(&s.ID, &s.FlightClassID, &s.SeatNumber, &s.IsAvailable, &s.PassengerID)
	if err != nil {
		return nil, notFound(err, "seat")
	}
	return &s, nil
}

func (r *PGSeatRepository) Claim(ctx context.Context, seatID, passengerID int64) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		return claimSeatTx(ctx, tx, seatID, passengerID)
	})
}

func (r *PGSeatRepository) Release(ctx context.Context, seatID int64) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE passengers SET flight_seat_id = NULL WHERE flight_seat_id = $1`, seatID); err != nil {
			return fmt.Errorf("failed to unbind seat: %w", err)
		}
		res, err := tx.Exec(ctx, `UPDATE flight_seats SET is_available = true, passenger_id = NULL WHERE id = $1`, seatID)
		if err != nil {
			return fmt.Errorf("failed to release seat: %w", err)
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("seat %d: %w", seatID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *PGSeatRepository) Provision(ctx context.Context, classID int64, seatNumbers []string) (int, error) {
	created := 0
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, number := range seatNumbers {
			res, err := tx.Exec(ctx, `INSERT INTO flight_seats (flight_class_id, seat_number, is_available) VALUES ($1, $2, true) ON CONFLICT (flight_class_id, seat_number) DO NOTHING`, classID, number)
			if err != nil {
				return fmt.Errorf("failed to provision seat %s: %w", number, err)
			}
			created += int(res.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// claimSeatTx is the compare-and-set on the seat row: zero rows affected means
// another passenger got there first.
func claimSeatTx(ctx context.Context, tx execer, seatID, passengerID int64) error {
	res, err := tx.Exec(ctx, claimSeatSQL, seatID, passengerID)
	if err != nil {
		return fmt.Errorf("failed to claim seat: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("seat %d: %w", seatID, domain.ErrSeatUnavailable)
	}

	res, err = tx.Exec(ctx, bindSeatSQL, seatID, passengerID)
	if err != nil {
		return fmt.Errorf("failed to bind seat: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("passenger %d already holds another seat: %w", passengerID, domain.ErrInvalidInput)
	}
	return nil
}

var _ SeatRepository = (*PGSeatRepository)(nil)
