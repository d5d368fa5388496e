package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	// Create inserts the booking and its passengers, claims every requested seat and,
	// when redeemPromo is set, commits one use of the promo code. All or nothing.
	Create(ctx context.Context, booking *domain.BookingTransaction, redeemPromo bool) error
	GetByCode(ctx context.Context, code string) (*domain.BookingTransaction, error)
	GetByPassengerID(ctx context.Context, passengerID int64) (*domain.BookingTransaction, error)
	// UpdateStatus persists booking and payment status if the booking is still in from.
	UpdateStatus(ctx context.Context, booking *domain.BookingTransaction, from domain.BookingStatus) error
	// UpdatePassengerStatus persists a passenger transition together with the booking
	// status it caused. Both are conditional on the previous status.
	UpdatePassengerStatus(ctx context.Context, passenger *domain.PassengerRecord, from domain.PassengerStatus, booking *domain.BookingTransaction, bookingFrom domain.BookingStatus) error
	// Cancel records the cancellation and releases every seat held by the booking's
	// passengers in one transaction. It applies only while the stored booking still
	// matches guard; otherwise domain.ErrNotCancellable is returned and nothing changes.
	// The stored payment status is cancelled only if nothing was paid, and the value
	// actually written is copied back into booking.
	Cancel(ctx context.Context, booking *domain.BookingTransaction, guard CancelGuard) error
	SoftDelete(ctx context.Context, bookingID int64) error
	ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.BookingTransaction, error)
}

// CancelGuard is the state a booking must still be in for Cancel to apply.
type CancelGuard struct {
	From domain.BookingStatus
	// UnpaidOnly also requires the payment to still be pending or failed.
	UnpaidOnly bool
}

type PGBookingRepository struct {
	db DBConn
}

func NewBookingRepository(db DBConn) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, transaction_code, flight_id, flight_class_id, promo_code_id, contact_email, total_amount, discount_amount, final_amount, payment_status, booking_status, cancellation_reason, cancelled_by, cancelled_at, created_at, updated_at`

const passengerColumns = `id, booking_transaction_id, first_name, last_name, email, phone, date_of_birth, passenger_type, document_type, document_number, nationality, price, taxes, fees, total_price, status, checked_in, checked_in_at, boarded, boarded_at, flight_seat_id`

const releaseBookingSeatsSQL = `UPDATE flight_seats SET is_available = true, passenger_id = NULL WHERE passenger_id IN (SELECT id FROM passengers WHERE booking_transaction_id = $1)`

func scanBooking(row rowScanner, b *domain.BookingTransaction) error {
	return row.Scan(&b.ID, &b.TransactionCode, &b.FlightID, &b.FlightClassID, &b.PromoCodeID, &b.ContactEmail,
		&b.TotalAmount, &b.DiscountAmount, &b.FinalAmount, &b.PaymentStatus, &b.BookingStatus,
		&b.CancellationReason, &b.CancelledBy, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
}

func scanPassenger(row rowScanner, p *domain.PassengerRecord) error {
	return row.Scan(&p.ID, &p.BookingTransactionID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth,
		&p.PassengerType, &p.DocumentType, &p.DocumentNumber, &p.Nationality, &p.Price, &p.Taxes, &p.Fees,
		&p.TotalPrice, &p.Status, &p.CheckedIn, &p.CheckedInAt, &p.Boarded, &p.BoardedAt, &p.FlightSeatID)
}

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.BookingTransaction, redeemPromo bool) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if redeemPromo && b.PromoCodeID != nil {
			if err := incrementPromoUsesTx(ctx, tx, *b.PromoCodeID); err != nil {
				return err
			}
		}

		err := tx.QueryRow(ctx, `INSERT INTO booking_transactions (transaction_code, flight_id, flight_class_id, promo_code_id, contact_email, total_amount, discount_amount, final_amount, payment_status, booking_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at`,
			b.TransactionCode, b.FlightID, b.FlightClassID, b.PromoCodeID, b.ContactEmail,
			b.TotalAmount, b.DiscountAmount, b.FinalAmount, b.PaymentStatus, b.BookingStatus).
			Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		for i := range b.Passengers {
			p := &b.Passengers[i]
			p.BookingTransactionID = b.ID
			seatID := p.FlightSeatID
			p.FlightSeatID = nil

			err := tx.QueryRow(ctx, `INSERT INTO passengers (booking_transaction_id, first_name, last_name, email, phone, date_of_birth, passenger_type, document_type, document_number, nationality, price, taxes, fees, total_price, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				RETURNING id`,
				p.BookingTransactionID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.PassengerType,
				p.DocumentType, p.DocumentNumber, p.Nationality, p.Price, p.Taxes, p.Fees, p.TotalPrice, p.Status).
				Scan(&p.ID)
			if err != nil {
				return fmt.Errorf("failed to insert passenger: %w", err)
			}

			if seatID != nil {
				if err := claimSeatTx(ctx, tx, *seatID, p.ID); err != nil {
					return err
				}
				p.FlightSeatID = seatID
			}
		}
		return nil
	})
}

func (r *PGBookingRepository) GetByCode(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	var b domain.BookingTransaction
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM booking_transactions WHERE transaction_code = $1 AND deleted_at IS NULL`, code)
	if err := scanBooking(row, &b); err != nil {
		return nil, notFound(err, "booking")
	}
	if err := r.loadPassengers(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) GetByPassengerID(ctx context.Context, passengerID int64) (*domain.BookingTransaction, error) {
	var b domain.BookingTransaction
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM booking_transactions WHERE id = (SELECT booking_transaction_id FROM passengers WHERE id = $1 AND deleted_at IS NULL) AND deleted_at IS NULL`, passengerID)
	if err := scanBooking(row, &b); err != nil {
		return nil, notFound(err, "passenger")
	}
	if err := r.loadPassengers(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) loadPassengers(ctx context.Context, b *domain.BookingTransaction) error {
	rows, err := r.db.Query(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE booking_transaction_id = $1 AND deleted_at IS NULL ORDER BY id`, b.ID)
	if err != nil {
		return fmt.Errorf("failed to query passengers: %w", err)
	}
	defer rows.Close()

	b.Passengers = make([]domain.PassengerRecord, 0)
	for rows.Next() {
		var p domain.PassengerRecord
		if err := scanPassenger(rows, &p); err != nil {
			return fmt.Errorf("failed to scan passenger: %w", err)
		}
		b.Passengers = append(b.Passengers, p)
	}
	return rows.Err()
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, b *domain.BookingTransaction, from domain.BookingStatus) error {
	row := r.db.QueryRow(ctx, `UPDATE booking_transactions SET booking_status = $2, payment_status = $3, updated_at = now() WHERE id = $1 AND booking_status = $4 AND deleted_at IS NULL RETURNING updated_at`,
		b.ID, b.BookingStatus, b.PaymentStatus, from)
	if err := row.Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.TransitionError{Entity: "booking", Op: "update to " + string(b.BookingStatus), From: "stale " + string(from)}
		}
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) UpdatePassengerStatus(ctx context.Context, p *domain.PassengerRecord, from domain.PassengerStatus, b *domain.BookingTransaction, bookingFrom domain.BookingStatus) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `UPDATE passengers SET status = $2, checked_in = $3, checked_in_at = $4, boarded = $5, boarded_at = $6 WHERE id = $1 AND status = $7 AND deleted_at IS NULL`,
			p.ID, p.Status, p.CheckedIn, p.CheckedInAt, p.Boarded, p.BoardedAt, from)
		if err != nil {
			return fmt.Errorf("failed to update passenger: %w", err)
		}
		if res.RowsAffected() == 0 {
			return &domain.TransitionError{Entity: "passenger", Op: "update to " + string(p.Status), From: "stale " + string(from)}
		}

		if b == nil || b.BookingStatus == bookingFrom {
			return nil
		}
		// Another passenger of the same booking may already have advanced it.
		res, err = tx.Exec(ctx, `UPDATE booking_transactions SET booking_status = $2, updated_at = now() WHERE id = $1 AND booking_status IN ($2, $3)`,
			b.ID, b.BookingStatus, bookingFrom)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		if res.RowsAffected() == 0 {
			return &domain.TransitionError{Entity: "booking", Op: "update to " + string(b.BookingStatus), From: "stale " + string(bookingFrom)}
		}
		return nil
	})
}

const cancelBookingSQL = `UPDATE booking_transactions SET booking_status = 'cancelled',
	payment_status = CASE WHEN payment_status IN ('pending', 'failed') THEN 'cancelled' ELSE payment_status END,
	cancellation_reason = $2, cancelled_by = $3, cancelled_at = $4, updated_at = now()
	WHERE id = $1 AND deleted_at IS NULL AND booking_status = $5 AND booking_status NOT IN ('cancelled', 'completed', 'boarded')
	AND (NOT $6::boolean OR payment_status IN ('pending', 'failed'))
	RETURNING payment_status, updated_at`

func (r *PGBookingRepository) Cancel(ctx context.Context, b *domain.BookingTransaction, guard CancelGuard) error {
	var payment domain.PaymentStatus
	var updatedAt time.Time
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, cancelBookingSQL, b.ID, b.CancellationReason, b.CancelledBy, b.CancelledAt, guard.From, guard.UnpaidOnly).
			Scan(&payment, &updatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("booking %s is no longer %s: %w", b.TransactionCode, guard.From, domain.ErrNotCancellable)
			}
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		if _, err := tx.Exec(ctx, releaseBookingSeatsSQL, b.ID); err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE passengers SET flight_seat_id = NULL, status = CASE WHEN status = 'boarded' THEN status ELSE 'cancelled' END WHERE booking_transaction_id = $1`, b.ID); err != nil {
			return fmt.Errorf("failed to cancel passengers: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.PaymentStatus = payment
	b.UpdatedAt = updatedAt
	return nil
}

func (r *PGBookingRepository) SoftDelete(ctx context.Context, bookingID int64) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, releaseBookingSeatsSQL, bookingID); err != nil {
			return fmt.Errorf("failed to release seats: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE passengers SET flight_seat_id = NULL, deleted_at = now() WHERE booking_transaction_id = $1 AND deleted_at IS NULL`, bookingID); err != nil {
			return fmt.Errorf("failed to delete passengers: %w", err)
		}
		res, err := tx.Exec(ctx, `UPDATE booking_transactions SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, bookingID)
		if err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *PGBookingRepository) ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.BookingTransaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM booking_transactions WHERE booking_status = 'pending' AND payment_status IN ('pending', 'failed') AND created_at <= $1 AND deleted_at IS NULL ORDER BY created_at`, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending bookings: %w", err)
	}
	defer rows.Close()

	var stale []domain.BookingTransaction
	for rows.Next() {
		var b domain.BookingTransaction
		if err := scanBooking(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		stale = append(stale, b)
	}
	return stale, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
