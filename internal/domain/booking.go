package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingBoarded   BookingStatus = "boarded"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentCompleted PaymentStatus = "completed"
)

// DefaultRecentDays is the window used by IsRecent when none is given.
const DefaultRecentDays = 30

// SystemActor is recorded as cancelled_by for cancellations made by the service itself.
const SystemActor int64 = 0

type BookingTransaction struct {
	ID                 int64             `json:"id"`
	TransactionCode    string            `json:"transaction_code"`
	FlightID           int64             `json:"flight_id"`
	FlightClassID      int64             `json:"flight_class_id"`
	PromoCodeID        *int64            `json:"promo_code_id,omitempty"`
	ContactEmail       string            `json:"contact_email"`
	TotalAmount        int64             `json:"total_amount"`
	DiscountAmount     int64             `json:"discount_amount"`
	FinalAmount        int64             `json:"final_amount"`
	PaymentStatus      PaymentStatus     `json:"payment_status"`
	BookingStatus      BookingStatus     `json:"booking_status"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancelledBy        *int64            `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	Passengers         []PassengerRecord `json:"passengers"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          *time.Time        `json:"-"`
}

// SetAmounts fixes the totals. The discount is never recomputed afterwards.
func (b *BookingTransaction) SetAmounts(total, discount int64) {
	if discount < 0 {
		discount = 0
	}
	if discount > total {
		discount = total
	}
	b.TotalAmount = total
	b.DiscountAmount = discount
	b.FinalAmount = total - discount
}

func (b *BookingTransaction) IsCancellable() bool {
	switch b.BookingStatus {
	case BookingCancelled, BookingCompleted, BookingBoarded:
		return false
	}
	return true
}

// Cancel moves the booking to cancelled and marks every passenger cancelled and seatless.
// Persisting the seat releases is the repository's job and happens atomically with this.
func (b *BookingTransaction) Cancel(reason string, actorID int64, now time.Time) error {
	if !b.IsCancellable() {
		return ErrNotCancellable
	}
	b.BookingStatus = BookingCancelled
	b.CancellationReason = reason
	b.CancelledBy = &actorID
	b.CancelledAt = &now
	if b.PaymentStatus == PaymentPending || b.PaymentStatus == PaymentFailed {
		b.PaymentStatus = PaymentCancelled
	}
	for i := range b.Passengers {
		p := &b.Passengers[i]
		if p.Status != PassengerBoarded {
			p.Status = PassengerCancelled
		}
		p.FlightSeatID = nil
	}
	return nil
}

// HeldSeatIDs lists the seats currently held by the booking's passengers.
func (b *BookingTransaction) HeldSeatIDs() []int64 {
	ids := make([]int64, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		if p.FlightSeatID != nil {
			ids = append(ids, *p.FlightSeatID)
		}
	}
	return ids
}

// Confirm records a successful payment. A failed payment may be retried.
func (b *BookingTransaction) Confirm() error {
	if b.BookingStatus != BookingPending ||
		(b.PaymentStatus != PaymentPending && b.PaymentStatus != PaymentFailed) {
		return &TransitionError{Entity: "booking", Op: "confirm", From: string(b.BookingStatus)}
	}
	b.BookingStatus = BookingConfirmed
	b.PaymentStatus = PaymentPaid
	return nil
}

func (b *BookingTransaction) FailPayment() error {
	if b.BookingStatus != BookingPending || b.PaymentStatus != PaymentPending {
		return &TransitionError{Entity: "booking", Op: "fail payment", From: string(b.PaymentStatus)}
	}
	b.PaymentStatus = PaymentFailed
	return nil
}

// MarkCheckedIn advances a confirmed booking once its first passenger checks in.
// Late passengers may still check in after boarding has started.
func (b *BookingTransaction) MarkCheckedIn() error {
	switch b.BookingStatus {
	case BookingCheckedIn, BookingBoarded:
		return nil
	case BookingConfirmed:
		b.BookingStatus = BookingCheckedIn
		return nil
	}
	return &TransitionError{Entity: "booking", Op: "check in", From: string(b.BookingStatus)}
}

func (b *BookingTransaction) MarkBoarded() error {
	switch b.BookingStatus {
	case BookingBoarded:
		return nil
	case BookingCheckedIn:
		b.BookingStatus = BookingBoarded
		return nil
	}
	return &TransitionError{Entity: "booking", Op: "board", From: string(b.BookingStatus)}
}

func (b *BookingTransaction) Complete() error {
	if b.BookingStatus != BookingBoarded {
		return &TransitionError{Entity: "booking", Op: "complete", From: string(b.BookingStatus)}
	}
	b.BookingStatus = BookingCompleted
	if b.PaymentStatus == PaymentPaid {
		b.PaymentStatus = PaymentCompleted
	}
	return nil
}

func (b *BookingTransaction) Refund() error {
	if b.BookingStatus != BookingCancelled || b.PaymentStatus != PaymentPaid {
		return &TransitionError{Entity: "booking", Op: "refund", From: string(b.PaymentStatus)}
	}
	b.PaymentStatus = PaymentRefunded
	return nil
}

func (b *BookingTransaction) IsActive() bool    { return b.BookingStatus != BookingCancelled }
func (b *BookingTransaction) IsCompleted() bool { return b.BookingStatus == BookingCompleted }
func (b *BookingTransaction) IsPending() bool   { return b.BookingStatus == BookingPending }
func (b *BookingTransaction) IsConfirmed() bool { return b.BookingStatus == BookingConfirmed }
func (b *BookingTransaction) IsCancelled() bool { return b.BookingStatus == BookingCancelled }

// IsRecent reports whether the booking was created within the last days days.
// days <= 0 falls back to DefaultRecentDays.
func (b *BookingTransaction) IsRecent(now time.Time, days int) bool {
	if days <= 0 {
		days = DefaultRecentDays
	}
	return !b.CreatedAt.Before(now.AddDate(0, 0, -days))
}

// Passenger returns the passenger with the given id, or nil.
func (b *BookingTransaction) Passenger(id int64) *PassengerRecord {
	for i := range b.Passengers {
		if b.Passengers[i].ID == id {
			return &b.Passengers[i]
		}
	}
	return nil
}
