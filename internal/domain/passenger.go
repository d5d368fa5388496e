package domain

import (
	"strings"
	"time"
)

type PassengerType string

const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

func (t PassengerType) Valid() bool {
	switch t {
	case PassengerAdult, PassengerChild, PassengerInfant:
		return true
	}
	return false
}

type PassengerStatus string

const (
	PassengerBooked    PassengerStatus = "booked"
	PassengerCheckedIn PassengerStatus = "checked_in"
	PassengerBoarded   PassengerStatus = "boarded"
	PassengerCancelled PassengerStatus = "cancelled"
)

type PassengerRecord struct {
	ID                   int64           `json:"id"`
	BookingTransactionID int64           `json:"booking_transaction_id"`
	FirstName            string          `json:"first_name"`
	LastName             string          `json:"last_name"`
	Email                string          `json:"email,omitempty"`
	Phone                string          `json:"phone,omitempty"`
	DateOfBirth          *time.Time      `json:"date_of_birth,omitempty"`
	PassengerType        PassengerType   `json:"passenger_type"`
	DocumentType         string          `json:"document_type,omitempty"`
	DocumentNumber       string          `json:"document_number,omitempty"`
	Nationality          string          `json:"nationality,omitempty"`
	Price                int64           `json:"price"`
	Taxes                int64           `json:"taxes"`
	Fees                 int64           `json:"fees"`
	TotalPrice           int64           `json:"total_price"`
	Status               PassengerStatus `json:"status"`
	CheckedIn            bool            `json:"checked_in"`
	CheckedInAt          *time.Time      `json:"checked_in_at,omitempty"`
	Boarded              bool            `json:"boarded"`
	BoardedAt            *time.Time      `json:"boarded_at,omitempty"`
	FlightSeatID         *int64          `json:"flight_seat_id,omitempty"`
	DeletedAt            *time.Time      `json:"-"`
}

func (p *PassengerRecord) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age in whole years as of now, nil when the date of birth is unknown.
func (p *PassengerRecord) Age(now time.Time) *int {
	if p.DateOfBirth == nil {
		return nil
	}
	dob := p.DateOfBirth.In(now.Location())
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

func (p *PassengerRecord) HasSeat() bool {
	return p.FlightSeatID != nil
}

// HoldsSeat reports whether the passenger currently holds seatID.
func (p *PassengerRecord) HoldsSeat(seatID int64) bool {
	return p.FlightSeatID != nil && *p.FlightSeatID == seatID
}

func (p *PassengerRecord) CheckIn(now time.Time) error {
	if p.Status != PassengerBooked {
		return &TransitionError{Entity: "passenger", Op: "check in", From: string(p.Status)}
	}
	p.Status = PassengerCheckedIn
	p.CheckedIn = true
	p.CheckedInAt = &now
	return nil
}

func (p *PassengerRecord) Board(now time.Time) error {
	if p.Status != PassengerCheckedIn {
		return &TransitionError{Entity: "passenger", Op: "board", From: string(p.Status)}
	}
	p.Status = PassengerBoarded
	p.Boarded = true
	p.BoardedAt = &now
	return nil
}

// Cancel marks the passenger cancelled. Boarded passengers cannot be cancelled.
func (p *PassengerRecord) Cancel() error {
	switch p.Status {
	case PassengerBooked, PassengerCheckedIn:
		p.Status = PassengerCancelled
		return nil
	case PassengerCancelled:
		return nil
	}
	return &TransitionError{Entity: "passenger", Op: "cancel", From: string(p.Status)}
}

// PriceWith fills the pricing breakdown. Taxes are always zero.
func (p *PassengerRecord) PriceWith(fare, fees int64) {
	p.Price = fare
	p.Taxes = 0
	p.Fees = fees
	p.TotalPrice = p.Price + p.Taxes + p.Fees
}
