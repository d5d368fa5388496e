package domain

import (
	"math"
	"time"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "scheduled"
	FlightStatusDelayed   FlightStatus = "delayed"
	FlightStatusDeparted  FlightStatus = "departed"
	FlightStatusArrived   FlightStatus = "arrived"
	FlightStatusCancelled FlightStatus = "cancelled"
)

type Flight struct {
	ID             int64         `json:"id"`
	FlightNumber   string        `json:"flight_number"`
	Origin         string        `json:"origin"`
	Destination    string        `json:"destination"`
	DepartureTime  time.Time     `json:"departure_time"`
	ArrivalTime    time.Time     `json:"arrival_time"`
	Status         FlightStatus  `json:"status"`
	BasePriceCents int64         `json:"base_price_cents"`
	Classes        []FlightClass `json:"classes,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// FlightClass is a fare tier of a flight. SeatCount is the advertised capacity;
// the seats themselves live in flight_seats.
type FlightClass struct {
	ID              int64   `json:"id"`
	FlightID        int64   `json:"flight_id"`
	Name            string  `json:"name"`
	PriceMultiplier float64 `json:"price_multiplier"`
	SeatCount       int     `json:"seat_count"`
}

// SeatPrice is the per-passenger fare for this class on a flight with the given base price.
func (c FlightClass) SeatPrice(basePriceCents int64) int64 {
	m := c.PriceMultiplier
	if m <= 0 {
		m = 1
	}
	return int64(math.Round(float64(basePriceCents) * m))
}

// FlightSeat is one physical seat within a class. IsAvailable is false exactly
// when PassengerID is set.
type FlightSeat struct {
	ID            int64  `json:"id"`
	FlightClassID int64  `json:"flight_class_id"`
	SeatNumber    string `json:"seat_number"`
	IsAvailable   bool   `json:"is_available"`
	PassengerID   *int64 `json:"passenger_id,omitempty"`
}
