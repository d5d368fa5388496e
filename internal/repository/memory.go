package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

// MemoryStore keeps every table in process memory behind a single lock, which gives
// each operation the same all-or-nothing behaviour as a database transaction.
// It backs local runs (database.driver: memory) and service tests.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	flights    map[int64]domain.Flight
	classes    map[int64]domain.FlightClass
	seats      map[int64]*domain.FlightSeat
	promos     map[int64]*domain.PromoCode
	bookings   map[int64]*domain.BookingTransaction
	passengers map[int64]*domain.PassengerRecord

	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:        func() time.Time { return time.Now().UTC() },
		flights:    make(map[int64]domain.Flight),
		classes:    make(map[int64]domain.FlightClass),
		seats:      make(map[int64]*domain.FlightSeat),
		promos:     make(map[int64]*domain.PromoCode),
		bookings:   make(map[int64]*domain.BookingTransaction),
		passengers: make(map[int64]*domain.PassengerRecord),
	}
}

func (m *MemoryStore) Flights() FlightRepository   { return memoryFlights{m} }
func (m *MemoryStore) Seats() SeatRepository       { return memorySeats{m} }
func (m *MemoryStore) Promos() PromoRepository     { return memoryPromos{m} }
func (m *MemoryStore) Bookings() BookingRepository { return memoryBookings{m} }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// AddFlight stores a flight and its classes, assigning ids where missing.
func (m *MemoryStore) AddFlight(f domain.Flight) domain.Flight {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == 0 {
		f.ID = m.id()
	}
	for i := range f.Classes {
		if f.Classes[i].ID == 0 {
			f.Classes[i].ID = m.id()
		}
		f.Classes[i].FlightID = f.ID
		m.classes[f.Classes[i].ID] = f.Classes[i]
	}
	classes := f.Classes
	f.Classes = nil
	m.flights[f.ID] = f
	f.Classes = classes
	return f
}

func (m *MemoryStore) AddPromo(p domain.PromoCode) domain.PromoCode {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		p.ID = m.id()
	}
	cp := p
	m.promos[p.ID] = &cp
	return p
}

// SeatHolders returns seat id -> passenger id for every held seat of a class.
func (m *MemoryStore) SeatHolders(classID int64) map[int64]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]int64)
	for _, s := range m.seats {
		if s.FlightClassID == classID && s.PassengerID != nil {
			out[s.ID] = *s.PassengerID
		}
	}
	return out
}

type memoryFlights struct{ m *MemoryStore }

func (r memoryFlights) List(_ context.Context) ([]domain.Flight, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	flights := make([]domain.Flight, 0, len(r.m.flights))
	for _, f := range r.m.flights {
		flights = append(flights, f)
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].DepartureTime.Before(flights[j].DepartureTime) })
	return flights, nil
}

func (r memoryFlights) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	f, ok := r.m.flights[id]
	if !ok {
		return nil, fmt.Errorf("flight: %w", domain.ErrNotFound)
	}
	for _, c := range r.m.classes {
		if c.FlightID == id {
			f.Classes = append(f.Classes, c)
		}
	}
	sort.Slice(f.Classes, func(i, j int) bool { return f.Classes[i].PriceMultiplier < f.Classes[j].PriceMultiplier })
	return &f, nil
}

func (r memoryFlights) GetClass(_ context.Context, classID int64) (*domain.FlightClass, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.classes[classID]
	if !ok {
		return nil, fmt.Errorf("flight class: %w", domain.ErrNotFound)
	}
	return &c, nil
}

type memorySeats struct{ m *MemoryStore }

func (r memorySeats) ListByClass(_ context.Context, classID int64) ([]domain.FlightSeat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	seats := make([]domain.FlightSeat, 0)
	for _, s := range r.m.seats {
		if s.FlightClassID == classID {
			seats = append(seats, *s)
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
	return seats, nil
}

func (r memorySeats) GetByID(_ context.Context, seatID int64) (*domain.FlightSeat, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.seats[seatID]
	if !ok {
		return nil, fmt.Errorf("seat: %w", domain.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r memorySeats) Claim(_ context.Context, seatID, passengerID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.claimLocked(seatID, passengerID)
}

func (r memorySeats) Release(_ context.Context, seatID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.seats[seatID]; !ok {
		return fmt.Errorf("seat %d: %w", seatID, domain.ErrNotFound)
	}
	r.m.releaseLocked(seatID)
	return nil
}

func (r memorySeats) Provision(_ context.Context, classID int64, seatNumbers []string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.classes[classID]; !ok {
		return 0, fmt.Errorf("flight class: %w", domain.ErrNotFound)
	}
	existing := make(map[string]bool)
	for _, s := range r.m.seats {
		if s.FlightClassID == classID {
			existing[s.SeatNumber] = true
		}
	}
	created := 0
	for _, n := range seatNumbers {
		if existing[n] {
			continue
		}
		existing[n] = true
		id := r.m.id()
		r.m.seats[id] = &domain.FlightSeat{ID: id, FlightClassID: classID, SeatNumber: n, IsAvailable: true}
		created++
	}
	return created, nil
}

func (m *MemoryStore) claimLocked(seatID, passengerID int64) error {
	s, ok := m.seats[seatID]
	p, pok := m.passengers[passengerID]
	if !ok || !pok || !s.IsAvailable {
		return fmt.Errorf("seat %d: %w", seatID, domain.ErrSeatUnavailable)
	}
	if p.DeletedAt != nil || (p.Status != domain.PassengerBooked && p.Status != domain.PassengerCheckedIn) {
		return fmt.Errorf("seat %d: %w", seatID, domain.ErrSeatUnavailable)
	}
	b := m.bookings[p.BookingTransactionID]
	if b == nil || b.DeletedAt != nil || b.FlightClassID != s.FlightClassID || !b.IsCancellable() {
		return fmt.Errorf("seat %d: %w", seatID, domain.ErrSeatUnavailable)
	}
	if p.FlightSeatID != nil && *p.FlightSeatID != seatID {
		return fmt.Errorf("passenger %d already holds another seat: %w", passengerID, domain.ErrInvalidInput)
	}
	pid, sid := passengerID, seatID
	s.IsAvailable = false
	s.PassengerID = &pid
	p.FlightSeatID = &sid
	return nil
}

func (m *MemoryStore) releaseLocked(seatID int64) {
	for _, p := range m.passengers {
		if p.HoldsSeat(seatID) {
			p.FlightSeatID = nil
		}
	}
	if s, ok := m.seats[seatID]; ok {
		s.IsAvailable = true
		s.PassengerID = nil
	}
}

type memoryPromos struct{ m *MemoryStore }

func (r memoryPromos) GetByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, p := range r.m.promos {
		if strings.EqualFold(p.Code, code) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("promo code: %w", domain.ErrNotFound)
}

type memoryBookings struct{ m *MemoryStore }

func (r memoryBookings) Create(_ context.Context, b *domain.BookingTransaction, redeemPromo bool) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	var promo *domain.PromoCode
	if redeemPromo && b.PromoCodeID != nil {
		promo = m.promos[*b.PromoCodeID]
		if promo == nil || !promo.IsActive || promo.Exhausted() {
			return fmt.Errorf("promo %d exhausted: %w", *b.PromoCodeID, domain.ErrPromoNotApplicable)
		}
	}

	// Validate every claim before touching state so a failure leaves nothing behind.
	wanted := make(map[int64]bool)
	for _, p := range b.Passengers {
		if p.FlightSeatID == nil {
			continue
		}
		s, ok := m.seats[*p.FlightSeatID]
		if !ok || !s.IsAvailable || s.FlightClassID != b.FlightClassID || wanted[s.ID] {
			return fmt.Errorf("seat %d: %w", *p.FlightSeatID, domain.ErrSeatUnavailable)
		}
		wanted[s.ID] = true
	}

	if promo != nil {
		if err := promo.IncrementUses(); err != nil {
			return err
		}
	}

	now := m.now()
	b.ID = m.id()
	b.CreatedAt, b.UpdatedAt = now, now
	stored := *b
	stored.Passengers = nil
	m.bookings[b.ID] = &stored

	for i := range b.Passengers {
		p := &b.Passengers[i]
		p.ID = m.id()
		p.BookingTransactionID = b.ID
		seatID := p.FlightSeatID
		p.FlightSeatID = nil
		cp := *p
		m.passengers[p.ID] = &cp
		if seatID != nil {
			if err := m.claimLocked(*seatID, p.ID); err != nil {
				return err
			}
			p.FlightSeatID = seatID
		}
	}
	return nil
}

func (m *MemoryStore) bookingLocked(b *domain.BookingTransaction) *domain.BookingTransaction {
	cp := *b
	cp.Passengers = make([]domain.PassengerRecord, 0)
	for _, p := range m.passengers {
		if p.BookingTransactionID == b.ID && p.DeletedAt == nil {
			cp.Passengers = append(cp.Passengers, *p)
		}
	}
	sort.Slice(cp.Passengers, func(i, j int) bool { return cp.Passengers[i].ID < cp.Passengers[j].ID })
	return &cp
}

func (r memoryBookings) GetByCode(_ context.Context, code string) (*domain.BookingTransaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, b := range r.m.bookings {
		if b.TransactionCode == code && b.DeletedAt == nil {
			return r.m.bookingLocked(b), nil
		}
	}
	return nil, fmt.Errorf("booking: %w", domain.ErrNotFound)
}

func (r memoryBookings) GetByPassengerID(_ context.Context, passengerID int64) (*domain.BookingTransaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	p, ok := r.m.passengers[passengerID]
	if !ok || p.DeletedAt != nil {
		return nil, fmt.Errorf("passenger: %w", domain.ErrNotFound)
	}
	b, ok := r.m.bookings[p.BookingTransactionID]
	if !ok || b.DeletedAt != nil {
		return nil, fmt.Errorf("passenger: %w", domain.ErrNotFound)
	}
	return r.m.bookingLocked(b), nil
}

func (r memoryBookings) UpdateStatus(_ context.Context, b *domain.BookingTransaction, from domain.BookingStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.bookings[b.ID]
	if !ok || stored.DeletedAt != nil || stored.BookingStatus != from {
		return &domain.TransitionError{Entity: "booking", Op: "update to " + string(b.BookingStatus), From: "stale " + string(from)}
	}
	stored.BookingStatus = b.BookingStatus
	stored.PaymentStatus = b.PaymentStatus
	stored.UpdatedAt = r.m.now()
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memoryBookings) UpdatePassengerStatus(_ context.Context, p *domain.PassengerRecord, from domain.PassengerStatus, b *domain.BookingTransaction, bookingFrom domain.BookingStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.passengers[p.ID]
	if !ok || stored.DeletedAt != nil || stored.Status != from {
		return &domain.TransitionError{Entity: "passenger", Op: "update to " + string(p.Status), From: "stale " + string(from)}
	}
	var sb *domain.BookingTransaction
	if b != nil && b.BookingStatus != bookingFrom {
		sb = r.m.bookings[b.ID]
		if sb == nil || (sb.BookingStatus != bookingFrom && sb.BookingStatus != b.BookingStatus) {
			return &domain.TransitionError{Entity: "booking", Op: "update to " + string(b.BookingStatus), From: "stale " + string(bookingFrom)}
		}
	}

	stored.Status = p.Status
	stored.CheckedIn, stored.CheckedInAt = p.CheckedIn, p.CheckedInAt
	stored.Boarded, stored.BoardedAt = p.Boarded, p.BoardedAt
	if sb != nil {
		sb.BookingStatus = b.BookingStatus
		sb.UpdatedAt = r.m.now()
	}
	return nil
}

func (r memoryBookings) Cancel(_ context.Context, b *domain.BookingTransaction, guard CancelGuard) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.bookings[b.ID]
	if !ok || stored.DeletedAt != nil || !stored.IsCancellable() || stored.BookingStatus != guard.From ||
		(guard.UnpaidOnly && !unpaid(stored.PaymentStatus)) {
		return fmt.Errorf("booking %s is no longer %s: %w", b.TransactionCode, guard.From, domain.ErrNotCancellable)
	}
	stored.BookingStatus = domain.BookingCancelled
	if unpaid(stored.PaymentStatus) {
		stored.PaymentStatus = domain.PaymentCancelled
	}
	b.PaymentStatus = stored.PaymentStatus
	stored.CancellationReason = b.CancellationReason
	stored.CancelledBy = b.CancelledBy
	stored.CancelledAt = b.CancelledAt
	stored.UpdatedAt = r.m.now()
	b.UpdatedAt = stored.UpdatedAt

	for _, p := range r.m.passengers {
		if p.BookingTransactionID != b.ID {
			continue
		}
		if p.FlightSeatID != nil {
			r.m.releaseLocked(*p.FlightSeatID)
		}
		if p.Status != domain.PassengerBoarded {
			p.Status = domain.PassengerCancelled
		}
	}
	return nil
}

func (r memoryBookings) SoftDelete(_ context.Context, bookingID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.bookings[bookingID]
	if !ok || stored.DeletedAt != nil {
		return fmt.Errorf("booking %d: %w", bookingID, domain.ErrNotFound)
	}
	now := r.m.now()
	for _, p := range r.m.passengers {
		if p.BookingTransactionID != bookingID || p.DeletedAt != nil {
			continue
		}
		if p.FlightSeatID != nil {
			r.m.releaseLocked(*p.FlightSeatID)
		}
		p.DeletedAt = &now
	}
	stored.DeletedAt = &now
	return nil
}

func (r memoryBookings) ListStalePending(_ context.Context, createdBefore time.Time) ([]domain.BookingTransaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var stale []domain.BookingTransaction
	for _, b := range r.m.bookings {
		if b.DeletedAt == nil && b.BookingStatus == domain.BookingPending && unpaid(b.PaymentStatus) &&
			!b.CreatedAt.After(createdBefore) {
			stale = append(stale, *b)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	return stale, nil
}

func unpaid(s domain.PaymentStatus) bool {
	return s == domain.PaymentPending || s == domain.PaymentFailed
}

// SetNow overrides the store's timestamp source.
func (m *MemoryStore) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

var (
	_ FlightRepository  = memoryFlights{}
	_ SeatRepository    = memorySeats{}
	_ PromoRepository   = memoryPromos{}
	_ BookingRepository = memoryBookings{}
)
