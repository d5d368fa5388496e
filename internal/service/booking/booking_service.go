package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingTransaction, error)
	GetBooking(ctx context.Context, code string) (*domain.BookingTransaction, error)
	CancelBooking(ctx context.Context, code, reason string, actorID int64) (*domain.BookingTransaction, error)
	RecordPayment(ctx context.Context, code string, paid bool) (*domain.BookingTransaction, error)
	CompleteBooking(ctx context.Context, code string) (*domain.BookingTransaction, error)
	RefundBooking(ctx context.Context, code string) (*domain.BookingTransaction, error)
	DeleteBooking(ctx context.Context, code string) error
	ExpirePendingBookings(ctx context.Context) ([]domain.BookingTransaction, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	promos             promo.PromoUseCase
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	serviceFee         int64
	confirmationTTL    time.Duration
	cancelAttempts     int
	cancelBackoff      time.Duration
	clock              domain.Clock
	log                *slog.Logger
}

type PassengerInput struct {
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Email          string               `json:"email"`
	Phone          string               `json:"phone"`
	DateOfBirth    *time.Time           `json:"date_of_birth"`
	PassengerType  domain.PassengerType `json:"passenger_type"`
	DocumentType   string               `json:"document_type"`
	DocumentNumber string               `json:"document_number"`
	Nationality    string               `json:"nationality"`
	SeatID         *int64               `json:"seat_id"`
}

type CreateBookingInput struct {
	FlightClassID int64            `json:"flight_class_id"`
	ContactEmail  string           `json:"contact_email"`
	PromoCode     string           `json:"promo_code"`
	Passengers    []PassengerInput `json:"passengers"`
}

type BookingServiceOption func(*BookingService)

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithServiceFee(cents int64) BookingServiceOption {
	return func(s *BookingService) { s.serviceFee = cents }
}

func WithConfirmationTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) { s.confirmationTTL = ttl }
}

// WithCancelRetry sets how many times a cancellation is attempted and the base backoff
// between attempts. The wait grows linearly with the attempt number.
func WithCancelRetry(attempts int, backoff time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.cancelAttempts = attempts
		s.cancelBackoff = backoff
	}
}

func WithClock(c domain.Clock) BookingServiceOption {
	return func(s *BookingService) { s.clock = c }
}

func WithLogger(l *slog.Logger) BookingServiceOption {
	return func(s *BookingService) { s.log = l }
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	promos promo.PromoUseCase,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:        bookings,
		flights:         flights,
		promos:          promos,
		confirmationTTL: 30 * time.Minute,
		cancelAttempts:  3,
		cancelBackoff:   100 * time.Millisecond,
		clock:           domain.SystemClock(),
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.cancelAttempts < 1 {
		service.cancelAttempts = 1
	}
	return service
}

func validateInput(input CreateBookingInput) error {
	if input.FlightClassID <= 0 {
		return fmt.Errorf("flight class is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.ContactEmail) == "" {
		return fmt.Errorf("contact email is required: %w", domain.ErrInvalidInput)
	}
	if len(input.Passengers) == 0 {
		return fmt.Errorf("at least one passenger is required: %w", domain.ErrInvalidInput)
	}
	seats := make(map[int64]bool)
	for i, p := range input.Passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return fmt.Errorf("passenger %d: name is required: %w", i+1, domain.ErrInvalidInput)
		}
		if !p.PassengerType.Valid() {
			return fmt.Errorf("passenger %d: unknown type %q: %w", i+1, p.PassengerType, domain.ErrInvalidInput)
		}
		if p.SeatID != nil {
			if seats[*p.SeatID] {
				return fmt.Errorf("seat %d requested twice: %w", *p.SeatID, domain.ErrInvalidInput)
			}
			seats[*p.SeatID] = true
		}
	}
	return nil
}

// CreateBooking prices the passengers, applies at most one promo code and stores the
// booking with every requested seat claimed. A promo code that does not apply never
// fails the booking: it proceeds at full price.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.BookingTransaction, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	class, err := s.flights.GetClass(ctx, input.FlightClassID)
	if err != nil {
		return nil, err
	}
	flight, err := s.flights.GetByID(ctx, class.FlightID)
	if err != nil {
		return nil, err
	}
	switch flight.Status {
	case domain.FlightStatusCancelled, domain.FlightStatusDeparted, domain.FlightStatusArrived:
		return nil, fmt.Errorf("flight %s is %s: %w", flight.FlightNumber, flight.Status, domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	b := s.build(input, flight, class)
	code := s.applyPromo(ctx, b, input.PromoCode, now)

	err = s.bookings.Create(ctx, b, b.PromoCodeID != nil)
	if errors.Is(err, domain.ErrPromoNotApplicable) && b.PromoCodeID != nil {
		// The code ran out between validation and redemption.
		s.log.Info("promo code exhausted at redemption, booking at full price", "code", code)
		b = s.build(input, flight, class)
		err = s.bookings.Create(ctx, b, false)
	}
	if err != nil {
		return nil, err
	}

	if b.PromoCodeID != nil && s.promos != nil {
		s.promos.Invalidate(ctx, code)
	}
	s.log.Info("booking created",
		"booking", b.TransactionCode, "flight", flight.FlightNumber, "passengers", len(b.Passengers),
		"total", b.TotalAmount, "discount", b.DiscountAmount)
	s.publish(ctx, kafka.EventBookingCreated, b)
	return b, nil
}

func (s *BookingService) build(input CreateBookingInput, flight *domain.Flight, class *domain.FlightClass) *domain.BookingTransaction {
	fare := class.SeatPrice(flight.BasePriceCents)
	b := &domain.BookingTransaction{
		TransactionCode: newTransactionCode(),
		FlightID:        flight.ID,
		FlightClassID:   class.ID,
		ContactEmail:    strings.TrimSpace(input.ContactEmail),
		PaymentStatus:   domain.PaymentPending,
		BookingStatus:   domain.BookingPending,
		Passengers:      make([]domain.PassengerRecord, 0, len(input.Passengers)),
	}

	var total int64
	for _, in := range input.Passengers {
		p := domain.PassengerRecord{
			FirstName:      strings.TrimSpace(in.FirstName),
			LastName:       strings.TrimSpace(in.LastName),
			Email:          in.Email,
			Phone:          in.Phone,
			DateOfBirth:    in.DateOfBirth,
			PassengerType:  in.PassengerType,
			DocumentType:   in.DocumentType,
			DocumentNumber: in.DocumentNumber,
			Nationality:    in.Nationality,
			Status:         domain.PassengerBooked,
		}
		if in.SeatID != nil {
			seatID := *in.SeatID
			p.FlightSeatID = &seatID
		}
		p.PriceWith(fare, s.serviceFee)
		total += p.TotalPrice
		b.Passengers = append(b.Passengers, p)
	}
	b.SetAmounts(total, 0)
	return b
}

// applyPromo freezes the discount on b when the code applies and returns the
// normalized code.
func (s *BookingService) applyPromo(ctx context.Context, b *domain.BookingTransaction, code string, now time.Time) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || s.promos == nil {
		return code
	}

	p, err := s.promos.Lookup(ctx, code)
	if err != nil {
		s.log.Info("promo code ignored", "code", code, "error", err)
		return code
	}
	discount, err := promo.Evaluate(p, b.TotalAmount, len(b.Passengers), now)
	if err != nil || discount == 0 {
		s.log.Info("promo code not applicable", "code", code, "error", err)
		return code
	}

	id := p.ID
	b.PromoCodeID = &id
	b.SetAmounts(b.TotalAmount, discount)
	return code
}

func newTransactionCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FB" + strings.ToUpper(raw[:10])
}

func (s *BookingService) GetBooking(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	if code == "" {
		return nil, fmt.Errorf("transaction code is required: %w", domain.ErrInvalidInput)
	}
	return s.bookings.GetByCode(ctx, code)
}

// CancelBooking cancels the booking and releases all its seats in one repository
// transaction. The write is conditional on the status that was read; when the booking
// moved on in between it is read again and re-checked. Transient storage failures are
// retried with backoff; success is only reported once the cancellation is committed.
func (s *BookingService) CancelBooking(ctx context.Context, code, reason string, actorID int64) (*domain.BookingTransaction, error) {
	for attempt := 1; ; attempt++ {
		b, err := s.bookings.GetByCode(ctx, code)
		if err == nil {
			from := b.BookingStatus
			if cerr := b.Cancel(reason, actorID, s.clock.Now()); cerr != nil {
				return nil, fmt.Errorf("booking %s is %s: %w", code, from, cerr)
			}
			err = s.bookings.Cancel(ctx, b, repository.CancelGuard{From: from})
			if errors.Is(err, domain.ErrNotCancellable) && attempt < s.cancelAttempts {
				s.log.Info("booking changed during cancellation, re-reading", "booking", code, "from", from)
				continue
			}
		}
		if err == nil {
			s.log.Info("booking cancelled", "booking", code, "actor", actorID, "reason", reason)
			s.publish(ctx, kafka.EventBookingCancelled, b)
			return b, nil
		}
		if !isTransient(err) || attempt >= s.cancelAttempts {
			return nil, err
		}

		wait := s.cancelBackoff * time.Duration(attempt)
		s.log.Warn("cancellation failed, retrying", "booking", code, "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// isTransient reports whether a storage error may succeed on retry. Domain outcomes
// are final; so are PostgreSQL errors other than serialization, deadlock and
// connection failures.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrSeatUnavailable),
		errors.Is(err, domain.ErrPromoNotApplicable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || strings.HasPrefix(pgErr.Code, "08")
	}
	return true
}

// RecordPayment applies the payment outcome. Paid confirms a pending booking; a failed
// payment keeps it pending so the customer can try again.
func (s *BookingService) RecordPayment(ctx context.Context, code string, paid bool) (*domain.BookingTransaction, error) {
	b, err := s.bookings.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	from := b.BookingStatus
	event := kafka.EventBookingConfirmed
	if paid {
		err = b.Confirm()
	} else {
		err = b.FailPayment()
		event = kafka.EventPaymentFailed
	}
	if err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(ctx, b, from); err != nil {
		return nil, err
	}
	s.log.Info("payment recorded", "booking", code, "paid", paid)
	s.publish(ctx, event, b)
	return b, nil
}

func (s *BookingService) CompleteBooking(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	return s.transition(ctx, code, kafka.EventBookingCompleted, (*domain.BookingTransaction).Complete)
}

func (s *BookingService) RefundBooking(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	return s.transition(ctx, code, kafka.EventBookingRefunded, (*domain.BookingTransaction).Refund)
}

func (s *BookingService) transition(ctx context.Context, code, event string, apply func(*domain.BookingTransaction) error) (*domain.BookingTransaction, error) {
	b, err := s.bookings.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	from := b.BookingStatus
	if err := apply(b); err != nil {
		return nil, err
	}
	if err := s.bookings.UpdateStatus(ctx, b, from); err != nil {
		return nil, err
	}
	s.publish(ctx, event, b)
	return b, nil
}

// DeleteBooking removes the booking from view. Its rows are kept for audit and any
// seat still held is released.
func (s *BookingService) DeleteBooking(ctx context.Context, code string) error {
	b, err := s.bookings.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if err := s.bookings.SoftDelete(ctx, b.ID); err != nil {
		return err
	}
	s.log.Info("booking deleted", "booking", code)
	s.publish(ctx, kafka.EventBookingDeleted, b)
	return nil
}

// ExpirePendingBookings cancels unpaid bookings older than the confirmation window on
// behalf of the system. The cancellation only applies while a booking is still pending
// and unpaid, so one paid or confirmed after the listing is skipped.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.BookingTransaction, error) {
	now := s.clock.Now()
	stale, err := s.bookings.ListStalePending(ctx, now.Add(-s.confirmationTTL))
	if err != nil {
		return nil, err
	}

	var errs []error
	expired := make([]domain.BookingTransaction, 0, len(stale))
	for i := range stale {
		b := &stale[i]
		if err := b.Cancel("payment window expired", domain.SystemActor, now); err != nil {
			continue
		}
		guard := repository.CancelGuard{From: domain.BookingPending, UnpaidOnly: true}
		if err := s.bookings.Cancel(ctx, b, guard); err != nil {
			if errors.Is(err, domain.ErrNotCancellable) {
				s.log.Info("booking changed before expiry, skipped", "booking", b.TransactionCode)
				continue
			}
			errs = append(errs, fmt.Errorf("expire %s: %w", b.TransactionCode, err))
			continue
		}
		s.publish(ctx, kafka.EventBookingCancelled, b)
		expired = append(expired, *b)
	}
	if len(expired) > 0 {
		s.log.Info("expired pending bookings", "count", len(expired))
	}
	return expired, errors.Join(errs...)
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.BookingTransaction) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, b, s.clock.Now())
	if err := s.producer.Publish(ctx, s.bookingTopic, b.TransactionCode, event); err != nil {
		s.log.Warn("failed to publish booking event", "type", eventType, "booking", b.TransactionCode, "error", err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, b.TransactionCode, event); err != nil {
			s.log.Warn("failed to publish notification", "type", eventType, "booking", b.TransactionCode, "error", err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
