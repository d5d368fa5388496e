package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mocks

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.BookingTransaction, redeemPromo bool) error {
	return m.Called(ctx, b, redeemPromo).Error(0)
}

func (m *MockBookingRepository) GetByCode(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingTransaction), args.Error(1)
}

func (m *MockBookingRepository) GetByPassengerID(ctx context.Context, passengerID int64) (*domain.BookingTransaction, error) {
	args := m.Called(ctx, passengerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingTransaction), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, b *domain.BookingTransaction, from domain.BookingStatus) error {
	return m.Called(ctx, b, from).Error(0)
}

func (m *MockBookingRepository) UpdatePassengerStatus(ctx context.Context, p *domain.PassengerRecord, from domain.PassengerStatus, b *domain.BookingTransaction, bookingFrom domain.BookingStatus) error {
	return m.Called(ctx, p, from, b, bookingFrom).Error(0)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, b *domain.BookingTransaction, guard repository.CancelGuard) error {
	return m.Called(ctx, b, guard).Error(0)
}

func (m *MockBookingRepository) SoftDelete(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *MockBookingRepository) ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.BookingTransaction, error) {
	args := m.Called(ctx, createdBefore)
	return args.Get(0).([]domain.BookingTransaction), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetClass(ctx context.Context, classID int64) (*domain.FlightClass, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightClass), args.Error(1)
}

type MockPromoUseCase struct {
	mock.Mock
}

func (m *MockPromoUseCase) Lookup(ctx context.Context, code string) (*domain.PromoCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromoCode), args.Error(1)
}

func (m *MockPromoUseCase) Quote(ctx context.Context, code string, amount int64, passengerCount int) (*promo.Quote, error) {
	args := m.Called(ctx, code, amount, passengerCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promo.Quote), args.Error(1)
}

func (m *MockPromoUseCase) Invalidate(ctx context.Context, code string) {
	m.Called(ctx, code)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

// Fixtures

var now = time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC) // Wednesday

type env struct {
	store   *repository.MemoryStore
	svc     *BookingService
	classID int64
	seats   map[string]int64
}

func newEnv(t *testing.T, opts ...BookingServiceOption) *env {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	store.SetNow(func() time.Time { return now })

	flight := store.AddFlight(domain.Flight{
		FlightNumber:   "FB300",
		Origin:         "LIS",
		Destination:    "OPO",
		Status:         domain.FlightStatusScheduled,
		BasePriceCents: 10000,
		Classes:        []domain.FlightClass{{Name: "premium", PriceMultiplier: 1.5, SeatCount: 4}},
	})
	classID := flight.Classes[0].ID
	_, err := store.Seats().Provision(ctx, classID, []string{"2A", "2B", "2C", "2D"})
	require.NoError(t, err)

	seats := map[string]int64{}
	list, err := store.Seats().ListByClass(ctx, classID)
	require.NoError(t, err)
	for _, s := range list {
		seats[s.SeatNumber] = s.ID
	}

	promos := promo.NewService(store.Promos(), promo.WithClock(domain.FixedClock(now)))
	opts = append([]BookingServiceOption{WithClock(domain.FixedClock(now)), WithServiceFee(500)}, opts...)
	return &env{
		store:   store,
		svc:     NewBookingService(store.Bookings(), store.Flights(), promos, opts...),
		classID: classID,
		seats:   seats,
	}
}

func seat(id int64) *int64 { return &id }

func (e *env) input(promoCode string, seatNumbers ...string) CreateBookingInput {
	in := CreateBookingInput{FlightClassID: e.classID, ContactEmail: "grace@example.com", PromoCode: promoCode}
	for i, n := range seatNumbers {
		p := PassengerInput{FirstName: "Grace", LastName: "Hopper", PassengerType: domain.PassengerAdult}
		if i > 0 {
			p.FirstName, p.PassengerType = "Kid", domain.PassengerChild
		}
		if n != "" {
			p.SeatID = seat(e.seats[n])
		}
		in.Passengers = append(in.Passengers, p)
	}
	return in
}

// Create

func TestCreateBooking_PricesPassengers(t *testing.T) {
	e := newEnv(t)

	b, err := e.svc.CreateBooking(context.Background(), e.input("", "2A", "2B"))

	require.NoError(t, err)
	require.Len(t, b.Passengers, 2)
	for _, p := range b.Passengers {
		assert.Equal(t, int64(15000), p.Price)
		assert.Equal(t, int64(0), p.Taxes)
		assert.Equal(t, int64(500), p.Fees)
		assert.Equal(t, int64(15500), p.TotalPrice)
		assert.NotZero(t, p.ID)
	}
	assert.Equal(t, int64(31000), b.TotalAmount)
	assert.Equal(t, int64(0), b.DiscountAmount)
	assert.Equal(t, int64(31000), b.FinalAmount)
	assert.Equal(t, domain.BookingPending, b.BookingStatus)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
	assert.Regexp(t, `^FB[0-9A-F]{10}$`, b.TransactionCode)
	assert.Len(t, e.store.SeatHolders(e.classID), 2)
}

func TestCreateBooking_AppliesAndRedeemsPromo(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.store.AddPromo(domain.PromoCode{
		Code: "SPRING10", DiscountType: domain.DiscountPercentage, DiscountValue: 10,
		MaxUses: 1, IsActive: true, ValidDays: []string{"wednesday"},
	})

	b, err := e.svc.CreateBooking(ctx, e.input("spring10", "2A", "2B"))

	require.NoError(t, err)
	require.NotNil(t, b.PromoCodeID)
	assert.Equal(t, int64(3100), b.DiscountAmount)
	assert.Equal(t, b.TotalAmount-b.DiscountAmount, b.FinalAmount)

	p, err := e.store.Promos().GetByCode(ctx, "SPRING10")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentUses)

	// Used up: the next booking goes through at full price.
	b2, err := e.svc.CreateBooking(ctx, e.input("SPRING10", "2C"))
	require.NoError(t, err)
	assert.Nil(t, b2.PromoCodeID)
	assert.Equal(t, int64(0), b2.DiscountAmount)
	assert.Equal(t, b2.TotalAmount, b2.FinalAmount)
}

func TestCreateBooking_UnknownPromoIgnored(t *testing.T) {
	e := newEnv(t)

	b, err := e.svc.CreateBooking(context.Background(), e.input("NOPE", ""))

	require.NoError(t, err)
	assert.Nil(t, b.PromoCodeID)
	assert.Equal(t, int64(15500), b.FinalAmount)
}

func TestCreateBooking_PromoExhaustedAtRedemption(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBookingRepository)
	flights := new(MockFlightRepository)
	promos := new(MockPromoUseCase)
	svc := NewBookingService(repo, flights, promos, WithClock(domain.FixedClock(now)))

	flights.On("GetClass", ctx, int64(7)).Return(&domain.FlightClass{ID: 7, FlightID: 1, PriceMultiplier: 1}, nil)
	flights.On("GetByID", ctx, int64(1)).Return(&domain.Flight{ID: 1, Status: domain.FlightStatusScheduled, BasePriceCents: 20000}, nil)
	promos.On("Lookup", ctx, "FLAT50").Return(&domain.PromoCode{
		ID: 4, Code: "FLAT50", DiscountType: domain.DiscountFixed, DiscountValue: 5000, MaxUses: 10, CurrentUses: 9, IsActive: true,
	}, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*domain.BookingTransaction"), true).
		Return(domain.ErrPromoNotApplicable).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*domain.BookingTransaction"), false).Return(nil).Once()

	b, err := svc.CreateBooking(ctx, CreateBookingInput{
		FlightClassID: 7,
		ContactEmail:  "a@example.com",
		PromoCode:     "flat50",
		Passengers:    []PassengerInput{{FirstName: "A", LastName: "B", PassengerType: domain.PassengerAdult}},
	})

	require.NoError(t, err)
	assert.Nil(t, b.PromoCodeID)
	assert.Equal(t, int64(20000), b.FinalAmount)
	repo.AssertExpectations(t)
	promos.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestCreateBooking_SeatTakenLeavesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	_, err = e.svc.CreateBooking(ctx, e.input("", "2B", "2A"))

	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
	holders := e.store.SeatHolders(e.classID)
	assert.Len(t, holders, 1)
	assert.Contains(t, holders, e.seats["2A"])
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := map[string]func(in *CreateBookingInput){
		"no passengers": func(in *CreateBookingInput) { in.Passengers = nil },
		"no email":      func(in *CreateBookingInput) { in.ContactEmail = " " },
		"no class":      func(in *CreateBookingInput) { in.FlightClassID = 0 },
		"bad type":      func(in *CreateBookingInput) { in.Passengers[0].PassengerType = "pet" },
		"no name":       func(in *CreateBookingInput) { in.Passengers[0].LastName = "" },
		"same seat twice": func(in *CreateBookingInput) {
			in.Passengers[1].SeatID = in.Passengers[0].SeatID
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := e.input("", "2A", "2B")
			mutate(&in)
			_, err := e.svc.CreateBooking(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCreateBooking_CancelledFlight(t *testing.T) {
	ctx := context.Background()
	flights := new(MockFlightRepository)
	svc := NewBookingService(new(MockBookingRepository), flights, nil)

	flights.On("GetClass", ctx, int64(7)).Return(&domain.FlightClass{ID: 7, FlightID: 1}, nil)
	flights.On("GetByID", ctx, int64(1)).Return(&domain.Flight{ID: 1, FlightNumber: "FB1", Status: domain.FlightStatusCancelled}, nil)

	_, err := svc.CreateBooking(ctx, CreateBookingInput{
		FlightClassID: 7,
		ContactEmail:  "a@example.com",
		Passengers:    []PassengerInput{{FirstName: "A", LastName: "B", PassengerType: domain.PassengerAdult}},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateBooking_PublishesToBothTopics(t *testing.T) {
	ctx := context.Background()
	producer := new(MockProducer)
	e := newEnv(t, WithProducer(producer, "booking-events"), WithNotificationsTopic("notifications"))

	created := mock.MatchedBy(func(ev kafka.BookingEvent) bool { return ev.Type == kafka.EventBookingCreated })
	producer.On("Publish", ctx, "booking-events", mock.Anything, created).Return(nil).Once()
	producer.On("Publish", ctx, "notifications", mock.Anything, created).Return(nil).Once()

	_, err := e.svc.CreateBooking(ctx, e.input("", "2A"))

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

// Cancel

func TestCancelBooking_ReleasesEverySeat(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A", "2B", "2C"))
	require.NoError(t, err)
	require.Len(t, e.store.SeatHolders(e.classID), 3)

	cancelled, err := e.svc.CancelBooking(ctx, b.TransactionCode, "plans changed", 42)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.BookingStatus)
	assert.Empty(t, e.store.SeatHolders(e.classID))

	stored, err := e.svc.GetBooking(ctx, b.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, stored.BookingStatus)
	assert.Equal(t, domain.PaymentCancelled, stored.PaymentStatus)
	assert.Equal(t, "plans changed", stored.CancellationReason)
	require.NotNil(t, stored.CancelledBy)
	assert.Equal(t, int64(42), *stored.CancelledBy)
	assert.Equal(t, now, *stored.CancelledAt)
	for _, p := range stored.Passengers {
		assert.Equal(t, domain.PassengerCancelled, p.Status)
		assert.False(t, p.HasSeat())
	}

	_, err = e.svc.CancelBooking(ctx, b.TransactionCode, "again", 42)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestCancelBooking_BoardedIsNotCancellable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	stored, err := e.svc.GetBooking(ctx, b.TransactionCode)
	require.NoError(t, err)
	stored.BookingStatus = domain.BookingBoarded
	require.NoError(t, e.store.Bookings().UpdateStatus(ctx, stored, domain.BookingPending))

	_, err = e.svc.CancelBooking(ctx, b.TransactionCode, "too late", 1)

	assert.ErrorIs(t, err, domain.ErrNotCancellable)
	assert.Len(t, e.store.SeatHolders(e.classID), 1)
}

func pendingBooking() *domain.BookingTransaction {
	return &domain.BookingTransaction{
		ID: 1, TransactionCode: "FBRETRY", BookingStatus: domain.BookingPending, PaymentStatus: domain.PaymentPending,
	}
}

func TestCancelBooking_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBookingRepository)
	svc := NewBookingService(repo, new(MockFlightRepository), nil,
		WithClock(domain.FixedClock(now)), WithCancelRetry(3, time.Millisecond))

	repo.On("GetByCode", ctx, "FBRETRY").Return(pendingBooking(), nil).Once()
	repo.On("GetByCode", ctx, "FBRETRY").Return(pendingBooking(), nil).Once()
	repo.On("Cancel", ctx, mock.Anything, repository.CancelGuard{From: domain.BookingPending}).Return(errors.New("connection reset")).Once()
	repo.On("Cancel", ctx, mock.Anything, repository.CancelGuard{From: domain.BookingPending}).Return(nil).Once()

	b, err := svc.CancelBooking(ctx, "FBRETRY", "duplicate", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.BookingStatus)
	repo.AssertNumberOfCalls(t, "Cancel", 2)
}

func TestCancelBooking_GivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBookingRepository)
	svc := NewBookingService(repo, new(MockFlightRepository), nil, WithCancelRetry(2, time.Millisecond))

	repo.On("GetByCode", ctx, "FBRETRY").Return(pendingBooking(), nil).Once()
	repo.On("GetByCode", ctx, "FBRETRY").Return(pendingBooking(), nil).Once()
	repo.On("Cancel", ctx, mock.Anything, mock.Anything).Return(&pgconn.PgError{Code: "40001"})

	_, err := svc.CancelBooking(ctx, "FBRETRY", "duplicate", 5)

	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "Cancel", 2)
}

func TestCancelBooking_DomainErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBookingRepository)
	svc := NewBookingService(repo, new(MockFlightRepository), nil, WithCancelRetry(5, time.Millisecond))

	boarded := pendingBooking()
	boarded.BookingStatus = domain.BookingBoarded
	repo.On("GetByCode", ctx, "FBRETRY").Return(boarded, nil).Once()
	repo.On("GetByCode", ctx, "FBGONE").Return(nil, domain.ErrNotFound).Once()

	_, err := svc.CancelBooking(ctx, "FBRETRY", "", 5)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)

	_, err = svc.CancelBooking(ctx, "FBGONE", "", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelBooking_RereadsWhenStatusMoved(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBookingRepository)
	svc := NewBookingService(repo, new(MockFlightRepository), nil,
		WithClock(domain.FixedClock(now)), WithCancelRetry(3, time.Millisecond))

	confirmed := pendingBooking()
	confirmed.BookingStatus = domain.BookingConfirmed
	confirmed.PaymentStatus = domain.PaymentPaid
	repo.On("GetByCode", ctx, "FBRETRY").Return(pendingBooking(), nil).Once()
	repo.On("GetByCode", ctx, "FBRETRY").Return(confirmed, nil).Once()
	repo.On("Cancel", ctx, mock.Anything, repository.CancelGuard{From: domain.BookingPending}).Return(domain.ErrNotCancellable).Once()
	repo.On("Cancel", ctx, mock.Anything, repository.CancelGuard{From: domain.BookingConfirmed}).Return(nil).Once()

	b, err := svc.CancelBooking(ctx, "FBRETRY", "plans changed", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	repo.AssertExpectations(t)
}

func TestCancelBooking_StaleReadKeepsPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	// Payment lands between the service's read and its conditional write.
	racing := &payOnRead{BookingRepository: e.store.Bookings(), pay: e.svc}
	svc := NewBookingService(racing, e.store.Flights(), nil, WithClock(domain.FixedClock(now)), WithCancelRetry(3, time.Millisecond))

	cancelled, err := svc.CancelBooking(ctx, b.TransactionCode, "plans changed", 4)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.BookingStatus)
	assert.Equal(t, domain.PaymentPaid, cancelled.PaymentStatus)
	assert.Empty(t, e.store.SeatHolders(e.classID))

	refunded, err := e.svc.RefundBooking(ctx, b.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, refunded.PaymentStatus)
}

// payOnRead records a successful payment right after the first booking read.
type payOnRead struct {
	repository.BookingRepository
	pay  *BookingService
	done bool
}

func (r *payOnRead) GetByCode(ctx context.Context, code string) (*domain.BookingTransaction, error) {
	b, err := r.BookingRepository.GetByCode(ctx, code)
	if err == nil && !r.done {
		r.done = true
		if _, perr := r.pay.RecordPayment(ctx, code, true); perr != nil {
			return nil, perr
		}
	}
	return b, err
}

// payAfterListing confirms every listed booking before the sweep gets to cancel it.
type payAfterListing struct {
	repository.BookingRepository
	pay *BookingService
}

func (r *payAfterListing) ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.BookingTransaction, error) {
	stale, err := r.BookingRepository.ListStalePending(ctx, createdBefore)
	if err != nil {
		return nil, err
	}
	for _, b := range stale {
		if _, err := r.pay.RecordPayment(ctx, b.TransactionCode, true); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("broken pipe")))
	assert.True(t, isTransient(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, isTransient(&pgconn.PgError{Code: "08006"}))
	assert.False(t, isTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(&domain.TransitionError{Entity: "booking", Op: "cancel", From: "boarded"}))
}

// Payment and later transitions

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	failed, err := e.svc.RecordPayment(ctx, b.TransactionCode, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, failed.PaymentStatus)
	assert.Equal(t, domain.BookingPending, failed.BookingStatus)

	paid, err := e.svc.RecordPayment(ctx, b.TransactionCode, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, domain.BookingConfirmed, paid.BookingStatus)

	_, err = e.svc.RecordPayment(ctx, b.TransactionCode, true)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRefundAfterCancellation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	_, err = e.svc.RefundBooking(ctx, b.TransactionCode)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = e.svc.RecordPayment(ctx, b.TransactionCode, true)
	require.NoError(t, err)
	_, err = e.svc.CancelBooking(ctx, b.TransactionCode, "sick", 9)
	require.NoError(t, err)

	refunded, err := e.svc.RefundBooking(ctx, b.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, refunded.PaymentStatus)
}

func TestCompleteBooking_RequiresBoarded(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	_, err = e.svc.CompleteBooking(ctx, b.TransactionCode)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeleteBooking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A", "2B"))
	require.NoError(t, err)

	require.NoError(t, e.svc.DeleteBooking(ctx, b.TransactionCode))

	assert.Empty(t, e.store.SeatHolders(e.classID))
	_, err = e.svc.GetBooking(ctx, b.TransactionCode)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, e.svc.DeleteBooking(ctx, b.TransactionCode), domain.ErrNotFound)
}

// Expiry

func TestExpirePendingBookings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	old, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)
	paid, err := e.svc.CreateBooking(ctx, e.input("", "2B"))
	require.NoError(t, err)
	_, err = e.svc.RecordPayment(ctx, paid.TransactionCode, true)
	require.NoError(t, err)

	e.store.SetNow(func() time.Time { return now.Add(20 * time.Minute) })
	fresh, err := e.svc.CreateBooking(ctx, e.input("", "2C"))
	require.NoError(t, err)

	later := NewBookingService(e.store.Bookings(), e.store.Flights(), nil,
		WithClock(domain.FixedClock(now.Add(31*time.Minute))), WithConfirmationTTL(30*time.Minute))

	expired, err := later.ExpirePendingBookings(ctx)

	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.TransactionCode, expired[0].TransactionCode)

	stored, err := e.svc.GetBooking(ctx, old.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, stored.BookingStatus)
	require.NotNil(t, stored.CancelledBy)
	assert.Equal(t, domain.SystemActor, *stored.CancelledBy)

	holders := e.store.SeatHolders(e.classID)
	assert.NotContains(t, holders, e.seats["2A"])
	assert.Contains(t, holders, e.seats["2B"])
	assert.Contains(t, holders, e.seats["2C"])

	stored, err = e.svc.GetBooking(ctx, fresh.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, stored.BookingStatus)
}

func TestExpirePendingBookings_SkipsBookingPaidAfterListing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b, err := e.svc.CreateBooking(ctx, e.input("", "2A"))
	require.NoError(t, err)

	racing := &payAfterListing{BookingRepository: e.store.Bookings(), pay: e.svc}
	sweeper := NewBookingService(racing, e.store.Flights(), nil,
		WithClock(domain.FixedClock(now.Add(31*time.Minute))), WithConfirmationTTL(30*time.Minute))

	expired, err := sweeper.ExpirePendingBookings(ctx)

	require.NoError(t, err)
	assert.Empty(t, expired)

	stored, err := e.svc.GetBooking(ctx, b.TransactionCode)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, stored.BookingStatus)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Contains(t, e.store.SeatHolders(e.classID), e.seats["2A"])
}
