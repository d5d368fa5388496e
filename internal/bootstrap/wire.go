package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/passengers"
	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/Domenick1991/flightbooking/internal/service/seats"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage bundles the repositories of one backend.
type Storage struct {
	Flights  repository.FlightRepository
	Seats    repository.SeatRepository
	Promos   repository.PromoRepository
	Bookings repository.BookingRepository
	close    func()
}

func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects the configured backend. The memory driver starts with a demo
// flight so a local run has something to book.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*Storage, error) {
	if cfg.Driver == "memory" {
		store := repository.NewMemoryStore()
		if err := seedDemo(ctx, store); err != nil {
			return nil, err
		}
		log.Warn("using in-memory storage, data is lost on restart")
		return &Storage{
			Flights:  store.Flights(),
			Seats:    store.Seats(),
			Promos:   store.Promos(),
			Bookings: store.Bookings(),
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Storage{
		Flights:  repository.NewFlightRepository(pool),
		Seats:    repository.NewSeatRepository(pool),
		Promos:   repository.NewPromoRepository(pool),
		Bookings: repository.NewBookingRepository(pool),
		close:    pool.Close,
	}, nil
}

func seedDemo(ctx context.Context, store *repository.MemoryStore) error {
	departure := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	flight := store.AddFlight(domain.Flight{
		FlightNumber:   "FB100",
		Origin:         "SVO",
		Destination:    "LED",
		DepartureTime:  departure,
		ArrivalTime:    departure.Add(90 * time.Minute),
		Status:         domain.FlightStatusScheduled,
		BasePriceCents: 5000,
		Classes: []domain.FlightClass{
			{Name: "economy", PriceMultiplier: 1, SeatCount: 6},
			{Name: "business", PriceMultiplier: 2.5, SeatCount: 2},
		},
	})
	layout := map[int][]string{
		0: {"10A", "10B", "10C", "11A", "11B", "11C"},
		1: {"1A", "1B"},
	}
	for i, numbers := range layout {
		if _, err := store.Seats().Provision(ctx, flight.Classes[i].ID, numbers); err != nil {
			return fmt.Errorf("seed seats: %w", err)
		}
	}
	store.AddPromo(domain.PromoCode{Code: "WELCOME10", DiscountType: domain.DiscountPercentage, DiscountValue: 10, IsActive: true})
	return nil
}

// Infra holds the optional external collaborators. Nil fields are disabled.
type Infra struct {
	Cache    *cache.RedisCache
	Producer *kafka.Producer
}

// NewServices wires the use cases on top of storage and infra.
func NewServices(cfg *config.Config, st *Storage, infra Infra, log *slog.Logger) (Services, *booking.BookingService) {
	promoOpts := []promo.Option{promo.WithLogger(log)}
	var flightCache flights.FlightCache
	if infra.Cache != nil {
		promoOpts = append(promoOpts, promo.WithCache(infra.Cache))
		flightCache = infra.Cache
	}
	promoSvc := promo.NewService(st.Promos, promoOpts...)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithLogger(log),
		booking.WithServiceFee(cfg.Booking.ServiceFeeCents),
		booking.WithConfirmationTTL(cfg.Booking.ConfirmationTTL()),
		booking.WithCancelRetry(cfg.Booking.CancelRetryAttempts, cfg.Booking.CancelRetryBackoff()),
	}
	passengerOpts := []passengers.Option{passengers.WithLogger(log)}
	if infra.Producer != nil {
		bookingOpts = append(bookingOpts,
			booking.WithProducer(infra.Producer, cfg.Kafka.BookingEventsTopic),
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
		passengerOpts = append(passengerOpts, passengers.WithProducer(infra.Producer, cfg.Kafka.BookingEventsTopic))
	}
	bookingSvc := booking.NewBookingService(st.Bookings, st.Flights, promoSvc, bookingOpts...)

	return Services{
		Flights:    flights.NewFlightService(st.Flights, flightCache, log),
		Seats:      seats.NewSeatService(st.Seats, st.Flights, seats.WithLogger(log)),
		Bookings:   bookingSvc,
		Passengers: passengers.NewPassengerService(st.Bookings, st.Seats, passengerOpts...),
		Promos:     promoSvc,
	}, bookingSvc
}
