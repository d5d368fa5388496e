package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	bookingsapi "github.com/Domenick1991/flightbooking/internal/api/bookings_service_api"
	flightsapi "github.com/Domenick1991/flightbooking/internal/api/flights_service_api"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/passengers"
	"github.com/Domenick1991/flightbooking/internal/service/promo"
	"github.com/Domenick1991/flightbooking/internal/service/seats"
	"google.golang.org/grpc"
)

// Services is everything the transports expose.
type Services struct {
	Flights    flights.FlightUseCase
	Seats      seats.SeatUseCase
	Bookings   booking.BookingUseCase
	Passengers passengers.PassengerUseCase
	Promos     promo.PromoUseCase
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP servers and blocks until ctx is cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, log *slog.Logger) error {
	s := newServers(cfg, svc, log)

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	log.Info("gRPC server started", "address", cfg.GRPC.Address)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("HTTP server started", "address", cfg.HTTP.Address)

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, svc Services, log *slog.Logger) *Servers {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	flightsapi.RegisterFlightsServiceServer(grpcSrv, flightsapi.NewServer(svc.Flights))
	bookingsapi.RegisterBookingsServiceServer(grpcSrv, bookingsapi.NewServer(svc.Bookings, svc.Passengers))

	router := api.NewRouter(api.Handlers{
		Flights:    api.NewFlightHandler(svc.Flights, svc.Seats),
		Bookings:   api.NewBookingHandler(svc.Bookings),
		Passengers: api.NewPassengerHandler(svc.Passengers),
		Promos:     api.NewPromoHandler(svc.Promos),
	}, cfg.HTTP.SwaggerDir, log)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
	}
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		} else {
			log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		}
		return resp, err
	}
}
