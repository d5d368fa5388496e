package bookings_service_api

import (
	"context"
	"time"

	"github.com/Domenick1991/flightbooking/internal/api/rpc"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/passengers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "airbooking.bookings.v1.BookingsService"

type BookingsServiceServer interface {
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckInPassenger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	BoardPassenger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func method(name string, call func(BookingsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return rpc.Unary(ServiceName, name, func() *structpb.Struct { return new(structpb.Struct) }, call)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateBooking", BookingsServiceServer.CreateBooking),
		method("GetBooking", BookingsServiceServer.GetBooking),
		method("CancelBooking", BookingsServiceServer.CancelBooking),
		method("CheckInPassenger", BookingsServiceServer.CheckInPassenger),
		method("BoardPassenger", BookingsServiceServer.BoardPassenger),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "airbooking/bookings/v1/bookings.proto",
}

func RegisterBookingsServiceServer(r grpc.ServiceRegistrar, srv BookingsServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

// Server exposes bookings and passenger operations over gRPC.
type Server struct {
	bookings   booking.BookingUseCase
	passengers passengers.PassengerUseCase
}

func NewServer(bookings booking.BookingUseCase, passengers passengers.PassengerUseCase) *Server {
	return &Server{bookings: bookings, passengers: passengers}
}

type bookingCodeRequest struct {
	TransactionCode string `json:"transaction_code"`
}

type cancelRequest struct {
	TransactionCode string `json:"transaction_code"`
	Reason          string `json:"reason"`
	ActorID         *int64 `json:"actor_id"`
}

type passengerRequest struct {
	PassengerID int64 `json:"passenger_id"`
}

type bookingMessage struct {
	TransactionCode    string                   `json:"transaction_code"`
	BookingStatus      string                   `json:"booking_status"`
	PaymentStatus      string                   `json:"payment_status"`
	FlightID           int64                    `json:"flight_id"`
	FlightClassID      int64                    `json:"flight_class_id"`
	TotalAmount        int64                    `json:"total_amount"`
	DiscountAmount     int64                    `json:"discount_amount"`
	FinalAmount        int64                    `json:"final_amount"`
	CancellationReason string                   `json:"cancellation_reason,omitempty"`
	CreatedAt          string                   `json:"created_at"`
	Passengers         []domain.PassengerRecord `json:"passengers"`
}

func toMessage(b *domain.BookingTransaction) (*structpb.Struct, error) {
	return rpc.Encode(bookingMessage{
		TransactionCode:    b.TransactionCode,
		BookingStatus:      string(b.BookingStatus),
		PaymentStatus:      string(b.PaymentStatus),
		FlightID:           b.FlightID,
		FlightClassID:      b.FlightClassID,
		TotalAmount:        b.TotalAmount,
		DiscountAmount:     b.DiscountAmount,
		FinalAmount:        b.FinalAmount,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		Passengers:         b.Passengers,
	})
}

func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var input booking.CreateBookingInput
	if err := rpc.Decode(req, &input); err != nil {
		return nil, err
	}
	created, err := s.bookings.CreateBooking(ctx, input)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return toMessage(created)
}

func (s *Server) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in bookingCodeRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	b, err := s.bookings.GetBooking(ctx, in.TransactionCode)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return toMessage(b)
}

// CancelBooking takes the actor from the request body or, failing that, from
// the x-actor-id metadata entry.
func (s *Server) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in cancelRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.TransactionCode == "" {
		return nil, status.Error(codes.InvalidArgument, "transaction_code is required")
	}
	var actorID int64
	if in.ActorID != nil {
		actorID = *in.ActorID
	} else {
		id, err := rpc.ActorFromMetadata(ctx)
		if err != nil {
			return nil, err
		}
		actorID = id
	}

	b, err := s.bookings.CancelBooking(ctx, in.TransactionCode, in.Reason, actorID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return toMessage(b)
}

func (s *Server) CheckInPassenger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.passengerOp(ctx, req, s.passengers.CheckIn)
}

func (s *Server) BoardPassenger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.passengerOp(ctx, req, s.passengers.Board)
}

func (s *Server) passengerOp(ctx context.Context, req *structpb.Struct, op func(context.Context, int64) (*domain.PassengerRecord, error)) (*structpb.Struct, error) {
	var in passengerRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.PassengerID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "passenger_id is required")
	}
	p, err := op(ctx, in.PassengerID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return rpc.Encode(p)
}

var _ BookingsServiceServer = (*Server)(nil)
