package flights_service_api

import (
	"context"

	"github.com/Domenick1991/flightbooking/internal/api/rpc"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "airbooking.flights.v1.FlightsService"

type FlightsServiceServer interface {
	ListFlights(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	GetFlight(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FlightsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListFlights", func() *emptypb.Empty { return new(emptypb.Empty) }, FlightsServiceServer.ListFlights),
		rpc.Unary(ServiceName, "GetFlight", func() *structpb.Struct { return new(structpb.Struct) }, FlightsServiceServer.GetFlight),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "airbooking/flights/v1/flights.proto",
}

func RegisterFlightsServiceServer(r grpc.ServiceRegistrar, srv FlightsServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

// Server exposes the flight catalogue over gRPC.
type Server struct {
	flights flights.FlightUseCase
}

func NewServer(flights flights.FlightUseCase) *Server {
	return &Server{flights: flights}
}

func (s *Server) ListFlights(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	list, err := s.flights.List(ctx)
	if err != nil {
		return nil, rpc.Status(err)
	}
	if list == nil {
		list = []domain.Flight{}
	}
	return rpc.Encode(map[string]any{"flights": list})
}

func (s *Server) GetFlight(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID int64 `json:"id"`
	}
	if err := rpc.Decode(req, &in); err != nil {
		return nil, err
	}
	if in.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	flight, err := s.flights.GetByID(ctx, in.ID)
	if err != nil {
		return nil, rpc.Status(err)
	}
	return rpc.Encode(flight)
}

var _ FlightsServiceServer = (*Server)(nil)
