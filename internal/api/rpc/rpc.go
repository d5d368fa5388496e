// Package rpc holds the plumbing shared by the gRPC services. Messages travel as
// google.protobuf.Struct so the services need no generated code; payloads use the
// same JSON field names as the HTTP API.
//
// Struct numbers are doubles, so ids and cent amounts are exact only up to 2^53.
// Larger values are rejected in both directions rather than rounded.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ActorMetadataKey is the metadata entry carrying the acting user's id.
const ActorMetadataKey = "x-actor-id"

// Unary builds the method descriptor for a unary call on a hand-registered service.
func Unary[S any, Req any](service, method string, newReq func() Req, call func(S, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(Req))
			})
		},
	}
}

// maxExactNumber is the largest integer a double holds without rounding.
const maxExactNumber = 1 << 53

// Decode copies a Struct payload into dst through its JSON tags.
func Decode(in *structpb.Struct, dst any) error {
	fields := in.AsMap()
	if err := checkNumbers(fields); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	// encoding/json writes integral doubles below 1e21 without an exponent, so they
	// decode into integer fields.
	raw, err := json.Marshal(fields)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// Encode turns any JSON-serialisable value into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	if err := checkNumbers(generic); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func checkNumbers(v any) error {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			if err := checkNumbers(item); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case []any:
		for _, item := range t {
			if err := checkNumbers(item); err != nil {
				return err
			}
		}
	case float64:
		if math.Abs(t) > maxExactNumber {
			return fmt.Errorf("number %v exceeds 2^53", t)
		}
	case json.Number:
		if n, err := t.Int64(); err == nil && (n > maxExactNumber || n < -maxExactNumber) {
			return fmt.Errorf("number %s exceeds 2^53", t)
		}
	}
	return nil
}

// Status converts a service error into a gRPC status.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrSeatUnavailable):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrPromoNotApplicable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, "internal error")
}

// ActorFromMetadata reads the actor id sent as call metadata.
func ActorFromMetadata(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok || len(md.Get(ActorMetadataKey)) == 0 {
		return 0, status.Error(codes.InvalidArgument, "actor id is required")
	}
	id, err := strconv.ParseInt(md.Get(ActorMetadataKey)[0], 10, 64)
	if err != nil || id < 0 {
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("invalid %s", ActorMetadataKey))
	}
	return id, nil
}
