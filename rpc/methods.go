package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/spooky-finn/okx-depth-bridge/usecase"
)

func (s *server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.marketDepth.Status())
}

func (s *server) GetTopOfBook(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.marketDepth.TopOfBook())
}

func (s *server) GetOrderBookSnapshot(ctx context.Context, in *wrapperspb.Int32Value) (*structpb.Struct, error) {
	if in.GetValue() < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "max depth must not be negative, got %d", in.GetValue())
	}
	return toStruct(s.marketDepth.OrderBookSnapshot(int(in.GetValue())))
}

// Simulate accepts {"side": "buy"|"sell", "quantity": number|string}; both fields are optional.
func (s *server) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()

	quantity, err := s.quantityFrom(fields["quantity"])
	if err != nil {
		return nil, toStatus(err)
	}

	sim, err := s.marketDepth.Simulate(fields["side"].GetStringValue(), quantity)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(sim)
}

func (s *server) quantityFrom(v *structpb.Value) (decimal.Decimal, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return s.marketDepth.ParseQuantity(decimal.NewFromFloat(kind.NumberValue).String())
	case *structpb.Value_StringValue:
		return s.marketDepth.ParseQuantity(kind.StringValue)
	case nil, *structpb.Value_NullValue:
		return s.marketDepth.DefaultQuantity(), nil
	default:
		return decimal.Zero, status.Error(codes.InvalidArgument, "quantity must be a number or a string")
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, usecase.ErrInvalidQuantity) || errors.Is(err, usecase.ErrInvalidSide) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// toStruct renders v through its JSON form so the gRPC and HTTP views agree.
func toStruct(v any) (*structpb.Struct, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(payload, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}
