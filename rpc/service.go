package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "okxbridge.MarketDepth"

const (
	methodGetStatus            = "/" + ServiceName + "/GetStatus"
	methodGetTopOfBook         = "/" + ServiceName + "/GetTopOfBook"
	methodGetOrderBookSnapshot = "/" + ServiceName + "/GetOrderBookSnapshot"
	methodSimulate             = "/" + ServiceName + "/Simulate"
)

// MarketDepthServer is served over protobuf well-known types, so no generated
// stubs are required on either side.
type MarketDepthServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetTopOfBook(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetOrderBookSnapshot(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterMarketDepthServer(s grpc.ServiceRegistrar, srv MarketDepthServer) {
	s.RegisterService(&MarketDepthServiceDesc, srv)
}

var MarketDepthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketDepthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "GetTopOfBook", Handler: getTopOfBookHandler},
		{MethodName: "GetOrderBookSnapshot", Handler: getOrderBookSnapshotHandler},
		{MethodName: "Simulate", Handler: simulateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "okxbridge/market_depth",
}

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDepthServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketDepthServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getTopOfBookHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDepthServer).GetTopOfBook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetTopOfBook}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketDepthServer).GetTopOfBook(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrderBookSnapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDepthServer).GetOrderBookSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetOrderBookSnapshot}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketDepthServer).GetOrderBookSnapshot(ctx, req.(*wrapperspb.Int32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func simulateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MarketDepthServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSimulate}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MarketDepthServer).Simulate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type MarketDepthClient struct {
	cc grpc.ClientConnInterface
}

func NewMarketDepthClient(cc grpc.ClientConnInterface) *MarketDepthClient {
	return &MarketDepthClient{cc: cc}
}

func (c *MarketDepthClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MarketDepthClient) GetTopOfBook(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetTopOfBook, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MarketDepthClient) GetOrderBookSnapshot(ctx context.Context, maxDepth int32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetOrderBookSnapshot, wrapperspb.Int32(maxDepth), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MarketDepthClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSimulate, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
