package orderspb

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "orders.OrderService"

// CreateMethod is the full method path of the Create RPC.
const CreateMethod = "/orders.OrderService/Create"

// OrderServiceServer is the server contract for orders.OrderService.
type OrderServiceServer interface {
	Create(context.Context, *OrderCreateRequest) (*OrderCreateResponse, error)
}

// RegisterOrderServiceServer registers the service implementation. The
// server must be constructed with grpc.ForceServerCodec(Codec{}).
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderService_ServiceDesc, srv)
}

func createHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(OrderCreateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).Create(ctx, req.(*OrderCreateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderService_ServiceDesc is the grpc.ServiceDesc for orders.OrderService.
var OrderService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Create",
			Handler:    createHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders.proto",
}

// OrderServiceClient is the client contract for orders.OrderService.
type OrderServiceClient interface {
	Create(ctx context.Context, in *OrderCreateRequest, opts ...grpc.CallOption) (*OrderCreateResponse, error)
}

type orderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderServiceClient creates a client; the codec is forced per call so
// no global codec registration is needed.
func NewOrderServiceClient(cc grpc.ClientConnInterface) OrderServiceClient {
	return &orderServiceClient{cc: cc}
}

func (c *orderServiceClient) Create(ctx context.Context, in *OrderCreateRequest, opts ...grpc.CallOption) (*OrderCreateResponse, error) {
	out := new(OrderCreateResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, CreateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
