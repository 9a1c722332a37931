package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pickerkt.v1.Picker"

// PickerServer is the server API for the pickerkt.v1.Picker service.
type PickerServer interface {
	Plan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListContents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCollections(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetContent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PickerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PickerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PickerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PickerServiceDesc describes pickerkt.v1.Picker for grpc.Server.RegisterService.
var PickerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PickerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: methodHandler("Plan", PickerServer.Plan)},
		{MethodName: "ListContents", Handler: methodHandler("ListContents", PickerServer.ListContents)},
		{MethodName: "ListCollections", Handler: methodHandler("ListCollections", PickerServer.ListCollections)},
		{MethodName: "GetContent", Handler: methodHandler("GetContent", PickerServer.GetContent)},
		{MethodName: "Select", Handler: methodHandler("Select", PickerServer.Select)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pickerkt/v1/picker.proto",
}

// RegisterPickerServer registers srv with s.
func RegisterPickerServer(s grpc.ServiceRegistrar, srv PickerServer) {
	s.RegisterService(&PickerServiceDesc, srv)
}

// PickerClient calls the pickerkt.v1.Picker service.
type PickerClient struct {
	cc grpc.ClientConnInterface
}

// NewPickerClient returns a client over cc.
func NewPickerClient(cc grpc.ClientConnInterface) *PickerClient {
	return &PickerClient{cc: cc}
}

func (c *PickerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Plan calls Picker.Plan.
func (c *PickerClient) Plan(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Plan", in, opts...)
}

// ListContents calls Picker.ListContents.
func (c *PickerClient) ListContents(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListContents", in, opts...)
}

// ListCollections calls Picker.ListCollections.
func (c *PickerClient) ListCollections(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListCollections", in, opts...)
}

// GetContent calls Picker.GetContent.
func (c *PickerClient) GetContent(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetContent", in, opts...)
}

// Select calls Picker.Select.
func (c *PickerClient) Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Select", in, opts...)
}
