package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the full gRPC name of the condition sync service.
const ServiceName = "filterkeeper.v1.ConditionSync"

const (
	getConditionMethod   = "/" + ServiceName + "/GetCondition"
	listConditionsMethod = "/" + ServiceName + "/ListConditions"
	checkConditionMethod = "/" + ServiceName + "/CheckCondition"
)

// ETagHeader is the response header carrying the etag of a condition.
const ETagHeader = "etag"

// ConditionSyncServer is the server API of the condition sync service.
type ConditionSyncServer interface {
	// GetCondition returns the encoded tree stored under a name. The etag is
	// sent as response header.
	GetCondition(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	// ListConditions lists stored conditions as structs with name, etag,
	// nodes and updated_at.
	ListConditions(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// CheckCondition decodes an encoded tree and reports its validity.
	CheckCondition(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ConditionSyncServiceDesc describes the service for grpc.Server.RegisterService.
var ConditionSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConditionSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCondition", Handler: getConditionHandler},
		{MethodName: "ListConditions", Handler: listConditionsHandler},
		{MethodName: "CheckCondition", Handler: checkConditionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "filterkeeper/v1/condition_sync.proto",
}

// RegisterConditionSyncServer registers srv on s.
func RegisterConditionSyncServer(s grpc.ServiceRegistrar, srv ConditionSyncServer) {
	s.RegisterService(&ConditionSyncServiceDesc, srv)
}

func getConditionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConditionSyncServer).GetCondition(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getConditionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConditionSyncServer).GetCondition(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listConditionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConditionSyncServer).ListConditions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listConditionsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConditionSyncServer).ListConditions(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func checkConditionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConditionSyncServer).CheckCondition(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkConditionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConditionSyncServer).CheckCondition(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ConditionSyncClient is the client API of the condition sync service.
type ConditionSyncClient struct {
	cc grpc.ClientConnInterface
}

// NewConditionSyncClient creates a client on cc.
func NewConditionSyncClient(cc grpc.ClientConnInterface) *ConditionSyncClient {
	return &ConditionSyncClient{cc: cc}
}

// GetCondition fetches an encoded tree. Pass grpc.Header to read the etag.
func (c *ConditionSyncClient) GetCondition(ctx context.Context, name string, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, getConditionMethod, wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// ListConditions lists stored conditions.
func (c *ConditionSyncClient) ListConditions(ctx context.Context, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, listConditionsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckCondition validates an encoded tree on the server.
func (c *ConditionSyncClient) CheckCondition(ctx context.Context, body []byte, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, checkConditionMethod, wrapperspb.Bytes(body), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
