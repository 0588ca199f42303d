package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/miretia/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// operation binds one gRPC method to the GRPCServer method handling it.
type operation struct {
	method string
	call   func(s *GRPCServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// operations is the explicit mapping between exposed methods and the
// account service. Request and response shapes are documented on each
// handler.
var operations = []operation{
	{pb.MethodRegister, (*GRPCServer).register},
	{pb.MethodLookupByID, (*GRPCServer).lookupByID},
	{pb.MethodLookupByEmail, (*GRPCServer).lookupByEmail},
	{pb.MethodLookupByUsername, (*GRPCServer).lookupByUsername},
	{pb.MethodListAccounts, (*GRPCServer).listAccounts},
	{pb.MethodDeleteAccount, (*GRPCServer).deleteAccount},
}

// accountServiceServer is the HandlerType of serviceDesc.
type accountServiceServer interface {
	dispatch(ctx context.Context, op operation, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: pb.ServiceName,
	HandlerType: (*accountServiceServer)(nil),
	Methods:     methodDescs(operations),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "miretia/accounts/v1/accounts.proto",
}

func methodDescs(ops []operation) []grpc.MethodDesc {
	descs := make([]grpc.MethodDesc, 0, len(ops))
	for _, op := range ops {
		descs = append(descs, grpc.MethodDesc{
			MethodName: op.method,
			Handler:    op.handler,
		})
	}
	return descs
}

func (op operation) handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(accountServiceServer)
	if interceptor == nil {
		return s.dispatch(ctx, op, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: pb.FullMethod(op.method),
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.dispatch(ctx, op, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func (s *GRPCServer) dispatch(ctx context.Context, op operation, req *structpb.Struct) (*structpb.Struct, error) {
	return op.call(s, ctx, req)
}
