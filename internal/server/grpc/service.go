package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/accountkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type unaryMethod func(s *GRPCServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

var handlers = map[string]unaryMethod{
	pb.MethodPing:                   (*GRPCServer).Ping,
	pb.MethodStartRegistration:      (*GRPCServer).StartRegistration,
	pb.MethodResendRegistrationCode: (*GRPCServer).ResendRegistrationCode,
	pb.MethodConfirmRegistration:    (*GRPCServer).ConfirmRegistration,
	pb.MethodSetPassword:            (*GRPCServer).SetPassword,
	pb.MethodLogin:                  (*GRPCServer).Login,
	pb.MethodCompleteProfile:        (*GRPCServer).CompleteProfile,
	pb.MethodCheckProfileCompleted:  (*GRPCServer).CheckProfileCompleted,
	pb.MethodStartRecovery:          (*GRPCServer).StartRecovery,
	pb.MethodCompleteRecovery:       (*GRPCServer).CompleteRecovery,
	pb.MethodCreateCompany:          (*GRPCServer).CreateCompany,
	pb.MethodAssignUserToCompany:    (*GRPCServer).AssignUserToCompany,
	pb.MethodListCompanyMembers:     (*GRPCServer).ListCompanyMembers,
	pb.MethodCreateCompanyMember:    (*GRPCServer).CreateCompanyMember,
	pb.MethodUpdateMemberProfile:    (*GRPCServer).UpdateMemberProfile,
	pb.MethodDeactivateMember:       (*GRPCServer).DeactivateMember,
	pb.MethodGetAccessLevel:         (*GRPCServer).GetAccessLevel,
}

// publicMethods need no token and are rate limited per peer.
var publicMethods = map[string]bool{
	pb.FullMethod(pb.MethodPing):                   true,
	pb.FullMethod(pb.MethodStartRegistration):      true,
	pb.FullMethod(pb.MethodResendRegistrationCode): true,
	pb.FullMethod(pb.MethodConfirmRegistration):    true,
	pb.FullMethod(pb.MethodLogin):                  true,
	pb.FullMethod(pb.MethodStartRecovery):          true,
	pb.FullMethod(pb.MethodCompleteRecovery):       true,
}

// setupMethods also accept the token returned by ConfirmRegistration.
var setupMethods = map[string]bool{
	pb.FullMethod(pb.MethodSetPassword): true,
}

var serviceDesc = buildServiceDesc()

func buildServiceDesc() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: pb.ServiceName,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    pb.DescriptorPath,
	}
	for name, fn := range handlers {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: unaryHandler(name, fn)})
	}
	return desc
}

func unaryHandler(name string, fn unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(*GRPCServer)
		if interceptor == nil {
			return fn(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pb.FullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*structpb.Struct))
		})
	}
}
