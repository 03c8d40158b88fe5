package appgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/blockberries/appcore/types"
)

const serviceName = "appcore.v1.ApplicationService"

// ApplicationServiceServer is the server-side interface for the
// application gRPC service.
type ApplicationServiceServer interface {
	Info(context.Context, *InfoRequest) (*types.InfoResponse, error)
	InitChain(context.Context, *types.InitChainRequest) (*types.InitChainResponse, error)
	BeginBlock(context.Context, *types.BeginBlockRequest) (*types.BeginBlockResponse, error)
	CheckTx(context.Context, *CheckTxRequest) (*types.GateVerdict, error)
	DeliverTx(context.Context, *DeliverTxRequest) (*types.TxOutcome, error)
	EndBlock(context.Context, *types.EndBlockRequest) (*types.EndBlockResponse, error)
	Commit(context.Context, *CommitRequest) (*types.CommitResult, error)
	Query(context.Context, *types.StateQuery) (*types.StateQueryResult, error)
	Simulate(context.Context, *SimulateRequest) (*types.TxOutcome, error)
}

// RegisterApplicationServiceServer registers the service on a gRPC server.
func RegisterApplicationServiceServer(s *grpc.Server, srv ApplicationServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary adapts a typed method to a grpc.MethodDesc handler, running the
// server's interceptor when one is installed.
func unary[Req any, Resp any](method string, call func(ApplicationServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ApplicationServiceServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ApplicationServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ApplicationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Info", ApplicationServiceServer.Info),
		unary("InitChain", ApplicationServiceServer.InitChain),
		unary("BeginBlock", ApplicationServiceServer.BeginBlock),
		unary("CheckTx", ApplicationServiceServer.CheckTx),
		unary("DeliverTx", ApplicationServiceServer.DeliverTx),
		unary("EndBlock", ApplicationServiceServer.EndBlock),
		unary("Commit", ApplicationServiceServer.Commit),
		unary("Query", ApplicationServiceServer.Query),
		unary("Simulate", ApplicationServiceServer.Simulate),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appcore/v1/service.cram",
}
