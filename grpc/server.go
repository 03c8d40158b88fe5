package appgrpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/types"
)

// Compile-time interface check.
var _ ApplicationServiceServer = (*GRPCServer)(nil)

// GRPCServer exposes an application over gRPC. Domain types are
// serialized directly via cramberry.
type GRPCServer struct {
	srv    *server.Server
	logger *zap.Logger
}

// NewGRPCServer creates a gRPC server wrapping the given application.
func NewGRPCServer(app appcore.Application, opts ...server.Option) *GRPCServer {
	return &GRPCServer{
		srv:    server.New(app, opts...),
		logger: log.Logger("grpc"),
	}
}

// Register adds the service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterApplicationServiceServer(gs, s)
}

// NewServer returns a grpc.Server with the cramberry codec forced, the
// logging interceptor installed and the service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(CramberryCodec{}),
		grpc.ChainUnaryInterceptor(s.logInterceptor),
	}, opts...)
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Serve starts serving on the given listener until the server stops.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	return s.NewServer(opts...).Serve(lis)
}

// Server returns the underlying server for advanced use.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

func (s *GRPCServer) logInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn("Call failed.", zap.String("method", info.FullMethod), zap.Error(err))
	} else if ce := s.logger.Check(zap.DebugLevel, "Call served."); ce != nil {
		ce.Write(zap.String("method", info.FullMethod), zap.Duration("elapsed", time.Since(start)))
	}
	return resp, err
}

// reply converts the application result into a gRPC reply, attaching
// halt details as a trailer.
func reply[T any](ctx context.Context, v T, err error) (*T, error) {
	if err != nil {
		st, md := toStatus(err)
		if md != nil {
			_ = grpc.SetTrailer(ctx, md)
		}
		return nil, st
	}
	return &v, nil
}

func (s *GRPCServer) Info(ctx context.Context, _ *InfoRequest) (*types.InfoResponse, error) {
	resp, err := s.srv.Info(ctx)
	return reply(ctx, resp, err)
}

func (s *GRPCServer) InitChain(ctx context.Context, req *types.InitChainRequest) (*types.InitChainResponse, error) {
	resp, err := s.srv.InitChain(ctx, *req)
	return reply(ctx, resp, err)
}

func (s *GRPCServer) BeginBlock(ctx context.Context, req *types.BeginBlockRequest) (*types.BeginBlockResponse, error) {
	resp, err := s.srv.BeginBlock(ctx, *req)
	return reply(ctx, resp, err)
}

func (s *GRPCServer) CheckTx(ctx context.Context, req *CheckTxRequest) (*types.GateVerdict, error) {
	verdict, err := s.srv.CheckTx(ctx, req.Tx, req.Context)
	return reply(ctx, verdict, err)
}

func (s *GRPCServer) DeliverTx(ctx context.Context, req *DeliverTxRequest) (*types.TxOutcome, error) {
	outcome, err := s.srv.DeliverTx(ctx, req.Tx)
	return reply(ctx, outcome, err)
}

func (s *GRPCServer) EndBlock(ctx context.Context, req *types.EndBlockRequest) (*types.EndBlockResponse, error) {
	resp, err := s.srv.EndBlock(ctx, *req)
	return reply(ctx, resp, err)
}

func (s *GRPCServer) Commit(ctx context.Context, _ *CommitRequest) (*types.CommitResult, error) {
	result, err := s.srv.Commit(ctx)
	return reply(ctx, result, err)
}

func (s *GRPCServer) Query(ctx context.Context, req *types.StateQuery) (*types.StateQueryResult, error) {
	result, err := s.srv.Query(ctx, *req)
	return reply(ctx, result, err)
}

func (s *GRPCServer) Simulate(ctx context.Context, req *SimulateRequest) (*types.TxOutcome, error) {
	outcome, err := s.srv.Simulate(ctx, req.Tx)
	return reply(ctx, outcome, err)
}
