package server

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/types"
)

// ErrSimulationNotSupported is returned by Simulate when the wrapped
// application does not implement appcore.Simulator.
var ErrSimulationNotSupported = errors.New("github.com/blockberries/appcore: Simulator not supported")

// HaltFunc is invoked once when the application reports a HaltError.
type HaltFunc func(err *appcore.HaltError)

// Server wraps an application with lifecycle enforcement and halt
// handling. The consensus engine interacts with the application
// exclusively through this server.
type Server struct {
	app       appcore.Application
	simulator appcore.Simulator
	guard     *LifecycleGuard
	logger    *zap.Logger
	haltFn    HaltFunc
}

var _ appcore.Connection = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHaltHandler replaces the default halt handler, which terminates the
// process.
func WithHaltHandler(fn HaltFunc) Option {
	return func(s *Server) { s.haltFn = fn }
}

// New creates a new Server wrapping the given application.
func New(app appcore.Application, opts ...Option) *Server {
	s := &Server{
		app:    app,
		guard:  NewLifecycleGuard(),
		logger: log.Logger("server"),
	}
	s.simulator, _ = app.(appcore.Simulator)
	for _, opt := range opts {
		opt(s)
	}
	if s.haltFn == nil {
		s.haltFn = func(err *appcore.HaltError) {
			s.logger.Fatal("Application halted.", zap.Uint64("height", err.Height), zap.Error(err))
		}
	}
	return s
}

// State returns the lifecycle state, for diagnostics.
func (s *Server) State() string { return s.guard.State() }

// halt moves the guard to Halted and runs the halt handler if err is a
// HaltError. It reports whether it did. Must be called with the
// sequential path held.
func (s *Server) halt(err error) bool {
	h, ok := appcore.IsHalt(err)
	if !ok {
		return false
	}
	s.guard.Halt()
	s.haltFn(h)
	return true
}

// Info reports the committed state. It may be called in any state before
// the first block.
func (s *Server) Info(ctx context.Context) (types.InfoResponse, error) {
	resp, err := s.app.Info(ctx)
	if err != nil {
		return resp, err
	}
	s.guard.CompleteInfo(resp.LastVersion)
	return resp, nil
}

// InitChain loads genesis. Valid once, after Info reported no state.
func (s *Server) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	s.guard.AcquireInitChain()
	resp, err := s.app.InitChain(ctx, req)
	if err != nil {
		if !s.halt(err) {
			s.guard.FailInitChain()
		}
		return resp, err
	}
	s.guard.CompleteInitChain()
	return resp, nil
}

// BeginBlock opens a block.
func (s *Server) BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error) {
	s.guard.AcquireBeginBlock()
	resp, err := s.app.BeginBlock(ctx, req)
	if err != nil {
		if !s.halt(err) {
			s.guard.FailBeginBlock()
		}
		return resp, err
	}
	s.guard.CompleteBeginBlock()
	return resp, nil
}

// DeliverTx executes a transaction in the open block.
func (s *Server) DeliverTx(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	s.guard.AcquireDeliverTx()
	out, err := s.app.DeliverTx(ctx, tx)
	if err != nil && s.halt(err) {
		return out, err
	}
	s.guard.CompleteDeliverTx()
	return out, err
}

// EndBlock closes the open block.
func (s *Server) EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error) {
	s.guard.AcquireEndBlock()
	resp, err := s.app.EndBlock(ctx, req)
	if err != nil {
		if !s.halt(err) {
			s.guard.FailEndBlock()
		}
		return resp, err
	}
	s.guard.CompleteEndBlock()
	return resp, nil
}

// Commit persists the closed block. Any commit failure halts.
func (s *Server) Commit(ctx context.Context) (types.CommitResult, error) {
	s.guard.AcquireCommit()
	result, err := s.app.Commit(ctx)
	if err != nil {
		if _, ok := appcore.IsHalt(err); !ok {
			err = appcore.WrapHalt(err, 0, "commit failed")
		}
		s.halt(err)
		return result, err
	}
	s.guard.CompleteCommit()
	return result, nil
}

// CheckTx gate-checks a transaction for mempool admission.
// Safe for concurrent use.
func (s *Server) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	s.guard.CheckConcurrent()
	return s.app.CheckTx(ctx, tx, mctx)
}

// Query reads application state. Safe for concurrent use.
func (s *Server) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	s.guard.CheckConcurrent()
	return s.app.Query(ctx, req)
}

// Simulate delegates to the application's Simulator.
// Safe for concurrent use.
func (s *Server) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if s.simulator == nil {
		return types.TxOutcome{}, ErrSimulationNotSupported
	}
	s.guard.CheckConcurrent()
	return s.simulator.Simulate(ctx, tx)
}

// AsSimulator returns the server itself if the application supports
// simulation, nil otherwise.
func (s *Server) AsSimulator() appcore.Simulator {
	if s.simulator == nil {
		return nil
	}
	return s
}

// Close closes the application if it implements io.Closer.
func (s *Server) Close() error {
	if c, ok := s.app.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
