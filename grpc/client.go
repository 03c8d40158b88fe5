package appgrpc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/types"
)

// Compile-time interface check.
var _ appcore.Connection = (*Client)(nil)

// Client implements appcore.Connection for a remote application over
// gRPC using cramberry serialization. It enforces the call order locally
// so misuse is caught before it reaches the wire.
type Client struct {
	cc    *grpc.ClientConn
	guard *server.LifecycleGuard
}

// Dial connects to a remote application.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}
	return &Client{
		cc:    cc,
		guard: server.NewLifecycleGuard(),
	}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// invoke calls method and rebuilds HaltErrors from the trailer.
func invoke[T any](ctx context.Context, c *Client, method string, req any) (T, error) {
	var (
		resp    T
		trailer metadata.MD
	)
	err := c.cc.Invoke(ctx, fullMethod(method), req, &resp, grpc.Trailer(&trailer))
	return resp, fromStatus(err, trailer)
}

func (c *Client) Info(ctx context.Context) (types.InfoResponse, error) {
	resp, err := invoke[types.InfoResponse](ctx, c, "Info", &InfoRequest{})
	if err != nil {
		return types.InfoResponse{}, err
	}
	c.guard.CompleteInfo(resp.LastVersion)
	return resp, nil
}

func (c *Client) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	c.guard.AcquireInitChain()
	resp, err := invoke[types.InitChainResponse](ctx, c, "InitChain", &req)
	if err != nil {
		c.fail(err, c.guard.FailInitChain)
		return types.InitChainResponse{}, err
	}
	c.guard.CompleteInitChain()
	return resp, nil
}

func (c *Client) BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error) {
	c.guard.AcquireBeginBlock()
	resp, err := invoke[types.BeginBlockResponse](ctx, c, "BeginBlock", &req)
	if err != nil {
		c.fail(err, c.guard.FailBeginBlock)
		return types.BeginBlockResponse{}, err
	}
	c.guard.CompleteBeginBlock()
	return resp, nil
}

func (c *Client) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	c.guard.CheckConcurrent()
	return invoke[types.GateVerdict](ctx, c, "CheckTx", &CheckTxRequest{Tx: tx, Context: mctx})
}

func (c *Client) DeliverTx(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	c.guard.AcquireDeliverTx()
	resp, err := invoke[types.TxOutcome](ctx, c, "DeliverTx", &DeliverTxRequest{Tx: tx})
	if err != nil {
		c.fail(err, c.guard.CompleteDeliverTx)
		return types.TxOutcome{}, err
	}
	c.guard.CompleteDeliverTx()
	return resp, nil
}

func (c *Client) EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error) {
	c.guard.AcquireEndBlock()
	resp, err := invoke[types.EndBlockResponse](ctx, c, "EndBlock", &req)
	if err != nil {
		c.fail(err, c.guard.FailEndBlock)
		return types.EndBlockResponse{}, err
	}
	c.guard.CompleteEndBlock()
	return resp, nil
}

func (c *Client) Commit(ctx context.Context) (types.CommitResult, error) {
	c.guard.AcquireCommit()
	resp, err := invoke[types.CommitResult](ctx, c, "Commit", &CommitRequest{})
	if err != nil {
		c.guard.Halt()
		return types.CommitResult{}, err
	}
	c.guard.CompleteCommit()
	return resp, nil
}

func (c *Client) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	c.guard.CheckConcurrent()
	return invoke[types.StateQueryResult](ctx, c, "Query", &req)
}

// fail releases the sequential path: Halted for a HaltError, otherwise
// through release.
func (c *Client) fail(err error, release func()) {
	if _, ok := appcore.IsHalt(err); ok {
		c.guard.Halt()
		return
	}
	release()
}

// AsSimulator returns a Simulator backed by the remote application. The
// remote side reports ErrSimulationNotSupported if it cannot simulate.
func (c *Client) AsSimulator() appcore.Simulator {
	return clientSimulator{c}
}

type clientSimulator struct{ c *Client }

func (w clientSimulator) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	w.c.guard.CheckConcurrent()
	return invoke[types.TxOutcome](ctx, w.c, "Simulate", &SimulateRequest{Tx: tx})
}
