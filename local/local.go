// Package local provides an in-process connection to an application.
//
// For applications compiled into the same binary as the consensus
// engine, this adapter wraps the application with lifecycle state
// machine enforcement and halt handling, with no serialization
// overhead.
package local

import (
	"context"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/types"
)

// Compile-time interface check.
var _ appcore.Connection = (*Connection)(nil)

// Connection wraps a local application with lifecycle enforcement.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection wrapping the given
// application.
func NewConnection(app appcore.Application, opts ...server.Option) *Connection {
	return &Connection{srv: server.New(app, opts...)}
}

func (c *Connection) Info(ctx context.Context) (types.InfoResponse, error) {
	return c.srv.Info(ctx)
}

func (c *Connection) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	return c.srv.InitChain(ctx, req)
}

func (c *Connection) BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error) {
	return c.srv.BeginBlock(ctx, req)
}

func (c *Connection) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	return c.srv.CheckTx(ctx, tx, mctx)
}

func (c *Connection) DeliverTx(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	return c.srv.DeliverTx(ctx, tx)
}

func (c *Connection) EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error) {
	return c.srv.EndBlock(ctx, req)
}

func (c *Connection) Commit(ctx context.Context) (types.CommitResult, error) {
	return c.srv.Commit(ctx)
}

func (c *Connection) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	return c.srv.Query(ctx, req)
}

func (c *Connection) AsSimulator() appcore.Simulator {
	return c.srv.AsSimulator()
}

// Close closes the application.
func (c *Connection) Close() error { return c.srv.Close() }

// Server returns the underlying server for advanced use cases.
func (c *Connection) Server() *server.Server {
	return c.srv
}
