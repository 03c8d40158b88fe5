// Package appcore defines the boundary between a consensus engine and the
// deterministic application core that sits behind it.
//
// The engine drives an [Application] through a strict per-block sequence
// and may issue CheckTx, Query and Simulate calls concurrently at any time
// after the chain has been initialized or restarted.
package appcore

import (
	"context"

	"github.com/blockberries/appcore/types"
)

// Application is the interface every application core implements.
//
// The engine guarantees the following call order:
//  1. Info is called on every startup. If the application reports no
//     committed version, InitChain is called exactly once.
//  2. For every height h: BeginBlock(h), DeliverTx for each transaction in
//     block order, EndBlock(h), Commit.
//  3. CheckTx and Query may be called concurrently at any time after step 1.
type Application interface {
	// Info reports the last committed version and app hash so the engine
	// can decide whether to replay blocks or start from genesis.
	Info(ctx context.Context) (types.InfoResponse, error)

	// InitChain loads the genesis state. The returned AppHash covers the
	// genesis state; it is persisted together with the first block.
	InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error)

	// BeginBlock opens block N. Business failures inside begin-block hooks
	// are reported as events; only a HaltError aborts.
	BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error)

	// CheckTx runs the pre-processing pipeline against the last committed
	// state for mempool admission. No handler runs and nothing is kept.
	//
	// This method MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// DeliverTx executes one transaction against the open block. Every
	// outcome, including failure, is a structured TxOutcome; a non-nil
	// error means the application is unable to continue.
	DeliverTx(ctx context.Context, tx types.Tx) (types.TxOutcome, error)

	// EndBlock closes block N and returns validator-set changes.
	EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error)

	// Commit durably persists the block and returns the new version and
	// app hash. A failure here is fatal and surfaces as a HaltError.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads the last committed state (or a retained recent
	// version), never the block under construction.
	//
	// This method MUST be safe for concurrent use, including concurrent
	// with block execution.
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// Simulator dry-runs a transaction against the last committed state,
// including handler execution, without keeping any change. It is an
// optional capability discovered by type assertion.
//
// This method MUST be safe for concurrent use.
type Simulator interface {
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Connection represents a transport-agnostic connection to an
// application. Both gRPC clients and in-process adapters implement this.
type Connection interface {
	Application

	// AsSimulator returns the Simulator interface if available.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
