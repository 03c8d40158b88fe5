// Package apptest provides test utilities for application and engine
// development: a configurable mock, a harness that drives the call
// sequence, account and genesis helpers, and a lifecycle compliance
// suite.
package apptest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/types"
)

// Compile-time check that MockApp satisfies all interfaces.
var (
	_ appcore.Application = (*MockApp)(nil)
	_ appcore.Simulator   = (*MockApp)(nil)
)

// MockApp is a configurable mock application for engine testing.
// All methods are configurable via function fields. Unconfigured
// methods return sensible defaults: Commit advances the version and
// Info reports it, so a restarted engine sees the committed state.
type MockApp struct {
	mu          sync.Mutex
	lastVersion uint64
	lastHash    types.AppHash

	// Configurable handlers. If nil, defaults are used.
	InfoFn       func(context.Context) (types.InfoResponse, error)
	InitChainFn  func(context.Context, types.InitChainRequest) (types.InitChainResponse, error)
	BeginBlockFn func(context.Context, types.BeginBlockRequest) (types.BeginBlockResponse, error)
	CheckTxFn    func(context.Context, types.Tx, types.MempoolContext) (types.GateVerdict, error)
	DeliverTxFn  func(context.Context, types.Tx) (types.TxOutcome, error)
	EndBlockFn   func(context.Context, types.EndBlockRequest) (types.EndBlockResponse, error)
	CommitFn     func(context.Context) (types.CommitResult, error)
	QueryFn      func(context.Context, types.StateQuery) (types.StateQueryResult, error)
	SimulateFn   func(context.Context, types.Tx) (types.TxOutcome, error)

	// Call counters (atomic for concurrent access).
	InfoCalls       atomic.Int64
	InitChainCalls  atomic.Int64
	BeginBlockCalls atomic.Int64
	CheckTxCalls    atomic.Int64
	DeliverTxCalls  atomic.Int64
	EndBlockCalls   atomic.Int64
	CommitCalls     atomic.Int64
	QueryCalls      atomic.Int64
}

func (m *MockApp) Info(ctx context.Context) (types.InfoResponse, error) {
	m.InfoCalls.Add(1)
	if m.InfoFn != nil {
		return m.InfoFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.InfoResponse{AppVersion: "mock", LastVersion: m.lastVersion, LastAppHash: m.lastHash}, nil
}

func (m *MockApp) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	m.InitChainCalls.Add(1)
	if m.InitChainFn != nil {
		return m.InitChainFn(ctx, req)
	}
	return types.InitChainResponse{AppHash: types.AppHash{0x01}}, nil
}

func (m *MockApp) BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error) {
	m.BeginBlockCalls.Add(1)
	if m.BeginBlockFn != nil {
		return m.BeginBlockFn(ctx, req)
	}
	return types.BeginBlockResponse{}, nil
}

func (m *MockApp) CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	m.CheckTxCalls.Add(1)
	if m.CheckTxFn != nil {
		return m.CheckTxFn(ctx, tx, mctx)
	}
	return types.GateVerdict{Code: 0}, nil
}

func (m *MockApp) DeliverTx(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	m.DeliverTxCalls.Add(1)
	if m.DeliverTxFn != nil {
		return m.DeliverTxFn(ctx, tx)
	}
	return types.TxOutcome{Code: 0}, nil
}

func (m *MockApp) EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error) {
	m.EndBlockCalls.Add(1)
	if m.EndBlockFn != nil {
		return m.EndBlockFn(ctx, req)
	}
	return types.EndBlockResponse{}, nil
}

func (m *MockApp) Commit(ctx context.Context) (types.CommitResult, error) {
	m.CommitCalls.Add(1)
	if m.CommitFn != nil {
		return m.CommitFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastVersion++
	m.lastHash = types.AppHash{0x01, byte(m.lastVersion >> 8), byte(m.lastVersion)}
	return types.CommitResult{Version: m.lastVersion, AppHash: m.lastHash}, nil
}

func (m *MockApp) Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	m.QueryCalls.Add(1)
	if m.QueryFn != nil {
		return m.QueryFn(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.StateQueryResult{Height: m.lastVersion}, nil
}

func (m *MockApp) Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error) {
	if m.SimulateFn != nil {
		return m.SimulateFn(ctx, tx)
	}
	return types.TxOutcome{Code: 0}, nil
}
