package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/types"
)

// DefaultChainID is the chain id of DefaultInitChain.
const DefaultChainID = "test-chain"

var _genesisTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Block is the input of one full block cycle.
type Block struct {
	Height   uint64
	Time     types.Timestamp
	Proposer types.ValidatorAddress
	Txs      []types.Tx
}

// BlockResult collects everything one block cycle returned.
type BlockResult struct {
	Begin  types.BeginBlockResponse
	Txs    []types.TxOutcome
	End    types.EndBlockResponse
	Commit types.CommitResult
}

// Harness provides a convenient test harness for application
// developers to drive their implementation through the lifecycle
// state machine. A HaltError fails the test.
type Harness struct {
	t       *testing.T
	srv     *server.Server
	chainID string
}

// NewHarness creates a test harness wrapping the given application.
func NewHarness(t *testing.T, app appcore.Application) *Harness {
	t.Helper()
	h := &Harness{t: t, chainID: DefaultChainID}
	h.srv = server.New(app, server.WithHaltHandler(func(err *appcore.HaltError) {
		t.Errorf("application halted: %v", err)
	}))
	return h
}

// Server returns the underlying server for direct access.
func (h *Harness) Server() *server.Server {
	return h.srv
}

// ChainID returns the chain id blocks are opened with.
func (h *Harness) ChainID() string { return h.chainID }

// Info calls Info.
func (h *Harness) Info() types.InfoResponse {
	h.t.Helper()
	resp, err := h.srv.Info(context.Background())
	if err != nil {
		h.t.Fatalf("Info failed: %v", err)
	}
	if resp.ChainID != "" {
		h.chainID = resp.ChainID
	}
	return resp
}

// InitChain calls Info and then InitChain with req.
func (h *Harness) InitChain(req types.InitChainRequest) types.InitChainResponse {
	h.t.Helper()
	if info := h.Info(); info.LastVersion != 0 {
		h.t.Fatalf("InitChain on an app at version %d", info.LastVersion)
	}
	resp, err := h.srv.InitChain(context.Background(), req)
	if err != nil {
		h.t.Fatalf("InitChain failed: %v", err)
	}
	h.chainID = req.ChainID
	return resp
}

// InitDefault loads the given app state with DefaultInitChain.
func (h *Harness) InitDefault(appState []byte) types.InitChainResponse {
	h.t.Helper()
	return h.InitChain(DefaultInitChain(appState))
}

// BeginBlock opens a block.
func (h *Harness) BeginBlock(b Block) types.BeginBlockResponse {
	h.t.Helper()
	resp, err := h.srv.BeginBlock(context.Background(), types.BeginBlockRequest{
		Height:   b.Height,
		Time:     b.Time,
		Proposer: b.Proposer,
		ChainID:  h.chainID,
	})
	if err != nil {
		h.t.Fatalf("BeginBlock (height=%d) failed: %v", b.Height, err)
	}
	return resp
}

// DeliverTx executes one transaction in the open block.
func (h *Harness) DeliverTx(tx types.Tx) types.TxOutcome {
	h.t.Helper()
	out, err := h.srv.DeliverTx(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("DeliverTx failed: %v", err)
	}
	return out
}

// EndBlock closes the open block.
func (h *Harness) EndBlock(height uint64) types.EndBlockResponse {
	h.t.Helper()
	resp, err := h.srv.EndBlock(context.Background(), types.EndBlockRequest{Height: height})
	if err != nil {
		h.t.Fatalf("EndBlock (height=%d) failed: %v", height, err)
	}
	return resp
}

// Commit commits the closed block.
func (h *Harness) Commit() types.CommitResult {
	h.t.Helper()
	result, err := h.srv.Commit(context.Background())
	if err != nil {
		h.t.Fatalf("Commit failed: %v", err)
	}
	return result
}

// ExecuteBlock runs a full block cycle and commits it.
func (h *Harness) ExecuteBlock(b Block) BlockResult {
	h.t.Helper()
	var res BlockResult
	res.Begin = h.BeginBlock(b)
	for _, tx := range b.Txs {
		res.Txs = append(res.Txs, h.DeliverTx(tx))
	}
	res.End = h.EndBlock(b.Height)
	res.Commit = h.Commit()
	return res
}

// CheckTx submits a transaction for mempool gate-checking.
func (h *Harness) CheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
	if err != nil {
		h.t.Fatalf("CheckTx failed: %v", err)
	}
	return verdict
}

// RecheckTx re-validates a previously admitted transaction.
func (h *Harness) RecheckTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	verdict, err := h.srv.CheckTx(context.Background(), tx, types.MempoolRevalidation)
	if err != nil {
		h.t.Fatalf("RecheckTx failed: %v", err)
	}
	return verdict
}

// Query reads application state at the latest version.
func (h *Harness) Query(path types.QueryPath, data []byte) types.StateQueryResult {
	h.t.Helper()
	return h.QueryRequest(types.StateQuery{Path: path, Data: data})
}

// QueryRequest sends a full query request.
func (h *Harness) QueryRequest(req types.StateQuery) types.StateQueryResult {
	h.t.Helper()
	result, err := h.srv.Query(context.Background(), req)
	if err != nil {
		h.t.Fatalf("Query failed: %v", err)
	}
	return result
}

// Simulate dry-runs a transaction.
func (h *Harness) Simulate(tx types.Tx) types.TxOutcome {
	h.t.Helper()
	out, err := h.srv.Simulate(context.Background(), tx)
	if err != nil {
		h.t.Fatalf("Simulate failed: %v", err)
	}
	return out
}

// MustAcceptTx asserts that a transaction is accepted.
func (h *Harness) MustAcceptTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	v := h.CheckTx(tx)
	if !v.Accepted() {
		h.t.Fatalf("expected tx accepted, got code=%d info=%q", v.Code, v.Info)
	}
	return v
}

// MustRejectTx asserts that a transaction is rejected.
func (h *Harness) MustRejectTx(tx types.Tx) types.GateVerdict {
	h.t.Helper()
	v := h.CheckTx(tx)
	if v.Accepted() {
		h.t.Fatal("expected tx rejected, got accepted")
	}
	return v
}

// --- Helper Factories ---

// DefaultInitChain returns a minimal genesis request suitable for
// testing, carrying appState.
func DefaultInitChain(appState []byte) types.InitChainRequest {
	return types.InitChainRequest{
		ChainID:       DefaultChainID,
		GenesisTime:   types.TimeToTimestamp(_genesisTime),
		InitialHeight: 1,
		ConsensusParams: types.ConsensusParams{
			MaxBlockBytes: 1024 * 1024, // 1 MiB
			MaxTxBytes:    64 * 1024,   // 64 KiB
		},
		AppState: appState,
	}
}

// MakeBlock creates a block at the given height with the provided
// transactions. Block time advances five seconds per height.
func MakeBlock(height uint64, txs ...types.Tx) Block {
	t := _genesisTime.Add(time.Duration(height) * 5 * time.Second)
	return Block{
		Height: height,
		Time:   types.TimeToTimestamp(t),
		Txs:    txs,
	}
}

// MakeEmptyBlock creates an empty block at the given height.
func MakeEmptyBlock(height uint64) Block {
	return MakeBlock(height)
}
