package appgrpc

import "github.com/blockberries/appcore/types"

// Transport-specific wrapper types for RPC methods whose interface
// signatures don't map to a single request/response struct.

// InfoRequest is the (empty) request for Info.
type InfoRequest struct{}

// CheckTxRequest wraps the parameters for CheckTx.
type CheckTxRequest struct {
	Tx      types.Tx             `cramberry:"1"`
	Context types.MempoolContext `cramberry:"2"`
}

// DeliverTxRequest wraps the parameter for DeliverTx.
type DeliverTxRequest struct {
	Tx types.Tx `cramberry:"1"`
}

// CommitRequest is the (empty) request for Commit.
type CommitRequest struct{}

// SimulateRequest wraps the parameter for Simulate.
type SimulateRequest struct {
	Tx types.Tx `cramberry:"1"`
}
