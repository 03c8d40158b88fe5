package sdk

import "github.com/blockberries/appcore/types"

// Msg is one instruction inside a transaction. Messages are immutable once
// decoded.
type Msg interface {
	// TypeURL identifies the message type, e.g. "/bank.MsgSend". It is the
	// routing key in the registry.
	TypeURL() string
	// ValidateBasic runs stateless checks.
	ValidateBasic() error
	// Signers returns the accounts that must authorize the message.
	Signers() []AccAddress
}

// Tx is a decoded transaction as seen by the pre-processing pipeline.
type Tx interface {
	GetMsgs() []Msg
}

// Result is the successful outcome of a message handler.
type Result struct {
	Data   []byte
	Events []types.Event
}

// Handler executes one message against the scope carried by ctx. A
// returned error aborts the transaction and discards its handler effects.
type Handler func(ctx Context, msg Msg) (*Result, error)

// Querier answers a query routed to a module. path is the query path with
// the module name removed.
type Querier func(ctx Context, path []string, req types.StateQuery) ([]byte, error)
