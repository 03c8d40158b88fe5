package types

// BeginBlockRequest opens block Height.
type BeginBlockRequest struct {
	Height        uint64           `cramberry:"1"`
	Time          Timestamp        `cramberry:"2"`
	Proposer      ValidatorAddress `cramberry:"3"`
	ChainID       string           `cramberry:"4"`
	LastBlockHash Hash             `cramberry:"5"`
}

// BeginBlockResponse carries events emitted by begin-block hooks.
type BeginBlockResponse struct {
	Events []Event `cramberry:"1"`
}

// TxOutcome is the result of executing a single transaction.
type TxOutcome struct {
	// Application-defined result code. 0 = success.
	Code uint32 `cramberry:"1"`
	// Namespace of Code; codes are only unique within a codespace.
	Codespace string `cramberry:"2"`
	// Human-readable result log (non-deterministic, for debugging).
	Log string `cramberry:"3"`
	// Application-defined data returned from execution (deterministic).
	Data []byte `cramberry:"4"`
	// Gas limit requested by the transaction.
	GasWanted uint64 `cramberry:"5"`
	// Gas actually consumed, including pre-processing.
	GasUsed uint64 `cramberry:"6"`
	// Events emitted by this transaction. When Code != 0 only the
	// pre-processing events (fee deduction) remain.
	Events []Event `cramberry:"7"`
}

// OK returns true if the transaction executed successfully.
func (t TxOutcome) OK() bool { return t.Code == 0 }

// EndBlockRequest closes block Height.
type EndBlockRequest struct {
	Height uint64 `cramberry:"1"`
}

// EndBlockResponse carries the block-level changes produced by
// end-block hooks.
type EndBlockResponse struct {
	// Changes to the validator set. Empty slice = no change.
	ValidatorUpdates []ValidatorUpdate `cramberry:"1"`
	// Changes to consensus params. Nil = no change.
	ParamsUpdate *ConsensusParams `cramberry:"2"`
	Events       []Event          `cramberry:"3"`
}

// CommitResult is returned after the application persists
// state to disk.
type CommitResult struct {
	// Version written by this commit. Strictly increasing.
	Version uint64 `cramberry:"1"`
	// Root hash over every sub-store at Version.
	AppHash AppHash `cramberry:"2"`
	// Minimum height the app still needs for queries / proofs.
	// The engine may prune blocks below this. 0 = no pruning preference.
	RetainHeight uint64 `cramberry:"3"`
}
