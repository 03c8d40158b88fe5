package types

// ConsensusParams contains consensus-critical parameters
// the application can request to change.
type ConsensusParams struct {
	MaxBlockBytes uint64 `cramberry:"1"`
	MaxTxBytes    uint64 `cramberry:"2"`
	// Total gas all transactions of a block may consume. 0 = unlimited.
	MaxGas uint64 `cramberry:"3"`
}
