package types

// InitChainRequest is the one-time genesis load.
type InitChainRequest struct {
	ChainID         string            `cramberry:"1"`
	GenesisTime     Timestamp         `cramberry:"2"`
	InitialHeight   uint64            `cramberry:"3"`
	ConsensusParams ConsensusParams   `cramberry:"4"`
	Validators      []ValidatorUpdate `cramberry:"5"`
	// Application-specific genesis state (JSON).
	AppState []byte `cramberry:"6"`
}

// InitChainResponse reports the genesis root and the validator set the
// application wants consensus to start with.
type InitChainResponse struct {
	AppHash AppHash `cramberry:"1"`
	// If non-empty, replaces the validators from the request.
	Validators      []ValidatorUpdate `cramberry:"2"`
	ConsensusParams *ConsensusParams  `cramberry:"3"`
}
