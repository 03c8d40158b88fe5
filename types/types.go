// Package types defines the request and response types exchanged between
// a consensus engine and the application core.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import "encoding/hex"

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application
// state after a commit.
type AppHash [32]byte

// String returns the hex encoding of the hash.
func (h AppHash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether the hash is unset.
func (h AppHash) IsZero() bool { return h == AppHash{} }

// Tx is an opaque application transaction.
// The consensus engine never inspects its contents.
type Tx []byte

// QueryPath is a structured key for state queries
// (e.g., "/bank/balance/<address>/<denom>").
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}
