// Package tx defines the transaction envelope, its sign bytes and the
// builder used by clients and tests.
package tx

import (
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// Any carries one encoded message tagged with its type URL.
type Any struct {
	TypeURL string `cramberry:"1"`
	Value   []byte `cramberry:"2"`
}

// Body holds the messages and the memo.
type Body struct {
	Msgs []Any  `cramberry:"1"`
	Memo string `cramberry:"2"`
	// TimeoutHeight rejects the tx in blocks above it. 0 = no timeout.
	TimeoutHeight uint64 `cramberry:"3"`
}

// SignerInfo identifies the single signer and the sequence it signed at.
type SignerInfo struct {
	PubKey   types.PublicKey `cramberry:"1"`
	Sequence uint64          `cramberry:"2"`
}

// Fee is paid by the signer whether or not the messages succeed.
type Fee struct {
	Amount   sdk.Coin `cramberry:"1"`
	GasLimit uint64   `cramberry:"2"`
}

// AuthInfo holds everything the pre-processing pipeline checks.
type AuthInfo struct {
	Signer SignerInfo `cramberry:"1"`
	Fee    Fee        `cramberry:"2"`
}

// Tx is the signed transaction envelope.
type Tx struct {
	Body      Body     `cramberry:"1"`
	AuthInfo  AuthInfo `cramberry:"2"`
	Signature []byte   `cramberry:"3"`
}

// SignDoc is what the signer signs. The account number binds the
// signature to one account incarnation; the chain ID to one chain.
type SignDoc struct {
	ChainID       string   `cramberry:"1"`
	AccountNumber uint64   `cramberry:"2"`
	Body          Body     `cramberry:"3"`
	AuthInfo      AuthInfo `cramberry:"4"`
}

// SignBytes returns the canonical bytes to sign.
func SignBytes(chainID string, accountNumber uint64, body Body, authInfo AuthInfo) ([]byte, error) {
	bz, err := cramberry.Marshal(SignDoc{
		ChainID:       chainID,
		AccountNumber: accountNumber,
		Body:          body,
		AuthInfo:      authInfo,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode sign doc")
	}
	return bz, nil
}

// Encode serializes the envelope.
func (t *Tx) Encode() ([]byte, error) {
	bz, err := cramberry.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tx")
	}
	return bz, nil
}
