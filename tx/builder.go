package tx

import (
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore/sdk"
)

// Signer is the subset of a private key the builder needs.
type Signer interface {
	Sign(msg []byte) ([]byte, error)
}

// Builder assembles and signs a transaction.
type Builder struct {
	body     Body
	authInfo AuthInfo
}

// NewBuilder starts an empty transaction.
func NewBuilder() *Builder { return &Builder{} }

// AddMsg appends a message. The message is encoded with cramberry under its
// type URL.
func (b *Builder) AddMsg(msg sdk.Msg) error {
	bz, err := cramberry.Marshal(msg)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", msg.TypeURL())
	}
	b.body.Msgs = append(b.body.Msgs, Any{TypeURL: msg.TypeURL(), Value: bz})
	return nil
}

// SetMemo sets the memo.
func (b *Builder) SetMemo(memo string) *Builder {
	b.body.Memo = memo
	return b
}

// SetTimeoutHeight sets the last height the tx may be included at.
func (b *Builder) SetTimeoutHeight(height uint64) *Builder {
	b.body.TimeoutHeight = height
	return b
}

// SetFee sets the fee and the gas limit.
func (b *Builder) SetFee(amount sdk.Coin, gasLimit uint64) *Builder {
	b.authInfo.Fee = Fee{Amount: amount, GasLimit: gasLimit}
	return b
}

// SetSigner sets the signer's public key and sequence.
func (b *Builder) SetSigner(info SignerInfo) *Builder {
	b.authInfo.Signer = info
	return b
}

// Sign signs the transaction and returns its encoding.
func (b *Builder) Sign(signer Signer, chainID string, accountNumber uint64) ([]byte, error) {
	signBytes, err := SignBytes(chainID, accountNumber, b.body, b.authInfo)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(signBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign tx")
	}
	t := Tx{Body: b.body, AuthInfo: b.authInfo, Signature: sig}
	return t.Encode()
}
