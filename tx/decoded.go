package tx

import (
	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
)

// MsgDecoder turns an Any into a concrete message.
type MsgDecoder interface {
	DecodeMsg(msgAny Any) (sdk.Msg, error)
}

// Decoded is a transaction after decoding. It is never mutated.
type Decoded struct {
	Tx   Tx
	Msgs []sdk.Msg
	Size int
}

var _ sdk.Tx = (*Decoded)(nil)

// Decode parses raw bytes into a transaction, decoding every message with
// dec. Any failure is an ErrTxDecode or ErrUnknownRequest.
func Decode(raw []byte, dec MsgDecoder) (*Decoded, error) {
	if len(raw) == 0 {
		return nil, appcore.ErrTxDecode.Wrap("empty tx")
	}
	var t Tx
	if err := cramberry.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrap(appcore.ErrTxDecode, err.Error())
	}
	if len(t.Body.Msgs) == 0 {
		return nil, appcore.ErrInvalidRequest.Wrap("tx contains no messages")
	}
	msgs := make([]sdk.Msg, 0, len(t.Body.Msgs))
	for _, msgAny := range t.Body.Msgs {
		msg, err := dec.DecodeMsg(msgAny)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return &Decoded{Tx: t, Msgs: msgs, Size: len(raw)}, nil
}

// GetMsgs implements sdk.Tx.
func (d *Decoded) GetMsgs() []sdk.Msg { return d.Msgs }

// Fee returns the fee declared by the signer.
func (d *Decoded) Fee() Fee { return d.Tx.AuthInfo.Fee }

// Signer returns the signer info.
func (d *Decoded) Signer() SignerInfo { return d.Tx.AuthInfo.Signer }

// Memo returns the memo.
func (d *Decoded) Memo() string { return d.Tx.Body.Memo }

// SignBytes returns the bytes the signature must cover.
func (d *Decoded) SignBytes(chainID string, accountNumber uint64) ([]byte, error) {
	return SignBytes(chainID, accountNumber, d.Tx.Body, d.Tx.AuthInfo)
}

// ValidateBasic runs the stateless checks of the envelope and every
// message. A missing signature is reported last.
func (d *Decoded) ValidateBasic() error {
	fee := d.Fee()
	if fee.GasLimit == 0 {
		return appcore.ErrInvalidGasLimit.Wrap("gas limit must be positive")
	}
	if fee.Amount.Denom != "" || fee.Amount.Amount != "" {
		if err := fee.Amount.Validate(); err != nil {
			return errors.Wrap(appcore.ErrInsufficientFee, err.Error())
		}
	}
	for _, msg := range d.Msgs {
		if err := msg.ValidateBasic(); err != nil {
			return err
		}
	}
	if len(d.Tx.Signature) == 0 {
		return appcore.ErrNoSignatures.Wrap("tx is not signed")
	}
	return nil
}
