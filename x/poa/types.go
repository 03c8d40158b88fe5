// Package poa manages a proof-of-authority validator set: a single
// authority account adds, reweights and removes validators, and the
// changes reach the consensus engine at end of block.
package poa

import (
	"encoding/hex"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/crypto"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// ModuleName is the module name, store name and query route.
const ModuleName = "poa"

// QueryValidators is the query path of the current set.
const QueryValidators = "validators"

// EventTypeSetValidator is emitted when an update is queued.
const EventTypeSetValidator = "set_validator"

// MsgSetValidator queues a validator update. Power 0 removes the
// validator.
type MsgSetValidator struct {
	Authority sdk.AccAddress  `cramberry:"1"`
	PubKey    types.PublicKey `cramberry:"2"`
	Power     uint64          `cramberry:"3"`
}

var _ sdk.Msg = (*MsgSetValidator)(nil)

// TypeURL implements sdk.Msg.
func (*MsgSetValidator) TypeURL() string { return "/poa.MsgSetValidator" }

// ValidateBasic implements sdk.Msg.
func (m *MsgSetValidator) ValidateBasic() error {
	if m.Authority.Empty() {
		return appcore.ErrInvalidAddress.Wrap("missing authority")
	}
	_, err := crypto.PubKeyFromProto(m.PubKey)
	return err
}

// Signers implements sdk.Msg.
func (m *MsgSetValidator) Signers() []sdk.AccAddress { return []sdk.AccAddress{m.Authority} }

// Validator is one member of the set.
type Validator struct {
	Address types.ValidatorAddress `cramberry:"1"`
	PubKey  types.PublicKey        `cramberry:"2"`
	Power   uint64                 `cramberry:"3"`
}

// ValidatorsResponse answers /poa/validators.
type ValidatorsResponse struct {
	Validators []Validator `cramberry:"1"`
}

// GenesisValidator is a validator listed in genesis. The key is hex.
type GenesisValidator struct {
	KeyType string `json:"key_type"`
	PubKey  string `json:"pub_key"`
	Power   uint64 `json:"power"`
}

// PublicKey decodes the wire form of the key.
func (gv GenesisValidator) PublicKey() (types.PublicKey, error) {
	var pk types.PublicKey
	switch gv.KeyType {
	case "ed25519":
		pk.Type = types.KeyTypeEd25519
	case "secp256k1":
		pk.Type = types.KeyTypeSecp256k1
	default:
		return pk, appcore.ErrInvalidPubKey.Wrapf("unknown key type %q", gv.KeyType)
	}
	data, err := hex.DecodeString(gv.PubKey)
	if err != nil {
		return pk, appcore.ErrInvalidPubKey.Wrapf("%q: %v", gv.PubKey, err)
	}
	pk.Data = data
	if _, err := crypto.PubKeyFromProto(pk); err != nil {
		return pk, err
	}
	return pk, nil
}

// GenesisState is the module's genesis.
type GenesisState struct {
	Authority  string             `json:"authority"`
	Validators []GenesisValidator `json:"validators"`
}
