// Package crypto provides the account key types: secp256k1 and ed25519.
package crypto

import (
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// PubKey verifies signatures and derives the account address.
type PubKey interface {
	Type() types.KeyType
	Bytes() []byte
	Address() sdk.AccAddress
	VerifySignature(msg, sig []byte) bool
}

// PrivKey signs messages.
type PrivKey interface {
	Type() types.KeyType
	Bytes() []byte
	Sign(msg []byte) ([]byte, error)
	PubKey() PubKey
}

// PubKeyFromProto decodes the wire form of a public key.
func PubKeyFromProto(pk types.PublicKey) (PubKey, error) {
	switch pk.Type {
	case types.KeyTypeSecp256k1:
		return NewSecp256k1PubKey(pk.Data)
	case types.KeyTypeEd25519:
		return NewEd25519PubKey(pk.Data)
	default:
		return nil, errors.Wrapf(appcore.ErrInvalidPubKey, "unsupported key type %d", pk.Type)
	}
}

// ToProto returns the wire form of a public key.
func ToProto(pk PubKey) types.PublicKey {
	return types.PublicKey{Type: pk.Type(), Data: pk.Bytes()}
}

// GenPrivKey generates a key of the given type.
func GenPrivKey(kt types.KeyType) (PrivKey, error) {
	switch kt {
	case types.KeyTypeSecp256k1:
		return GenSecp256k1()
	case types.KeyTypeEd25519:
		return GenEd25519()
	default:
		return nil, errors.Errorf("unsupported key type %d", kt)
	}
}
