package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"

	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// Ed25519PubKey is an ed25519 public key.
type Ed25519PubKey struct {
	key ed25519.PublicKey
}

// NewEd25519PubKey wraps a raw public key.
func NewEd25519PubKey(b []byte) (*Ed25519PubKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(appcore.ErrInvalidPubKey, "ed25519 key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return &Ed25519PubKey{key: append(ed25519.PublicKey(nil), b...)}, nil
}

func (pk *Ed25519PubKey) Type() types.KeyType { return types.KeyTypeEd25519 }

func (pk *Ed25519PubKey) Bytes() []byte { return pk.key }

// Address is the first 20 bytes of sha256(key).
func (pk *Ed25519PubKey) Address() sdk.AccAddress {
	sum := sha256.Sum256(pk.key)
	var addr sdk.AccAddress
	copy(addr[:], sum[:sdk.AddrLen])
	return addr
}

func (pk *Ed25519PubKey) VerifySignature(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pk.key, msg, sig)
}

// Ed25519PrivKey is an ed25519 private key.
type Ed25519PrivKey struct {
	key ed25519.PrivateKey
}

// GenEd25519 generates a new key.
func GenEd25519() (*Ed25519PrivKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ed25519 key")
	}
	return &Ed25519PrivKey{key: key}, nil
}

// Ed25519FromSecret derives a key deterministically from a secret.
func Ed25519FromSecret(secret []byte) *Ed25519PrivKey {
	seed := sha256.Sum256(secret)
	return &Ed25519PrivKey{key: ed25519.NewKeyFromSeed(seed[:])}
}

func (sk *Ed25519PrivKey) Type() types.KeyType { return types.KeyTypeEd25519 }

func (sk *Ed25519PrivKey) Bytes() []byte { return sk.key }

func (sk *Ed25519PrivKey) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(sk.key, msg), nil
}

func (sk *Ed25519PrivKey) PubKey() PubKey {
	return &Ed25519PubKey{key: sk.key.Public().(ed25519.PublicKey)}
}
