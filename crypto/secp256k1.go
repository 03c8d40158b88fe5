package crypto

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// Secp256k1PubKeySize is the length of a compressed public key.
const Secp256k1PubKeySize = 33

// Secp256k1PubKey is a compressed secp256k1 public key.
type Secp256k1PubKey struct {
	key *btcec.PublicKey
	raw []byte
}

// NewSecp256k1PubKey parses a compressed public key.
func NewSecp256k1PubKey(b []byte) (*Secp256k1PubKey, error) {
	if len(b) != Secp256k1PubKeySize {
		return nil, errors.Wrapf(appcore.ErrInvalidPubKey, "secp256k1 key must be %d bytes, got %d", Secp256k1PubKeySize, len(b))
	}
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(appcore.ErrInvalidPubKey, err.Error())
	}
	return &Secp256k1PubKey{key: key, raw: key.SerializeCompressed()}, nil
}

func (pk *Secp256k1PubKey) Type() types.KeyType { return types.KeyTypeSecp256k1 }

func (pk *Secp256k1PubKey) Bytes() []byte { return pk.raw }

// Address is ripemd160(sha256(compressed key)).
func (pk *Secp256k1PubKey) Address() sdk.AccAddress {
	sha := sha256.Sum256(pk.raw)
	hasher := ripemd160.New()
	hasher.Write(sha[:])
	var addr sdk.AccAddress
	copy(addr[:], hasher.Sum(nil))
	return addr
}

// VerifySignature checks a DER signature over sha256(msg).
func (pk *Secp256k1PubKey) VerifySignature(msg, sig []byte) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	hash := sha256.Sum256(msg)
	return parsed.Verify(hash[:], pk.key)
}

// Secp256k1PrivKey is a secp256k1 private key.
type Secp256k1PrivKey struct {
	key *btcec.PrivateKey
}

// GenSecp256k1 generates a new key.
func GenSecp256k1() (*Secp256k1PrivKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate secp256k1 key")
	}
	return &Secp256k1PrivKey{key: key}, nil
}

// Secp256k1FromSecret derives a key deterministically from a secret. Used
// by tests and local devnets.
func Secp256k1FromSecret(secret []byte) *Secp256k1PrivKey {
	seed := sha256.Sum256(secret)
	key, _ := btcec.PrivKeyFromBytes(seed[:])
	return &Secp256k1PrivKey{key: key}
}

func (sk *Secp256k1PrivKey) Type() types.KeyType { return types.KeyTypeSecp256k1 }

func (sk *Secp256k1PrivKey) Bytes() []byte { return sk.key.Serialize() }

// Sign returns a DER signature over sha256(msg).
func (sk *Secp256k1PrivKey) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	return ecdsa.Sign(sk.key, hash[:]).Serialize(), nil
}

func (sk *Secp256k1PrivKey) PubKey() PubKey {
	pub := sk.key.PubKey()
	return &Secp256k1PubKey{key: pub, raw: pub.SerializeCompressed()}
}
