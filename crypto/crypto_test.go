package crypto

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/types"
)

func TestSignVerify(t *testing.T) {
	for _, kt := range []types.KeyType{types.KeyTypeSecp256k1, types.KeyTypeEd25519} {
		require := require.New(t)

		sk, err := GenPrivKey(kt)
		require.NoError(err)
		msg := []byte("sign doc")
		sig, err := sk.Sign(msg)
		require.NoError(err)

		pk, err := PubKeyFromProto(ToProto(sk.PubKey()))
		require.NoError(err)
		require.True(pk.VerifySignature(msg, sig))
		require.False(pk.VerifySignature([]byte("other doc"), sig))
		require.False(pk.VerifySignature(msg, sig[:len(sig)-1]))
		require.Equal(sk.PubKey().Address(), pk.Address())
	}
}

func TestDeterministicKeys(t *testing.T) {
	require := require.New(t)

	a := Secp256k1FromSecret([]byte("alice"))
	b := Secp256k1FromSecret([]byte("alice"))
	require.Equal(a.PubKey().Address(), b.PubKey().Address())
	require.NotEqual(a.PubKey().Address(), Secp256k1FromSecret([]byte("bob")).PubKey().Address())

	e := Ed25519FromSecret([]byte("alice"))
	require.NotEqual(a.PubKey().Address(), e.PubKey().Address())
}

func TestPubKeyFromProto_Invalid(t *testing.T) {
	_, err := PubKeyFromProto(types.PublicKey{Type: types.KeyTypeSecp256k1, Data: []byte{1, 2}})
	require.True(t, errors.Is(err, appcore.ErrInvalidPubKey))
	_, err = PubKeyFromProto(types.PublicKey{Type: 9})
	require.True(t, errors.Is(err, appcore.ErrInvalidPubKey))
}
