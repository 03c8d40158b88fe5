package tx_test

import (
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/crypto"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/x/bank"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, registry.RegisterMsg[bank.MsgSend](r, func(sdk.Context, sdk.Msg) (*sdk.Result, error) {
		return &sdk.Result{}, nil
	}))
	return r
}

func TestBuilder_SignAndDecode(t *testing.T) {
	require := require.New(t)
	key := crypto.Ed25519FromSecret([]byte("alice"))
	from := key.PubKey().Address()
	to := crypto.Ed25519FromSecret([]byte("bob")).PubKey().Address()

	send := &bank.MsgSend{FromAddress: from, ToAddress: to, Amount: sdk.Coins{sdk.NewCoin64("stake", 7)}}
	b := tx.NewBuilder()
	require.NoError(b.AddMsg(send))
	b.SetMemo("hello").
		SetTimeoutHeight(9).
		SetFee(sdk.NewCoin64("stake", 1), 50000).
		SetSigner(tx.SignerInfo{PubKey: crypto.ToProto(key.PubKey()), Sequence: 3})
	raw, err := b.Sign(key, "chain-a", 4)
	require.NoError(err)

	decoded, err := tx.Decode(raw, newRegistry(t))
	require.NoError(err)
	require.Equal(len(raw), decoded.Size)
	require.Equal("hello", decoded.Memo())
	require.Equal(uint64(3), decoded.Signer().Sequence)
	require.Equal(uint64(50000), decoded.Fee().GasLimit)
	require.Len(decoded.GetMsgs(), 1)
	require.Equal(send, decoded.GetMsgs()[0])
	require.NoError(decoded.ValidateBasic())

	signBytes, err := decoded.SignBytes("chain-a", 4)
	require.NoError(err)
	require.True(key.PubKey().VerifySignature(signBytes, decoded.Tx.Signature))

	// The signature binds the chain and the account number.
	other, err := decoded.SignBytes("chain-b", 4)
	require.NoError(err)
	require.False(key.PubKey().VerifySignature(other, decoded.Tx.Signature))
	other, err = decoded.SignBytes("chain-a", 5)
	require.NoError(err)
	require.False(key.PubKey().VerifySignature(other, decoded.Tx.Signature))
}

func TestDecode_Errors(t *testing.T) {
	r := newRegistry(t)

	_, err := tx.Decode(nil, r)
	require.True(t, errors.Is(err, appcore.ErrTxDecode), "%v", err)

	signed := tx.Tx{Body: tx.Body{Memo: "truncated"}, Signature: make([]byte, 64)}
	raw, err := signed.Encode()
	require.NoError(t, err)
	_, err = tx.Decode(raw[:len(raw)-1], r)
	require.True(t, errors.Is(err, appcore.ErrTxDecode), "%v", err)

	empty := tx.Tx{Signature: []byte{1}}
	raw, err = empty.Encode()
	require.NoError(t, err)
	_, err = tx.Decode(raw, r)
	require.True(t, errors.Is(err, appcore.ErrInvalidRequest), "%v", err)

	unknown := tx.Tx{Body: tx.Body{Msgs: []tx.Any{{TypeURL: "/nope.Msg", Value: []byte{1}}}}}
	raw, err = unknown.Encode()
	require.NoError(t, err)
	_, err = tx.Decode(raw, r)
	require.True(t, errors.Is(err, appcore.ErrUnknownRequest), "%v", err)
}

func TestDecoded_ValidateBasic(t *testing.T) {
	key := crypto.Ed25519FromSecret([]byte("alice"))
	addr := key.PubKey().Address()
	r := newRegistry(t)

	build := func(fee sdk.Coin, gas uint64, amount sdk.Coins, sign bool) *tx.Decoded {
		t.Helper()
		bz, err := cramberry.Marshal(&bank.MsgSend{FromAddress: addr, ToAddress: addr, Amount: amount})
		require.NoError(t, err)
		envelope := tx.Tx{
			Body:     tx.Body{Msgs: []tx.Any{{TypeURL: (&bank.MsgSend{}).TypeURL(), Value: bz}}},
			AuthInfo: tx.AuthInfo{Fee: tx.Fee{Amount: fee, GasLimit: gas}},
		}
		if sign {
			envelope.Signature = []byte("sig")
		}
		raw, err := envelope.Encode()
		require.NoError(t, err)
		d, err := tx.Decode(raw, r)
		require.NoError(t, err)
		return d
	}
	coins := sdk.Coins{sdk.NewCoin64("stake", 1)}

	require.NoError(t, build(sdk.NewCoin64("stake", 1), 1000, coins, true).ValidateBasic())
	require.NoError(t, build(sdk.Coin{}, 1000, coins, true).ValidateBasic())

	tests := []struct {
		name string
		d    *tx.Decoded
		want error
	}{
		{"zero gas", build(sdk.NewCoin64("stake", 1), 0, coins, true), appcore.ErrInvalidGasLimit},
		{"bad fee", build(sdk.Coin{Denom: "s", Amount: "x"}, 1000, coins, true), appcore.ErrInsufficientFee},
		{"bad msg", build(sdk.Coin{}, 1000, nil, true), appcore.ErrInvalidCoins},
		{"unsigned", build(sdk.Coin{}, 1000, coins, false), appcore.ErrNoSignatures},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.ValidateBasic()
			require.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}
