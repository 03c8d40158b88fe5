package sdk

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachemulti"
	"github.com/blockberries/appcore/store/mem"
)

func TestAccAddress_Hex(t *testing.T) {
	require := require.New(t)

	addr := ModuleAddress("fee_collector")
	parsed, err := AccAddressFromHex(addr.String())
	require.NoError(err)
	require.Equal(addr, parsed)

	_, err = AccAddressFromHex("abcd")
	require.True(errors.Is(err, appcore.ErrInvalidAddress))
	_, err = AccAddressFromHex("zz")
	require.True(errors.Is(err, appcore.ErrInvalidAddress))
	require.True(AccAddress{}.Empty())
}

func TestCoins(t *testing.T) {
	require := require.New(t)

	coins, err := ParseCoins("30stake,5atom")
	require.NoError(err)
	require.Equal("5atom,30stake", coins.String())
	require.Equal(uint256.NewInt(30), coins.AmountOf("stake"))
	require.True(coins.AmountOf("btc").IsZero())

	_, err = ParseCoins("5atom,6atom")
	require.True(errors.Is(err, appcore.ErrInvalidCoins))
	_, err = ParseCoins("0stake")
	require.True(errors.Is(err, appcore.ErrInvalidCoins))
	_, err = ParseCoin("stake")
	require.Error(err)
	require.Error(Coin{Denom: "stake", Amount: "-1"}.Validate())
	require.Error(Coin{Denom: "S", Amount: "1"}.Validate())

	big := NewCoin(
		"stake",
		new(uint256.Int).Lsh(uint256.NewInt(1), 200),
	)
	require.NoError(big.Validate())
	require.Equal(new(uint256.Int).Lsh(uint256.NewInt(1), 200), big.MustInt())
}

func TestContext_CacheContext(t *testing.T) {
	require := require.New(t)

	key := store.NewKVStoreKey("test")
	parent := mem.New()
	ms := cachemulti.NewStore(map[*store.StoreKey]store.KVStore{key: parent})
	ctx := NewContext(ms, Header{ChainID: "test", Height: 3}, ExecModeDeliver, nil)

	cc, write := ctx.CacheContext()
	cc.KVStore(key).Set([]byte("k"), []byte("v"))
	cc.EventManager().Emit(NewEvent("inner"))
	require.Nil(ctx.KVStore(key).Get([]byte("k")))
	require.Empty(ctx.EventManager().Events())

	write()
	require.Equal([]byte("v"), ctx.KVStore(key).Get([]byte("k")))
	require.Len(ctx.EventManager().Events(), 1)
	require.NotZero(ctx.GasMeter().GasConsumed())
}
