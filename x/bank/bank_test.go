package bank

import (
	"encoding/json"
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/testutil"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/auth"
)

type fixture struct {
	ctx  sdk.Context
	ak   auth.Keeper
	k    Keeper
	am   AppModule
	reg  *registry.Registry
	addr sdk.AccAddress
}

func setup(t *testing.T) *fixture {
	t.Helper()
	authKey := store.NewKVStoreKey(auth.ModuleName)
	bankKey := store.NewKVStoreKey(ModuleName)
	ak := auth.NewKeeper(authKey)
	k := NewKeeper(bankKey, ak)
	f := &fixture{
		ctx:  testutil.NewContext(authKey, bankKey),
		ak:   ak,
		k:    k,
		am:   NewAppModule(k),
		reg:  registry.New(),
		addr: sdk.AccAddress{0xa},
	}
	require.NoError(t, f.am.RegisterServices(f.reg))
	require.NoError(t, k.MintCoins(f.ctx, f.addr, coins(t, "100stake")))
	return f
}

func coins(t *testing.T, s string) sdk.Coins {
	t.Helper()
	c, err := sdk.ParseCoins(s)
	require.NoError(t, err)
	return c
}

func TestKeeper_SendCoins(t *testing.T) {
	require := require.New(t)
	f := setup(t)
	to := sdk.AccAddress{0xb}

	require.False(f.ak.HasAccount(f.ctx, to))
	require.NoError(f.k.SendCoins(f.ctx, f.addr, to, coins(t, "30stake")))
	require.Equal(uint256.NewInt(70), f.k.GetBalance(f.ctx, f.addr, "stake"))
	require.Equal(uint256.NewInt(30), f.k.GetBalance(f.ctx, to, "stake"))
	require.True(f.ak.HasAccount(f.ctx, to))
	require.Equal(uint256.NewInt(100), f.k.GetSupply(f.ctx, "stake"))

	err := f.k.SendCoins(f.ctx, f.addr, to, coins(t, "1000stake"))
	require.True(errors.Is(err, appcore.ErrInsufficientFunds))
	require.Equal(uint256.NewInt(70), f.k.GetBalance(f.ctx, f.addr, "stake"))
}

func TestKeeper_SendCoins_MultiDenomAllOrNothing(t *testing.T) {
	require := require.New(t)
	f := setup(t)
	require.NoError(f.k.MintCoins(f.ctx, f.addr, coins(t, "5atom")))

	err := f.k.SendCoins(f.ctx, f.addr, sdk.AccAddress{0xc}, coins(t, "6atom,10stake"))
	require.True(errors.Is(err, appcore.ErrInsufficientFunds))
	require.Equal(uint256.NewInt(100), f.k.GetBalance(f.ctx, f.addr, "stake"))
	require.Equal("5atom,100stake", f.k.GetAllBalances(f.ctx, f.addr).String())
}

func TestKeeper_ModuleAccounts(t *testing.T) {
	require := require.New(t)
	f := setup(t)

	require.NoError(f.k.SendCoinsFromAccountToModule(f.ctx, f.addr, "fee_collector", coins(t, "10stake")))
	require.Equal(uint256.NewInt(10), f.k.GetBalance(f.ctx, sdk.ModuleAddress("fee_collector"), "stake"))
	require.NoError(f.k.SendCoinsFromModuleToAccount(f.ctx, "fee_collector", f.addr, coins(t, "10stake")))
	require.Equal(uint256.NewInt(100), f.k.GetBalance(f.ctx, f.addr, "stake"))
}

func TestHandler_MsgSend(t *testing.T) {
	require := require.New(t)
	f := setup(t)

	msg := &MsgSend{FromAddress: f.addr, ToAddress: sdk.AccAddress{0xd}, Amount: coins(t, "1stake")}
	require.NoError(msg.ValidateBasic())
	require.Equal([]sdk.AccAddress{f.addr}, msg.Signers())

	h, err := f.reg.Route(msg.TypeURL())
	require.NoError(err)
	_, err = h(f.ctx, msg)
	require.NoError(err)

	events := f.ctx.EventManager().Events()
	require.Equal(EventTypeTransfer, events[len(events)-2].Kind)
	require.Equal(sdk.EventTypeMessage, events[len(events)-1].Kind)

	require.True(errors.Is((&MsgSend{ToAddress: f.addr, Amount: msg.Amount}).ValidateBasic(), appcore.ErrInvalidAddress))
	require.True(errors.Is((&MsgSend{FromAddress: f.addr, ToAddress: f.addr}).ValidateBasic(), appcore.ErrInvalidCoins))
}

func TestModule_GenesisAndQuery(t *testing.T) {
	require := require.New(t)
	f := setup(t)

	exported, err := f.am.ExportGenesis(f.ctx)
	require.NoError(err)
	var gs GenesisState
	require.NoError(json.Unmarshal(exported, &gs))
	require.Len(gs.Balances, 1)
	require.Equal(f.addr.String(), gs.Balances[0].Address)
	require.NoError(f.am.ValidateGenesis(exported))
	require.NoError(f.am.ValidateGenesis(f.am.DefaultGenesis()))
	require.Error(f.am.ValidateGenesis(json.RawMessage(`{"balances":[{"address":"00","coins":[]}]}`)))

	q, ok := f.reg.QueryRoute(ModuleName)
	require.True(ok)

	bz, err := q(f.ctx, []string{QueryBalance, f.addr.String(), "stake"}, types.StateQuery{})
	require.NoError(err)
	var c sdk.Coin
	require.NoError(cramberry.Unmarshal(bz, &c))
	require.Equal("100", c.Amount)

	bz, err = q(f.ctx, []string{QueryBalances, f.addr.String()}, types.StateQuery{})
	require.NoError(err)
	var all BalancesResponse
	require.NoError(cramberry.Unmarshal(bz, &all))
	require.Equal("100stake", all.Balances.String())

	bz, err = q(f.ctx, []string{QuerySupply, "stake"}, types.StateQuery{})
	require.NoError(err)
	require.NoError(cramberry.Unmarshal(bz, &c))
	require.Equal("100", c.Amount)

	_, err = q(f.ctx, []string{QueryBalance, f.addr.String()}, types.StateQuery{})
	require.True(errors.Is(err, appcore.ErrInvalidRequest))
}
