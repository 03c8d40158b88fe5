package distribution

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/testutil"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/auth"
	"github.com/blockberries/appcore/x/bank"
)

func TestAllocateFees(t *testing.T) {
	require := require.New(t)

	authKey := store.NewKVStoreKey(auth.ModuleName)
	bankKey := store.NewKVStoreKey(bank.ModuleName)
	distKey := store.NewKVStoreKey(ModuleName)
	bk := bank.NewKeeper(bankKey, auth.NewKeeper(authKey))
	k := NewKeeper(distKey, bk, "fee_collector")
	am := NewAppModule(k)
	base := testutil.NewContext(authKey, bankKey, distKey)

	withProposer := func(p byte) sdk.Context {
		h := base.Header()
		h.Proposer = types.ValidatorAddress{p}
		return base.WithEventManager(sdk.NewEventManager()).WithHeader(h)
	}

	// First block: nothing recorded yet, so nothing is paid.
	require.NoError(bk.MintCoins(base, sdk.ModuleAddress("fee_collector"), sdk.Coins{sdk.NewCoin64("stake", 7)}))
	ctx := withProposer(1)
	require.NoError(am.BeginBlock(ctx))
	require.Empty(ctx.EventManager().Events())
	prev, ok := k.PreviousProposer(ctx)
	require.True(ok)
	require.Equal(types.ValidatorAddress{1}, prev)

	// Second block pays proposer 1 and records proposer 2.
	ctx = withProposer(2)
	require.NoError(am.BeginBlock(ctx))
	require.Equal(uint256.NewInt(7), bk.GetBalance(ctx, sdk.AccAddress{1}, "stake"))
	require.True(bk.GetBalance(ctx, sdk.ModuleAddress("fee_collector"), "stake").IsZero())
	events := ctx.EventManager().Events()
	require.Equal(EventTypeProposerReward, events[len(events)-1].Kind)

	// Nothing collected: no reward event.
	ctx = withProposer(3)
	require.NoError(am.BeginBlock(ctx))
	require.Empty(ctx.EventManager().Events())
}
