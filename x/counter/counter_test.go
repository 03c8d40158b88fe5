package counter

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/testutil"
	"github.com/blockberries/appcore/types"
)

func TestCounter(t *testing.T) {
	key := store.NewKVStoreKey(ModuleName)
	am := NewAppModule(NewKeeper(key))
	ctx := testutil.NewContext(key)
	r := registry.New()
	require.NoError(t, am.RegisterServices(r))

	_, err := am.InitGenesis(ctx, []byte(`{"count":5}`))
	require.NoError(t, err)

	h, err := r.Route((&MsgIncrement{}).TypeURL())
	require.NoError(t, err)
	res, err := h(ctx, &MsgIncrement{Sender: sdk.AccAddress{1}, By: 3})
	require.NoError(t, err)
	require.Equal(t, uint64(8), binary.BigEndian.Uint64(res.Data))

	events := ctx.EventManager().Events()
	require.Len(t, events, 1)
	require.Equal(t, "8", events[0].Attributes[1].Value)

	q, ok := r.QueryRoute(ModuleName)
	require.True(t, ok)
	bz, err := q(ctx, []string{"count"}, types.StateQuery{})
	require.NoError(t, err)
	require.Equal(t, uint64(8), binary.BigEndian.Uint64(bz))

	_, err = h(ctx, &MsgIncrement{Sender: sdk.AccAddress{1}, By: ^uint64(0)})
	require.True(t, errors.Is(err, appcore.ErrInvalidRequest))

	exported, err := am.ExportGenesis(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"count":8}`, string(exported))
}

func TestMsgIncrement_ValidateBasic(t *testing.T) {
	require.True(t, errors.Is((&MsgIncrement{By: 1}).ValidateBasic(), appcore.ErrInvalidAddress))
	require.True(t, errors.Is((&MsgIncrement{Sender: sdk.AccAddress{1}}).ValidateBasic(), appcore.ErrInvalidRequest))
	require.NoError(t, (&MsgIncrement{Sender: sdk.AccAddress{1}, By: 1}).ValidateBasic())
}
