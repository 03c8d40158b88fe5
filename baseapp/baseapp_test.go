package baseapp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/db"
	"github.com/blockberries/appcore/store/rootmulti"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/types"
)

const (
	_testStore   = "kv"
	_testChainID = "test-chain"
	_testGas     = 50000
)

const (
	actionOK uint32 = iota
	actionFail
	actionPanic
	actionBurn
	actionHalt
)

var _paidKey = []byte("paid")

type testMsg struct {
	Key    []byte `cramberry:"1"`
	Value  []byte `cramberry:"2"`
	Action uint32 `cramberry:"3"`
}

func (*testMsg) TypeURL() string           { return "/test.Msg" }
func (*testMsg) ValidateBasic() error      { return nil }
func (*testMsg) Signers() []sdk.AccAddress { return nil }

// testModule writes the message key and then acts as the message says.
type testModule struct {
	key *store.StoreKey
}

func (testModule) Name() string { return _testStore }

func (m testModule) RegisterServices(r *registry.Registry) error {
	if err := registry.RegisterMsg[testMsg](r, m.handle); err != nil {
		return err
	}
	return r.RegisterQuery(_testStore, m.query)
}

func (testModule) DefaultGenesis() json.RawMessage { return json.RawMessage(`{}`) }

func (testModule) ValidateGenesis(json.RawMessage) error { return nil }

func (testModule) InitGenesis(sdk.Context, json.RawMessage) ([]types.ValidatorUpdate, error) {
	return nil, nil
}

func (testModule) ExportGenesis(sdk.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m testModule) handle(ctx sdk.Context, msg sdk.Msg) (*sdk.Result, error) {
	tm := msg.(*testMsg)
	ctx.KVStore(m.key).Set(tm.Key, tm.Value)
	switch tm.Action {
	case actionFail:
		return nil, appcore.ErrInvalidRequest.Wrap("rejected by handler")
	case actionPanic:
		panic("handler exploded")
	case actionBurn:
		ctx.GasMeter().ConsumeGas(1<<40, "burn")
	case actionHalt:
		return nil, appcore.NewHaltError(ctx.BlockHeight(), "state broken")
	}
	ctx.EventManager().Emit(sdk.NewEvent(sdk.EventTypeMessage, sdk.NewAttribute("key", string(tm.Key))))
	return &sdk.Result{Data: tm.Value}, nil
}

func (m testModule) query(ctx sdk.Context, path []string, req types.StateQuery) ([]byte, error) {
	switch path[0] {
	case "get":
		return ctx.KVStore(m.key).Get(req.Data), nil
	case "panic":
		panic("querier exploded")
	default:
		return nil, appcore.ErrUnknownRequest.Wrap(path[0])
	}
}

// testPipeline marks the tx as paid and bounds the meter by the gas
// limit. A memo of "reject" fails after the mark is written.
type testPipeline struct {
	key *store.StoreKey
}

func (p testPipeline) Process(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	ctx.MultiStore().GetKVStore(p.key).Set(_paidKey, []byte(t.Memo()))
	ctx.EventManager().Emit(sdk.NewEvent("pipeline"))
	if t.Memo() == "reject" {
		return ctx, appcore.ErrInsufficientFee.Wrap("rejected by pipeline")
	}
	if simulate {
		return ctx, nil
	}
	return ctx.WithGasMeter(gas.NewMeter(t.Fee().GasLimit)), nil
}

func newTestApp(t *testing.T) (*BaseApp, *store.StoreKey) {
	t.Helper()
	cms, err := rootmulti.NewStore(db.NewMemDB(), rootmulti.WithKeepRecent(2))
	require.NoError(t, err)
	key := store.NewKVStoreKey(_testStore)
	app := New("test", cms, WithLogger(zap.NewNop()), WithAppVersion("v-test"))
	app.MountStores(key)
	app.SetModuleManager(module.NewManager(testModule{key: key}))
	app.SetPipeline(testPipeline{key: key})
	require.NoError(t, app.LoadLatestVersion())
	t.Cleanup(func() { app.Close() })

	_, err = app.InitChain(context.Background(), types.InitChainRequest{ChainID: _testChainID, InitialHeight: 1})
	require.NoError(t, err)
	runBlock(t, app, 1)
	return app, key
}

func encodeTx(t *testing.T, memo string, msgs ...*testMsg) types.Tx {
	t.Helper()
	body := tx.Body{Memo: memo}
	for _, msg := range msgs {
		bz, err := cramberry.Marshal(msg)
		require.NoError(t, err)
		body.Msgs = append(body.Msgs, tx.Any{TypeURL: msg.TypeURL(), Value: bz})
	}
	envelope := tx.Tx{Body: body, AuthInfo: tx.AuthInfo{Fee: tx.Fee{GasLimit: _testGas}}}
	raw, err := envelope.Encode()
	require.NoError(t, err)
	return raw
}

func runBlock(t *testing.T, app *BaseApp, height uint64, txs ...types.Tx) []types.TxOutcome {
	t.Helper()
	ctx := context.Background()
	_, err := app.BeginBlock(ctx, types.BeginBlockRequest{Height: height})
	require.NoError(t, err)
	var outcomes []types.TxOutcome
	for _, raw := range txs {
		out, err := app.DeliverTx(ctx, raw)
		require.NoError(t, err)
		outcomes = append(outcomes, out)
	}
	_, err = app.EndBlock(ctx, types.EndBlockRequest{Height: height})
	require.NoError(t, err)
	res, err := app.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, height, res.Version)
	return outcomes
}

func committed(app *BaseApp, key *store.StoreKey, k []byte) []byte {
	return app.Store().Snapshot().GetKVStore(key).Get(k)
}

func TestRunTx_WriteBack(t *testing.T) {
	tests := []struct {
		name     string
		memo     string
		action   uint32
		want     *appcore.Error
		paid     bool
		written  bool
		gasUsed  uint64
		msgEvent bool
	}{
		{name: "success", action: actionOK, paid: true, written: true, msgEvent: true},
		{name: "handler failure keeps fee", action: actionFail, want: appcore.ErrInvalidRequest, paid: true},
		{name: "handler panic keeps fee", action: actionPanic, want: appcore.ErrPanic, paid: true},
		{name: "out of gas keeps fee", action: actionBurn, want: appcore.ErrOutOfGas, paid: true, gasUsed: _testGas},
		{name: "pipeline failure discards all", memo: "reject", action: actionOK, want: appcore.ErrInsufficientFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			app, key := newTestApp(t)
			memo := tt.memo
			if memo == "" {
				memo = tt.name
			}

			outs := runBlock(t, app, 2, encodeTx(t, memo, &testMsg{Key: []byte("k"), Value: []byte("v"), Action: tt.action}))
			out := outs[0]
			if tt.want == nil {
				require.True(out.OK(), out.Log)
				require.Equal([]byte("v"), out.Data)
			} else {
				require.Equal(tt.want.Code(), out.Code, out.Log)
				require.Equal(tt.want.Codespace(), out.Codespace)
			}
			require.Equal(uint64(_testGas), out.GasWanted)
			if tt.gasUsed > 0 {
				require.Equal(tt.gasUsed, out.GasUsed)
			}

			if tt.paid {
				require.Equal([]byte(memo), committed(app, key, _paidKey))
			} else {
				require.Nil(committed(app, key, _paidKey))
			}
			if tt.written {
				require.Equal([]byte("v"), committed(app, key, []byte("k")))
			} else {
				require.Nil(committed(app, key, []byte("k")))
			}

			var sawMsg, sawPipeline bool
			for _, ev := range out.Events {
				sawMsg = sawMsg || ev.Kind == sdk.EventTypeMessage
				sawPipeline = sawPipeline || ev.Kind == "pipeline"
			}
			require.Equal(tt.msgEvent, sawMsg)
			require.Equal(tt.paid, sawPipeline)
		})
	}
}

func TestRunTx_LaterMessageFailureRevertsEarlier(t *testing.T) {
	app, key := newTestApp(t)
	outs := runBlock(t, app, 2, encodeTx(t, "multi",
		&testMsg{Key: []byte("a"), Value: []byte("1")},
		&testMsg{Key: []byte("b"), Value: []byte("2"), Action: actionFail},
	))
	require.Equal(t, appcore.ErrInvalidRequest.Code(), outs[0].Code)
	require.Nil(t, committed(app, key, []byte("a")))
	require.Nil(t, committed(app, key, []byte("b")))
	require.Equal(t, []byte("multi"), committed(app, key, _paidKey))
}

func TestRunTx_HandlerHaltStopsDelivery(t *testing.T) {
	app, _ := newTestApp(t)
	ctx := context.Background()
	_, err := app.BeginBlock(ctx, types.BeginBlockRequest{Height: 2})
	require.NoError(t, err)

	_, err = app.DeliverTx(ctx, encodeTx(t, "halt", &testMsg{Key: []byte("k"), Action: actionHalt}))
	halt, ok := appcore.IsHalt(err)
	require.True(t, ok, "%v", err)
	require.Equal(t, uint64(2), halt.Height)
}

func TestRunTx_UndecodableTx(t *testing.T) {
	app, _ := newTestApp(t)
	raw := encodeTx(t, "truncated", &testMsg{Key: []byte("k"), Value: []byte("v")})
	outs := runBlock(t, app, 2, raw[:len(raw)-1])
	require.Equal(t, appcore.ErrTxDecode.Code(), outs[0].Code)
	require.Zero(t, outs[0].GasUsed)
}

func TestSimulate_LeavesNoState(t *testing.T) {
	require := require.New(t)
	app, key := newTestApp(t)
	before := app.Store().Snapshot().AppHash()

	out, err := app.Simulate(context.Background(), encodeTx(t, "sim", &testMsg{Key: []byte("k"), Value: []byte("v")}))
	require.NoError(err)
	require.True(out.OK(), out.Log)
	require.NotZero(out.GasUsed)

	require.Equal(before, app.Store().Snapshot().AppHash())
	require.Nil(committed(app, key, []byte("k")))
	require.Nil(committed(app, key, _paidKey))
}

func TestQuery_Routes(t *testing.T) {
	app, _ := newTestApp(t)
	runBlock(t, app, 2, encodeTx(t, "seed", &testMsg{Key: []byte("k"), Value: []byte("v")}))
	old := uint64(99)

	tests := []struct {
		name  string
		req   types.StateQuery
		want  *appcore.Error
		value []byte
	}{
		{name: "module route", req: types.StateQuery{Path: "/kv/get", Data: []byte("k")}, value: []byte("v")},
		{name: "querier panic", req: types.StateQuery{Path: "/kv/panic"}, want: appcore.ErrPanic},
		{name: "unknown route", req: types.StateQuery{Path: "/nope"}, want: appcore.ErrUnknownRequest},
		{name: "empty path", req: types.StateQuery{Path: "/"}, want: appcore.ErrUnknownRequest},
		{name: "raw store", req: types.StateQuery{Path: "/store/kv/key", Data: []byte("k")}, value: []byte("v")},
		{name: "raw store without key", req: types.StateQuery{Path: "/store/kv/key"}, want: appcore.ErrInvalidRequest},
		{name: "unknown store", req: types.StateQuery{Path: "/store/zz/key", Data: []byte("k")}, want: appcore.ErrUnknownRequest},
		{name: "app version", req: types.StateQuery{Path: "/app/version"}, value: []byte("v-test")},
		{name: "pruned height", req: types.StateQuery{Path: "/kv/get", Data: []byte("k"), Height: &old}, want: appcore.ErrInvalidHeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := app.Query(context.Background(), tt.req)
			require.NoError(t, err)
			if tt.want != nil {
				require.Equal(t, tt.want.Code(), res.Code, res.Info)
				return
			}
			require.Zero(t, res.Code, res.Info)
			require.Equal(t, tt.value, res.Value)
			require.Equal(t, uint64(2), res.Height)
		})
	}
}

func TestQuery_PanicReportsHeight(t *testing.T) {
	app, _ := newTestApp(t)
	res, err := app.Query(context.Background(), types.StateQuery{Path: "/kv/panic"})
	require.NoError(t, err)
	require.Equal(t, appcore.ErrPanic.Code(), res.Code)
	require.Equal(t, uint64(1), res.Height)
	require.Contains(t, res.Info, "querier exploded")
}

func TestPanicToError(t *testing.T) {
	halt := appcore.NewHaltError(3, "bad")
	tests := []struct {
		name string
		in   interface{}
		want error
	}{
		{"halt", halt, halt},
		{"out of gas", gas.ErrorOutOfGas{Descriptor: "x"}, appcore.ErrOutOfGas},
		{"overflow", gas.ErrorGasOverflow{Descriptor: "x"}, appcore.ErrOutOfGas},
		{"error", errors.New("boom"), appcore.ErrPanic},
		{"value", 42, appcore.ErrPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := panicToError(tt.in)
			require.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}
