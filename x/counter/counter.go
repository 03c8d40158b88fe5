// Package counter is a minimal module that adds signed increments to a
// single chain-wide counter.
//
// The count is stored as an 8-byte big-endian uint64 and /counter/count
// returns it in the same form.
package counter

import (
	"encoding/binary"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/types"
)

// ModuleName is the module name, store name and query route.
const ModuleName = "counter"

// EventTypeIncrement is emitted for every applied increment.
const EventTypeIncrement = "increment"

var _countKey = []byte("count")

// MsgIncrement adds By to the counter.
type MsgIncrement struct {
	Sender sdk.AccAddress `cramberry:"1"`
	By     uint64         `cramberry:"2"`
}

var _ sdk.Msg = (*MsgIncrement)(nil)

// TypeURL implements sdk.Msg.
func (*MsgIncrement) TypeURL() string { return "/counter.MsgIncrement" }

// ValidateBasic implements sdk.Msg.
func (m *MsgIncrement) ValidateBasic() error {
	if m.Sender.Empty() {
		return appcore.ErrInvalidAddress.Wrap("missing sender")
	}
	if m.By == 0 {
		return appcore.ErrInvalidRequest.Wrap("increment must be positive")
	}
	return nil
}

// Signers implements sdk.Msg.
func (m *MsgIncrement) Signers() []sdk.AccAddress { return []sdk.AccAddress{m.Sender} }

// Keeper reads and writes the counter.
type Keeper struct {
	key *store.StoreKey
}

// NewKeeper returns a keeper over key.
func NewKeeper(key *store.StoreKey) Keeper { return Keeper{key: key} }

// Count returns the current value.
func (k Keeper) Count(ctx sdk.Context) uint64 {
	bz := ctx.KVStore(k.key).Get(_countKey)
	if bz == nil {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func (k Keeper) setCount(ctx sdk.Context, n uint64) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	ctx.KVStore(k.key).Set(_countKey, buf)
}

// Increment adds by and returns the new total.
func (k Keeper) Increment(ctx sdk.Context, by uint64) (uint64, error) {
	cur := k.Count(ctx)
	if cur+by < cur {
		return cur, appcore.ErrInvalidRequest.Wrap("counter overflow")
	}
	k.setCount(ctx, cur+by)
	return cur + by, nil
}

// Genesis is the module's genesis.
type Genesis struct {
	Count uint64 `json:"count"`
}

// AppModule wires the keeper into the application.
type AppModule struct {
	keeper Keeper
}

var _ module.AppModule = AppModule{}

// NewAppModule returns the counter module.
func NewAppModule(k Keeper) AppModule { return AppModule{keeper: k} }

func (AppModule) Name() string { return ModuleName }

func (am AppModule) RegisterServices(r *registry.Registry) error {
	if err := registry.RegisterMsg[MsgIncrement](r, am.handleIncrement); err != nil {
		return err
	}
	return r.RegisterQuery(ModuleName, am.query)
}

func (am AppModule) handleIncrement(ctx sdk.Context, msg sdk.Msg) (*sdk.Result, error) {
	m, ok := msg.(*MsgIncrement)
	if !ok {
		return nil, appcore.ErrUnknownRequest.Wrapf("unexpected message %T", msg)
	}
	total, err := am.keeper.Increment(ctx, m.By)
	if err != nil {
		return nil, err
	}
	ctx.EventManager().Emit(sdk.NewEvent(EventTypeIncrement,
		sdk.NewAttribute("by", strconv.FormatUint(m.By, 10)),
		sdk.NewAttribute("total", strconv.FormatUint(total, 10)),
	))
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, total)
	return &sdk.Result{Data: buf}, nil
}

func (AppModule) DefaultGenesis() json.RawMessage { return json.RawMessage(`{"count":0}`) }

func (AppModule) ValidateGenesis(data json.RawMessage) error {
	var g Genesis
	return errors.Wrap(json.Unmarshal(data, &g), "invalid counter genesis")
}

func (am AppModule) InitGenesis(ctx sdk.Context, data json.RawMessage) ([]types.ValidatorUpdate, error) {
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrap(err, "invalid counter genesis")
	}
	am.keeper.setCount(ctx, g.Count)
	return nil, nil
}

func (am AppModule) ExportGenesis(ctx sdk.Context) (json.RawMessage, error) {
	return json.Marshal(Genesis{Count: am.keeper.Count(ctx)})
}

func (am AppModule) query(ctx sdk.Context, path []string, _ types.StateQuery) ([]byte, error) {
	if len(path) != 1 || path[0] != "count" {
		return nil, appcore.ErrUnknownRequest.Wrapf("unknown counter query %v", path)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, am.keeper.Count(ctx))
	return buf, nil
}
