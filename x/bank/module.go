package bank

import (
	"encoding/json"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// Query paths under /bank.
const (
	QueryBalance  = "balance"
	QueryBalances = "balances"
	QuerySupply   = "supply"
)

// AppModule wires the keeper into the application.
type AppModule struct {
	keeper Keeper
}

var _ module.AppModule = AppModule{}

// NewAppModule returns the bank module.
func NewAppModule(k Keeper) AppModule { return AppModule{keeper: k} }

// Name implements module.AppModule.
func (AppModule) Name() string { return ModuleName }

// RegisterServices registers MsgSend and the querier.
func (am AppModule) RegisterServices(r *registry.Registry) error {
	if err := registry.RegisterMsg[MsgSend](r, am.handleSend); err != nil {
		return err
	}
	return r.RegisterQuery(ModuleName, am.query)
}

func (am AppModule) handleSend(ctx sdk.Context, msg sdk.Msg) (*sdk.Result, error) {
	m, ok := msg.(*MsgSend)
	if !ok {
		return nil, appcore.ErrUnknownRequest.Wrapf("unexpected message %T", msg)
	}
	if err := am.keeper.SendCoins(ctx, m.FromAddress, m.ToAddress, m.Amount); err != nil {
		return nil, err
	}
	ctx.EventManager().Emit(sdk.NewEvent(sdk.EventTypeMessage,
		sdk.NewAttribute(sdk.AttributeKeyModule, ModuleName),
		sdk.NewAttribute(sdk.AttributeKeyAction, m.TypeURL()),
		sdk.NewAttribute(sdk.AttributeKeySender, m.FromAddress.String()),
	))
	return &sdk.Result{}, nil
}

// DefaultGenesis implements module.AppModule.
func (AppModule) DefaultGenesis() json.RawMessage {
	return json.RawMessage(`{"balances":[]}`)
}

// ValidateGenesis implements module.AppModule.
func (AppModule) ValidateGenesis(data json.RawMessage) error {
	_, err := parseGenesis(data)
	return err
}

func parseGenesis(data json.RawMessage) (GenesisState, error) {
	var gs GenesisState
	if err := json.Unmarshal(data, &gs); err != nil {
		return gs, errors.Wrap(err, "invalid bank genesis")
	}
	for _, b := range gs.Balances {
		if _, err := sdk.AccAddressFromHex(b.Address); err != nil {
			return gs, err
		}
		if err := b.Coins.Validate(); err != nil {
			return gs, errors.Wrapf(err, "balance of %s", b.Address)
		}
	}
	return gs, nil
}

// InitGenesis mints every genesis balance.
func (am AppModule) InitGenesis(ctx sdk.Context, data json.RawMessage) ([]types.ValidatorUpdate, error) {
	gs, err := parseGenesis(data)
	if err != nil {
		return nil, err
	}
	for _, b := range gs.Balances {
		addr, _ := sdk.AccAddressFromHex(b.Address)
		if err := am.keeper.MintCoins(ctx, addr, b.Coins); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// ExportGenesis implements module.AppModule.
func (am AppModule) ExportGenesis(ctx sdk.Context) (json.RawMessage, error) {
	gs := GenesisState{Balances: []Balance{}}
	it := ctx.KVStore(am.keeper.key).Iterator(_balancePrefix, _supplyPrefix)
	defer it.Close()
	byAddr := map[sdk.AccAddress]int{}
	for ; it.Valid(); it.Next() {
		key := it.Key()[len(_balancePrefix):]
		addr, err := sdk.AccAddressFromBytes(key[:sdk.AddrLen])
		if err != nil {
			return nil, err
		}
		coin := sdk.NewCoin(string(key[sdk.AddrLen:]), readInt(it.Value()))
		i, ok := byAddr[addr]
		if !ok {
			i = len(gs.Balances)
			byAddr[addr] = i
			gs.Balances = append(gs.Balances, Balance{Address: addr.String()})
		}
		gs.Balances[i].Coins = append(gs.Balances[i].Coins, coin)
	}
	return json.Marshal(gs)
}

func (am AppModule) query(ctx sdk.Context, path []string, _ types.StateQuery) ([]byte, error) {
	if len(path) == 0 {
		return nil, appcore.ErrUnknownRequest.Wrap("empty bank query path")
	}
	switch path[0] {
	case QueryBalance:
		if len(path) != 3 {
			return nil, appcore.ErrInvalidRequest.Wrap("expected /bank/balance/<address>/<denom>")
		}
		addr, err := sdk.AccAddressFromHex(path[1])
		if err != nil {
			return nil, err
		}
		if err := sdk.ValidateDenom(path[2]); err != nil {
			return nil, err
		}
		coin := sdk.NewCoin(path[2], am.keeper.GetBalance(ctx, addr, path[2]))
		return cramberry.Marshal(coin)
	case QueryBalances:
		if len(path) != 2 {
			return nil, appcore.ErrInvalidRequest.Wrap("expected /bank/balances/<address>")
		}
		addr, err := sdk.AccAddressFromHex(path[1])
		if err != nil {
			return nil, err
		}
		return cramberry.Marshal(&BalancesResponse{Balances: am.keeper.GetAllBalances(ctx, addr)})
	case QuerySupply:
		if len(path) != 2 {
			return nil, appcore.ErrInvalidRequest.Wrap("expected /bank/supply/<denom>")
		}
		return cramberry.Marshal(sdk.NewCoin(path[1], am.keeper.GetSupply(ctx, path[1])))
	default:
		return nil, appcore.ErrUnknownRequest.Wrapf("unknown bank query %q", path[0])
	}
}
