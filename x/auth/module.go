package auth

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

// Query paths under /auth.
const (
	QueryAccount = "account"
	QueryParams  = "params"
)

// AppModule wires the keeper into the application.
type AppModule struct {
	keeper Keeper
}

var _ module.AppModule = AppModule{}

// NewAppModule returns the auth module.
func NewAppModule(k Keeper) AppModule { return AppModule{keeper: k} }

// Name implements module.AppModule.
func (AppModule) Name() string { return ModuleName }

// RegisterServices registers the querier. Auth has no messages.
func (am AppModule) RegisterServices(r *registry.Registry) error {
	return r.RegisterQuery(ModuleName, am.query)
}

// DefaultGenesis implements module.AppModule.
func (AppModule) DefaultGenesis() json.RawMessage {
	bz, _ := json.Marshal(GenesisState{Params: DefaultParams()})
	return bz
}

// ValidateGenesis implements module.AppModule.
func (AppModule) ValidateGenesis(data json.RawMessage) error {
	_, err := parseGenesis(data)
	return err
}

func parseGenesis(data json.RawMessage) (GenesisState, error) {
	var gs GenesisState
	if err := json.Unmarshal(data, &gs); err != nil {
		return gs, errors.Wrap(err, "invalid auth genesis")
	}
	if err := gs.Params.Validate(); err != nil {
		return gs, err
	}
	seen := map[sdk.AccAddress]struct{}{}
	for _, ga := range gs.Accounts {
		addr, err := sdk.AccAddressFromHex(ga.Address)
		if err != nil {
			return gs, err
		}
		if _, ok := seen[addr]; ok {
			return gs, errors.Errorf("duplicate genesis account %s", ga.Address)
		}
		seen[addr] = struct{}{}
	}
	return gs, nil
}

// InitGenesis stores the parameters and creates the genesis accounts in
// listed order.
func (am AppModule) InitGenesis(ctx sdk.Context, data json.RawMessage) ([]types.ValidatorUpdate, error) {
	gs, err := parseGenesis(data)
	if err != nil {
		return nil, err
	}
	am.keeper.SetParams(ctx, gs.Params)
	for _, ga := range gs.Accounts {
		addr, _ := sdk.AccAddressFromHex(ga.Address)
		am.keeper.NewAccountWithAddress(ctx, addr)
	}
	return nil, nil
}

// ExportGenesis implements module.AppModule.
func (am AppModule) ExportGenesis(ctx sdk.Context) (json.RawMessage, error) {
	gs := GenesisState{Params: am.keeper.GetParams(ctx)}
	am.keeper.IterateAccounts(ctx, func(acc *Account) bool {
		gs.Accounts = append(gs.Accounts, GenesisAccount{Address: acc.Address.String()})
		return false
	})
	return json.Marshal(gs)
}

func (am AppModule) query(ctx sdk.Context, path []string, _ types.StateQuery) ([]byte, error) {
	if len(path) == 0 {
		return nil, appcore.ErrUnknownRequest.Wrap("empty auth query path")
	}
	switch path[0] {
	case QueryAccount:
		if len(path) != 2 {
			return nil, appcore.ErrInvalidRequest.Wrap("expected /auth/account/<address>")
		}
		addr, err := sdk.AccAddressFromHex(path[1])
		if err != nil {
			return nil, err
		}
		acc, ok := am.keeper.GetAccount(ctx, addr)
		if !ok {
			return nil, appcore.ErrUnknownAddress.Wrapf("account %s does not exist", addr)
		}
		return cramberry.Marshal(acc)
	case QueryParams:
		return cramberry.Marshal(am.keeper.GetParams(ctx))
	default:
		return nil, appcore.ErrUnknownRequest.Wrapf("unknown auth query %q", path[0])
	}
}
