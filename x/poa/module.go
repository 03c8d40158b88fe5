package poa

import (
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// AppModule wires the keeper into the application.
type AppModule struct {
	keeper Keeper
}

var (
	_ module.AppModule  = AppModule{}
	_ module.EndBlocker = AppModule{}
)

// NewAppModule returns the poa module.
func NewAppModule(k Keeper) AppModule { return AppModule{keeper: k} }

// Name implements module.AppModule.
func (AppModule) Name() string { return ModuleName }

// RegisterServices registers MsgSetValidator and the querier.
func (am AppModule) RegisterServices(r *registry.Registry) error {
	if err := registry.RegisterMsg[MsgSetValidator](r, am.handleSetValidator); err != nil {
		return err
	}
	return r.RegisterQuery(ModuleName, am.query)
}

func (am AppModule) handleSetValidator(ctx sdk.Context, msg sdk.Msg) (*sdk.Result, error) {
	m, ok := msg.(*MsgSetValidator)
	if !ok {
		return nil, appcore.ErrUnknownRequest.Wrapf("unexpected message %T", msg)
	}
	if authority := am.keeper.Authority(ctx); m.Authority != authority {
		return nil, appcore.ErrUnauthorized.Wrapf("%s is not the authority", m.Authority)
	}
	addr, err := ValidatorAddressOf(m.PubKey)
	if err != nil {
		return nil, err
	}
	am.keeper.QueueUpdate(ctx, Validator{Address: addr, PubKey: m.PubKey, Power: m.Power})
	ctx.EventManager().Emit(sdk.NewEvent(EventTypeSetValidator,
		sdk.NewAttribute("validator", hex.EncodeToString(addr[:])),
		sdk.NewAttribute("power", strconv.FormatUint(m.Power, 10)),
	))
	return &sdk.Result{}, nil
}

// DefaultGenesis implements module.AppModule.
func (AppModule) DefaultGenesis() json.RawMessage {
	bz, _ := json.Marshal(GenesisState{Authority: sdk.AccAddress{}.String(), Validators: []GenesisValidator{}})
	return bz
}

// ValidateGenesis implements module.AppModule.
func (AppModule) ValidateGenesis(data json.RawMessage) error {
	_, _, err := parseGenesis(data)
	return err
}

func parseGenesis(data json.RawMessage) (sdk.AccAddress, []Validator, error) {
	var gs GenesisState
	if err := json.Unmarshal(data, &gs); err != nil {
		return sdk.AccAddress{}, nil, errors.Wrap(err, "invalid poa genesis")
	}
	authority, err := sdk.AccAddressFromHex(gs.Authority)
	if err != nil {
		return sdk.AccAddress{}, nil, errors.Wrap(err, "invalid poa authority")
	}
	seen := map[types.ValidatorAddress]struct{}{}
	vals := make([]Validator, 0, len(gs.Validators))
	for _, gv := range gs.Validators {
		pk, err := gv.PublicKey()
		if err != nil {
			return authority, nil, err
		}
		if gv.Power == 0 {
			return authority, nil, errors.Errorf("genesis validator %s has zero power", gv.PubKey)
		}
		addr, err := ValidatorAddressOf(pk)
		if err != nil {
			return authority, nil, err
		}
		if _, ok := seen[addr]; ok {
			return authority, nil, errors.Errorf("duplicate genesis validator %s", gv.PubKey)
		}
		seen[addr] = struct{}{}
		vals = append(vals, Validator{Address: addr, PubKey: pk, Power: gv.Power})
	}
	return authority, vals, nil
}

// InitGenesis stores the authority and the initial set, and returns the
// set as the initial validator updates.
func (am AppModule) InitGenesis(ctx sdk.Context, data json.RawMessage) ([]types.ValidatorUpdate, error) {
	authority, vals, err := parseGenesis(data)
	if err != nil {
		return nil, err
	}
	am.keeper.SetAuthority(ctx, authority)
	for _, v := range vals {
		am.keeper.SetValidator(ctx, v)
	}
	var updates []types.ValidatorUpdate
	for _, v := range am.keeper.Validators(ctx) {
		updates = append(updates, types.ValidatorUpdate{PubKey: v.PubKey, Power: v.Power})
	}
	return updates, nil
}

// ExportGenesis implements module.AppModule.
func (am AppModule) ExportGenesis(ctx sdk.Context) (json.RawMessage, error) {
	gs := GenesisState{Authority: am.keeper.Authority(ctx).String(), Validators: []GenesisValidator{}}
	for _, v := range am.keeper.Validators(ctx) {
		kt := "ed25519"
		if v.PubKey.Type == types.KeyTypeSecp256k1 {
			kt = "secp256k1"
		}
		gs.Validators = append(gs.Validators, GenesisValidator{KeyType: kt, PubKey: hex.EncodeToString(v.PubKey.Data), Power: v.Power})
	}
	return json.Marshal(gs)
}

// EndBlock implements module.EndBlocker.
func (am AppModule) EndBlock(ctx sdk.Context) ([]types.ValidatorUpdate, error) {
	return am.keeper.ApplyPending(ctx), nil
}

func (am AppModule) query(ctx sdk.Context, path []string, _ types.StateQuery) ([]byte, error) {
	if len(path) != 1 || path[0] != QueryValidators {
		return nil, appcore.ErrUnknownRequest.Wrapf("unknown poa query %v", path)
	}
	return cramberry.Marshal(&ValidatorsResponse{Validators: am.keeper.Validators(ctx)})
}
