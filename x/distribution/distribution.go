// Package distribution pays the fees collected in a block to the
// proposer of that block, at the start of the next one.
package distribution

import (
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/types"
)

// ModuleName is the module name and store name.
const ModuleName = "distribution"

// Event emitted when a proposer is paid.
const (
	EventTypeProposerReward = "proposer_reward"
	AttributeKeyProposer    = "proposer"
)

var _previousProposerKey = []byte{0x01}

// BankKeeper is the part of bank distribution needs.
type BankKeeper interface {
	GetAllBalances(ctx sdk.Context, addr sdk.AccAddress) sdk.Coins
	SendCoinsFromModuleToAccount(ctx sdk.Context, moduleName string, to sdk.AccAddress, amt sdk.Coins) error
}

// Keeper tracks the previous proposer.
type Keeper struct {
	key          *store.StoreKey
	bank         BankKeeper
	feeCollector string
}

// NewKeeper returns a keeper paying out of the feeCollector module account.
func NewKeeper(key *store.StoreKey, bk BankKeeper, feeCollector string) Keeper {
	return Keeper{key: key, bank: bk, feeCollector: feeCollector}
}

// PreviousProposer returns the proposer recorded by the last begin block.
func (k Keeper) PreviousProposer(ctx sdk.Context) (types.ValidatorAddress, bool) {
	var addr types.ValidatorAddress
	bz := ctx.KVStore(k.key).Get(_previousProposerKey)
	if bz == nil {
		return addr, false
	}
	copy(addr[:], bz)
	return addr, true
}

func (k Keeper) setPreviousProposer(ctx sdk.Context, addr types.ValidatorAddress) {
	ctx.KVStore(k.key).Set(_previousProposerKey, addr[:])
}

// AllocateFees pays the collected fees to the previous proposer and
// records the current one.
func (k Keeper) AllocateFees(ctx sdk.Context) error {
	if prev, ok := k.PreviousProposer(ctx); ok {
		collected := k.bank.GetAllBalances(ctx, sdk.ModuleAddress(k.feeCollector))
		if len(collected) > 0 {
			recipient := sdk.AccAddress(prev)
			if err := k.bank.SendCoinsFromModuleToAccount(ctx, k.feeCollector, recipient, collected); err != nil {
				return errors.Wrap(err, "failed to pay proposer")
			}
			ctx.EventManager().Emit(sdk.NewEvent(EventTypeProposerReward,
				sdk.NewAttribute(AttributeKeyProposer, recipient.String()),
				sdk.NewAttribute(sdk.AttributeKeyAmount, collected.String()),
			))
			ctx.Logger().Debug("Paid proposer reward.",
				zap.String("proposer", recipient.String()),
				zap.String("amount", collected.String()))
		}
	}
	k.setPreviousProposer(ctx, ctx.Header().Proposer)
	return nil
}

// AppModule wires the keeper into the application.
type AppModule struct {
	keeper Keeper
}

var (
	_ module.AppModule    = AppModule{}
	_ module.BeginBlocker = AppModule{}
)

// NewAppModule returns the distribution module.
func NewAppModule(k Keeper) AppModule { return AppModule{keeper: k} }

// Name implements module.AppModule.
func (AppModule) Name() string { return ModuleName }

// RegisterServices implements module.AppModule. The module has no
// messages or queries.
func (AppModule) RegisterServices(*registry.Registry) error { return nil }

// DefaultGenesis implements module.AppModule.
func (AppModule) DefaultGenesis() json.RawMessage { return json.RawMessage(`{}`) }

// ValidateGenesis implements module.AppModule.
func (AppModule) ValidateGenesis(data json.RawMessage) error {
	var v map[string]json.RawMessage
	return errors.Wrap(json.Unmarshal(data, &v), "invalid distribution genesis")
}

// InitGenesis implements module.AppModule.
func (AppModule) InitGenesis(sdk.Context, json.RawMessage) ([]types.ValidatorUpdate, error) {
	return nil, nil
}

// ExportGenesis implements module.AppModule.
func (AppModule) ExportGenesis(sdk.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

// BeginBlock implements module.BeginBlocker.
func (am AppModule) BeginBlock(ctx sdk.Context) error {
	return am.keeper.AllocateFees(ctx)
}
