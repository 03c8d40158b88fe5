// Package app assembles the shipped modules, the pre-processing pipeline
// and the versioned store into a runnable application.
package app

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/blockberries/appcore/ante"
	"github.com/blockberries/appcore/baseapp"
	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/db"
	"github.com/blockberries/appcore/x/auth"
	"github.com/blockberries/appcore/x/bank"
	"github.com/blockberries/appcore/x/counter"
	"github.com/blockberries/appcore/x/distribution"
	"github.com/blockberries/appcore/x/poa"
)

// Name is the application name.
const Name = "appcore"

// FeeCollectorName is the module account fees are paid to.
const FeeCollectorName = "fee_collector"

// Version is reported by Info. It is set at build time.
var Version = "dev"

// Options configure the application.
type Options struct {
	// MinGasPrice is the per-gas price mempool checks demand, e.g.
	// "1stake". Empty disables the check.
	MinGasPrice string
	// KeepRecent is the number of committed versions kept for
	// historical queries.
	KeepRecent int
	Logger     *zap.Logger
}

// App is the assembled application.
type App struct {
	*baseapp.BaseApp

	AuthKeeper         auth.Keeper
	BankKeeper         bank.Keeper
	DistributionKeeper distribution.Keeper
	PoAKeeper          poa.Keeper
	CounterKeeper      counter.Keeper

	mm *module.Manager
}

// New builds the application over kv and loads its latest state.
func New(kv db.KVStore, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Logger("app")
	}
	keepRecent := opts.KeepRecent
	if keepRecent <= 0 {
		keepRecent = 10
	}
	bapp, err := baseapp.NewWithDB(Name, kv, keepRecent, baseapp.WithLogger(logger), baseapp.WithAppVersion(Version))
	if err != nil {
		return nil, err
	}

	authKey := store.NewKVStoreKey(auth.ModuleName)
	bankKey := store.NewKVStoreKey(bank.ModuleName)
	distKey := store.NewKVStoreKey(distribution.ModuleName)
	poaKey := store.NewKVStoreKey(poa.ModuleName)
	counterKey := store.NewKVStoreKey(counter.ModuleName)
	bapp.MountStores(authKey, bankKey, distKey, poaKey, counterKey)

	a := &App{BaseApp: bapp}
	a.AuthKeeper = auth.NewKeeper(authKey)
	a.BankKeeper = bank.NewKeeper(bankKey, a.AuthKeeper)
	a.DistributionKeeper = distribution.NewKeeper(distKey, a.BankKeeper, FeeCollectorName)
	a.PoAKeeper = poa.NewKeeper(poaKey)
	a.CounterKeeper = counter.NewKeeper(counterKey)

	a.mm = a.newManager()
	bapp.SetModuleManager(a.mm)

	var minGasPrice sdk.Coin
	if opts.MinGasPrice != "" {
		if minGasPrice, err = sdk.ParseCoin(opts.MinGasPrice); err != nil {
			return nil, err
		}
	}
	pipeline, err := ante.NewDefaultPipeline(ante.Options{
		Accounts:     a.AuthKeeper,
		Bank:         a.BankKeeper,
		FeeCollector: FeeCollectorName,
		MinGasPrice:  minGasPrice,
	})
	if err != nil {
		return nil, err
	}
	bapp.SetPipeline(pipeline)

	if err := bapp.LoadLatestVersion(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) newManager() *module.Manager {
	mm := module.NewManager(
		auth.NewAppModule(a.AuthKeeper),
		bank.NewAppModule(a.BankKeeper),
		distribution.NewAppModule(a.DistributionKeeper),
		poa.NewAppModule(a.PoAKeeper),
		counter.NewAppModule(a.CounterKeeper),
	)
	mm.SetOrderBeginBlockers(distribution.ModuleName)
	mm.SetOrderEndBlockers(poa.ModuleName)
	return mm
}

// DefaultGenesis returns the default genesis app state of every module.
func DefaultGenesis() map[string]json.RawMessage {
	return (&App{}).newManager().DefaultGenesis()
}

// ValidateGenesis checks a genesis app state without opening a store.
func ValidateGenesis(state map[string]json.RawMessage) error {
	return (&App{}).newManager().ValidateGenesis(state)
}

// ModuleManager returns the module manager.
func (a *App) ModuleManager() *module.Manager { return a.mm }
