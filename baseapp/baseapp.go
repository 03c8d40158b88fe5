// Package baseapp drives the block lifecycle: it owns the versioned store,
// opens the block and transaction scopes, runs the pre-processing pipeline
// and routes messages and queries to the registered modules.
package baseapp

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/module"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachemulti"
	"github.com/blockberries/appcore/store/db"
	"github.com/blockberries/appcore/store/rootmulti"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/types"
)

// MainStoreName is the sub-store holding the chain id and consensus
// parameters.
const MainStoreName = "main"

var (
	_chainIDKey = []byte("chain_id")
	_paramsKey  = []byte("consensus_params")
)

var (
	_ appcore.Application = (*BaseApp)(nil)
	_ appcore.Simulator   = (*BaseApp)(nil)
)

// Pipeline runs the pre-processing checks of a transaction.
type Pipeline interface {
	Process(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error)
}

// chainState is what concurrent readers need besides the snapshot.
type chainState struct {
	chainID string
	params  types.ConsensusParams
}

// blockState lives from BeginBlock to Commit.
type blockState struct {
	scope *cachemulti.Store
	ctx   sdk.Context
}

// BaseApp implements appcore.Application on top of a module manager.
type BaseApp struct {
	name       string
	appVersion string
	logger     *zap.Logger

	cms       *rootmulti.Store
	mainKey   *store.StoreKey
	registry  *registry.Registry
	mm        *module.Manager
	pipeline  Pipeline
	gasConfig gas.Config

	// mu serializes the block path.
	mu          sync.Mutex
	phase       phase
	block       *blockState
	initialized bool

	chain atomic.Pointer[chainState]
}

// Option configures a BaseApp.
type Option func(*BaseApp)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(app *BaseApp) { app.logger = logger }
}

// WithAppVersion sets the version reported by Info.
func WithAppVersion(v string) Option {
	return func(app *BaseApp) { app.appVersion = v }
}

// WithGasConfig sets the store costs charged to transactions.
func WithGasConfig(cfg gas.Config) Option {
	return func(app *BaseApp) { app.gasConfig = cfg }
}

// New returns an application persisting to cms. Stores, modules and the
// pipeline are set before LoadLatestVersion.
func New(name string, cms *rootmulti.Store, opts ...Option) *BaseApp {
	app := &BaseApp{
		name:      name,
		logger:    log.Logger("baseapp"),
		cms:       cms,
		mainKey:   store.NewKVStoreKey(MainStoreName),
		registry:  registry.New(),
		gasConfig: gas.DefaultConfig,
	}
	for _, opt := range opts {
		opt(app)
	}
	app.chain.Store(&chainState{})
	cms.MountStore(app.mainKey)
	return app
}

// NewWithDB opens a versioned store over kv and returns an application on
// top of it.
func NewWithDB(name string, kv db.KVStore, keepRecent int, opts ...Option) (*BaseApp, error) {
	cms, err := rootmulti.NewStore(kv, rootmulti.WithKeepRecent(keepRecent))
	if err != nil {
		return nil, err
	}
	return New(name, cms, opts...), nil
}

// Name returns the application name.
func (app *BaseApp) Name() string { return app.name }

// Logger returns the application logger.
func (app *BaseApp) Logger() *zap.Logger { return app.logger }

// Registry returns the message and query registry.
func (app *BaseApp) Registry() *registry.Registry { return app.registry }

// Store returns the versioned store.
func (app *BaseApp) Store() *rootmulti.Store { return app.cms }

// MountStores mounts the module sub-stores.
func (app *BaseApp) MountStores(keys ...*store.StoreKey) {
	for _, key := range keys {
		app.cms.MountStore(key)
	}
}

// SetModuleManager sets the modules. Their services are registered by
// LoadLatestVersion.
func (app *BaseApp) SetModuleManager(mm *module.Manager) { app.mm = mm }

// SetPipeline sets the pre-processing pipeline.
func (app *BaseApp) SetPipeline(p Pipeline) { app.pipeline = p }

// LoadLatestVersion registers module services, seals the registry and
// loads the latest committed state. Errors here are configuration or
// corruption errors and must stop the process.
func (app *BaseApp) LoadLatestVersion() error {
	if app.mm == nil {
		return errors.New("module manager is not set")
	}
	if app.pipeline == nil {
		return errors.New("pipeline is not set")
	}
	if !app.registry.Sealed() {
		if err := app.mm.RegisterServices(app.registry); err != nil {
			return errors.Wrap(err, "failed to register module services")
		}
		app.registry.Seal()
	}
	if err := app.cms.Load(); err != nil {
		return err
	}
	snap := app.cms.Snapshot()
	if snap.Version() == 0 {
		return nil
	}
	cs, err := readChainState(snap.GetKVStore(app.mainKey))
	if err != nil {
		return err
	}
	app.chain.Store(cs)
	app.initialized = true
	return nil
}

func readChainState(kv store.KVStore) (*chainState, error) {
	cs := &chainState{chainID: string(kv.Get(_chainIDKey))}
	if cs.chainID == "" {
		return nil, errors.Wrap(rootmulti.ErrCorrupted, "chain id missing from committed state")
	}
	if bz := kv.Get(_paramsKey); bz != nil {
		if err := cramberry.Unmarshal(bz, &cs.params); err != nil {
			return nil, errors.Wrapf(rootmulti.ErrCorrupted, "failed to decode consensus params: %v", err)
		}
	}
	return cs, nil
}

func writeChainState(kv store.KVStore, cs *chainState) error {
	bz, err := cramberry.Marshal(&cs.params)
	if err != nil {
		return errors.Wrap(err, "failed to encode consensus params")
	}
	kv.Set(_chainIDKey, []byte(cs.chainID))
	kv.Set(_paramsKey, bz)
	return nil
}

// Close closes the store.
func (app *BaseApp) Close() error {
	return app.cms.Close()
}

// Info implements appcore.Application.
func (app *BaseApp) Info(context.Context) (types.InfoResponse, error) {
	snap := app.cms.Snapshot()
	resp := types.InfoResponse{
		AppVersion:  app.appVersion,
		LastVersion: snap.Version(),
	}
	if snap.Version() > 0 {
		resp.LastAppHash = snap.AppHash()
		resp.ChainID = app.chain.Load().chainID
	}
	return resp, nil
}

// InitChain implements appcore.Application. An invalid genesis is a
// HaltError: the node cannot start from it.
func (app *BaseApp) InitChain(ctx context.Context, req types.InitChainRequest) (types.InitChainResponse, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.initialized {
		return types.InitChainResponse{}, appcore.ErrWrongState.Wrap("chain is already initialized")
	}
	if err := app.expectPhase("InitChain", phaseIdle); err != nil {
		return types.InitChainResponse{}, err
	}
	initialHeight := req.InitialHeight
	if initialHeight == 0 {
		initialHeight = 1
	}
	if req.ChainID == "" {
		return types.InitChainResponse{}, appcore.NewHaltError(initialHeight, "genesis chain id is empty")
	}

	genesis := app.mm.DefaultGenesis()
	if len(req.AppState) > 0 {
		var state map[string]json.RawMessage
		if err := json.Unmarshal(req.AppState, &state); err != nil {
			return types.InitChainResponse{}, appcore.WrapHalt(err, initialHeight, "malformed genesis app state")
		}
		for name, raw := range state {
			genesis[name] = raw
		}
	}
	if err := app.mm.ValidateGenesis(genesis); err != nil {
		return types.InitChainResponse{}, appcore.WrapHalt(err, initialHeight, "invalid genesis")
	}

	cs := &chainState{chainID: req.ChainID, params: req.ConsensusParams}
	scope := app.cms.CacheMultiStore()
	header := sdk.Header{ChainID: req.ChainID, Height: initialHeight, Time: req.GenesisTime.ToTime()}
	sctx := sdk.NewContext(scope, header, sdk.ExecModeDeliver, app.logger).
		WithContext(ctx).
		WithConsensusParams(req.ConsensusParams)
	if err := writeChainState(sctx.MultiStore().GetKVStore(app.mainKey), cs); err != nil {
		return types.InitChainResponse{}, appcore.WrapHalt(err, initialHeight, "failed to store chain state")
	}
	validators, err := app.safeInitGenesis(sctx, genesis)
	if err != nil {
		return types.InitChainResponse{}, appcore.WrapHalt(err, initialHeight, "failed to load genesis")
	}
	scope.Write()
	if err := app.cms.SetInitialVersion(initialHeight); err != nil {
		return types.InitChainResponse{}, appcore.WrapHalt(err, initialHeight, "failed to set initial version")
	}
	app.chain.Store(cs)
	app.initialized = true

	var appHash types.AppHash
	copy(appHash[:], app.cms.WorkingHash())
	if len(validators) == 0 {
		validators = req.Validators
	}
	app.logger.Info("Initialized chain.",
		zap.String("chainID", req.ChainID),
		zap.Uint64("initialHeight", initialHeight),
		zap.Int("validators", len(validators)),
		zap.String("appHash", appHash.String()))
	return types.InitChainResponse{AppHash: appHash, Validators: validators}, nil
}

func (app *BaseApp) safeInitGenesis(ctx sdk.Context, genesis map[string]json.RawMessage) (updates []types.ValidatorUpdate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	return app.mm.InitGenesis(ctx, genesis)
}

// ExportGenesis renders the last committed state as genesis app state.
func (app *BaseApp) ExportGenesis() (json.RawMessage, error) {
	snap := app.cms.Snapshot()
	cs := app.chain.Load()
	header := sdk.Header{ChainID: cs.chainID, Height: snap.Version()}
	ctx := sdk.NewContext(snap.CacheMultiStore(), header, sdk.ExecModeQuery, app.logger)
	state, err := app.mm.ExportGenesis(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

// panicToError converts a recovered panic value into an error. HaltError
// and out-of-gas values keep their identity.
func panicToError(r interface{}) error {
	switch v := r.(type) {
	case *appcore.HaltError:
		return v
	case gas.ErrorOutOfGas:
		return appcore.ErrOutOfGas.Wrap(v.Descriptor)
	case gas.ErrorGasOverflow:
		return appcore.ErrOutOfGas.Wrapf("gas overflow: %s", v.Descriptor)
	case error:
		return appcore.ErrPanic.Wrap(v.Error())
	default:
		return appcore.ErrPanic.Wrapf("%v", v)
	}
}
