package sdk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/gaskv"
	"github.com/blockberries/appcore/types"
)

// ExecMode tells handlers and pipeline checks why they are running.
type ExecMode uint8

const (
	// ExecModeCheck admits a transaction into the mempool.
	ExecModeCheck ExecMode = iota
	// ExecModeReCheck re-validates a mempool transaction after a commit.
	ExecModeReCheck
	// ExecModeSimulate dry-runs a transaction to estimate gas.
	ExecModeSimulate
	// ExecModeDeliver executes a transaction inside a block.
	ExecModeDeliver
	// ExecModeQuery answers a read-only query.
	ExecModeQuery
)

func (m ExecMode) String() string {
	switch m {
	case ExecModeCheck:
		return "check"
	case ExecModeReCheck:
		return "recheck"
	case ExecModeSimulate:
		return "simulate"
	case ExecModeDeliver:
		return "deliver"
	case ExecModeQuery:
		return "query"
	default:
		return "unknown"
	}
}

// Header is the block context every handler may read.
type Header struct {
	ChainID  string
	Height   uint64
	Time     time.Time
	Proposer types.ValidatorAddress
}

// Context carries everything a handler, hook or pipeline check is allowed
// to read: the block header, the scope, and the gas meters. It is passed by
// value; With* methods return modified copies.
type Context struct {
	baseCtx       context.Context
	ms            store.MultiStore
	header        Header
	mode          ExecMode
	gasMeter      gas.Meter
	blockGasMeter gas.Meter
	gasConfig     gas.Config
	params        types.ConsensusParams
	eventManager  *EventManager
	logger        *zap.Logger
	txBytes       []byte
}

// NewContext returns a context over ms with an infinite gas meter. A nil
// logger is replaced by a no-op one.
func NewContext(ms store.MultiStore, header Header, mode ExecMode, logger *zap.Logger) Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Context{
		baseCtx:      context.Background(),
		ms:           ms,
		header:       header,
		mode:         mode,
		gasMeter:     gas.NewInfiniteMeter(),
		gasConfig:    gas.DefaultConfig,
		eventManager: NewEventManager(),
		logger:       logger,
	}
}

func (c Context) Context() context.Context { return c.baseCtx }
func (c Context) MultiStore() store.MultiStore { return c.ms }
func (c Context) Header() Header { return c.header }
func (c Context) ChainID() string { return c.header.ChainID }
func (c Context) BlockHeight() uint64 { return c.header.Height }
func (c Context) BlockTime() time.Time { return c.header.Time }
func (c Context) Mode() ExecMode { return c.mode }
func (c Context) GasMeter() gas.Meter { return c.gasMeter }
func (c Context) BlockGasMeter() gas.Meter { return c.blockGasMeter }
func (c Context) ConsensusParams() types.ConsensusParams { return c.params }
func (c Context) EventManager() *EventManager { return c.eventManager }
func (c Context) Logger() *zap.Logger { return c.logger }
func (c Context) TxBytes() []byte { return c.txBytes }

// IsCheckTx reports whether the context runs a mempool check or recheck.
func (c Context) IsCheckTx() bool {
	return c.mode == ExecModeCheck || c.mode == ExecModeReCheck
}

// IsReCheckTx reports whether the context runs a mempool recheck.
func (c Context) IsReCheckTx() bool { return c.mode == ExecModeReCheck }

// KVStore returns the gas-metered view of a sub-store.
func (c Context) KVStore(key *store.StoreKey) store.KVStore {
	return gaskv.NewStore(c.ms.GetKVStore(key), c.gasMeter, c.gasConfig)
}

func (c Context) WithContext(ctx context.Context) Context {
	c.baseCtx = ctx
	return c
}

func (c Context) WithMultiStore(ms store.MultiStore) Context {
	c.ms = ms
	return c
}

func (c Context) WithHeader(header Header) Context {
	c.header = header
	return c
}

func (c Context) WithMode(mode ExecMode) Context {
	c.mode = mode
	return c
}

func (c Context) WithGasMeter(meter gas.Meter) Context {
	c.gasMeter = meter
	return c
}

func (c Context) WithBlockGasMeter(meter gas.Meter) Context {
	c.blockGasMeter = meter
	return c
}

func (c Context) WithGasConfig(cfg gas.Config) Context {
	c.gasConfig = cfg
	return c
}

func (c Context) WithConsensusParams(params types.ConsensusParams) Context {
	c.params = params
	return c
}

func (c Context) WithEventManager(em *EventManager) Context {
	c.eventManager = em
	return c
}

func (c Context) WithLogger(logger *zap.Logger) Context {
	c.logger = logger
	return c
}

func (c Context) WithTxBytes(txBytes []byte) Context {
	c.txBytes = txBytes
	return c
}

// CacheContext opens a nested scope. The returned write function merges
// it into the current scope.
func (c Context) CacheContext() (Context, func()) {
	cms := c.ms.CacheMultiStore()
	cc := c.WithMultiStore(cms).WithEventManager(NewEventManager())
	return cc, func() {
		cms.Write()
		c.eventManager.EmitEvents(cc.eventManager.Events())
	}
}
