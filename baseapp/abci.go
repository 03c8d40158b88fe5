package baseapp

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// BeginBlock implements appcore.Application.
func (app *BaseApp) BeginBlock(ctx context.Context, req types.BeginBlockRequest) (types.BeginBlockResponse, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if !app.initialized {
		return types.BeginBlockResponse{}, appcore.ErrWrongState.Wrap("BeginBlock called before InitChain")
	}
	if err := app.expectPhase("BeginBlock", phaseIdle); err != nil {
		return types.BeginBlockResponse{}, err
	}
	cs := app.chain.Load()
	if req.ChainID != "" && req.ChainID != cs.chainID {
		return types.BeginBlockResponse{}, appcore.ErrInvalidRequest.Wrapf("block for chain %q, app runs %q", req.ChainID, cs.chainID)
	}
	if want := app.nextHeight(); req.Height != want {
		return types.BeginBlockResponse{}, appcore.ErrInvalidHeight.Wrapf("expected height %d, got %d", want, req.Height)
	}

	blockMeter := gas.NewInfiniteMeter()
	if cs.params.MaxGas > 0 {
		blockMeter = gas.NewMeter(cs.params.MaxGas)
	}
	scope := app.cms.CacheMultiStore()
	header := sdk.Header{
		ChainID:  cs.chainID,
		Height:   req.Height,
		Time:     req.Time.ToTime(),
		Proposer: req.Proposer,
	}
	sctx := sdk.NewContext(scope, header, sdk.ExecModeDeliver, app.logger).
		WithContext(ctx).
		WithConsensusParams(cs.params).
		WithBlockGasMeter(blockMeter).
		WithGasConfig(app.gasConfig)

	events, err := app.safeBeginBlock(sctx)
	if err != nil {
		return types.BeginBlockResponse{}, err
	}
	app.block = &blockState{scope: scope, ctx: sctx}
	app.phase = phaseBlockOpen
	return types.BeginBlockResponse{Events: events}, nil
}

func (app *BaseApp) nextHeight() uint64 {
	if v := app.cms.LastCommitInfo().Version; v > 0 {
		return v + 1
	}
	return app.cms.WorkingVersion()
}

func (app *BaseApp) safeBeginBlock(ctx sdk.Context) (events []types.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = hookPanic(ctx, r)
		}
	}()
	return app.mm.BeginBlock(ctx)
}

func (app *BaseApp) safeEndBlock(ctx sdk.Context) (updates []types.ValidatorUpdate, events []types.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = hookPanic(ctx, r)
		}
	}()
	return app.mm.EndBlock(ctx)
}

// hookPanic turns a panic in a block hook into a HaltError. Hooks are not
// metered, so any panic means the state can no longer be trusted.
func hookPanic(ctx sdk.Context, r interface{}) error {
	err := panicToError(r)
	if halt, ok := appcore.IsHalt(err); ok {
		return halt
	}
	ctx.Logger().Error("Block hook panicked.", zap.Error(err), zap.Stack("stack"))
	return appcore.WrapHalt(err, ctx.BlockHeight(), "block hook panicked")
}

// DeliverTx implements appcore.Application. Business failures are
// reported in the outcome; an error means the node must halt.
func (app *BaseApp) DeliverTx(ctx context.Context, raw types.Tx) (types.TxOutcome, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if err := app.expectPhase("DeliverTx", phaseBlockOpen); err != nil {
		return types.TxOutcome{}, err
	}
	bctx := app.block.ctx.WithContext(ctx)
	outcome, err := app.runTx(bctx, raw)
	if err != nil {
		return types.TxOutcome{}, err
	}
	_txMtc.WithLabelValues(outcome.Codespace, strconv.FormatUint(uint64(outcome.Code), 10)).Inc()
	_gasMtc.Observe(float64(outcome.GasUsed))
	return outcome, nil
}

// EndBlock implements appcore.Application.
func (app *BaseApp) EndBlock(ctx context.Context, req types.EndBlockRequest) (types.EndBlockResponse, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if err := app.expectPhase("EndBlock", phaseBlockOpen); err != nil {
		return types.EndBlockResponse{}, err
	}
	bctx := app.block.ctx
	if req.Height != bctx.BlockHeight() {
		return types.EndBlockResponse{}, appcore.ErrInvalidHeight.Wrapf("open block is %d, got %d", bctx.BlockHeight(), req.Height)
	}
	hctx := bctx.WithContext(ctx).WithEventManager(sdk.NewEventManager())
	updates, events, err := app.safeEndBlock(hctx)
	if err != nil {
		return types.EndBlockResponse{}, err
	}
	app.phase = phaseBlockClosing
	return types.EndBlockResponse{ValidatorUpdates: updates, Events: events}, nil
}

// Commit implements appcore.Application. A persistence failure is a
// HaltError; the previous version stays the published one.
func (app *BaseApp) Commit(context.Context) (types.CommitResult, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if err := app.expectPhase("Commit", phaseBlockClosing); err != nil {
		return types.CommitResult{}, err
	}
	height := app.block.ctx.BlockHeight()
	start := time.Now()
	info, err := app.cms.Commit(app.block.scope)
	if err != nil {
		app.logger.Error("Failed to commit state.", zap.Uint64("height", height), zap.Error(err))
		return types.CommitResult{}, appcore.WrapHalt(err, height, "commit failed")
	}
	if info.Version != height {
		return types.CommitResult{}, appcore.WrapHalt(errors.Errorf("committed version %d", info.Version), height, "version does not match block height")
	}
	_commitMtc.Observe(time.Since(start).Seconds())
	_heightMtc.Set(float64(info.Version))

	app.block = nil
	app.phase = phaseIdle
	snap := app.cms.Snapshot()
	app.logger.Debug("Committed block.",
		zap.Uint64("height", info.Version),
		zap.String("appHash", snap.AppHash().String()))
	return types.CommitResult{Version: info.Version, AppHash: snap.AppHash()}, nil
}

// CheckTx implements appcore.Application. It runs the pipeline on a
// throwaway scope over the last committed snapshot.
func (app *BaseApp) CheckTx(ctx context.Context, raw types.Tx, mctx types.MempoolContext) (types.GateVerdict, error) {
	mode := sdk.ExecModeCheck
	if mctx == types.MempoolRevalidation {
		mode = sdk.ExecModeReCheck
	}
	sctx := app.snapshotContext(ctx, mode)

	decoded, err := app.decodeTx(sctx, raw)
	if err != nil {
		return verdictFromError(err, 0, 0), nil
	}
	gasWanted := decoded.Fee().GasLimit
	var gasUsed uint64
	err = func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicToError(r)
			}
		}()
		pctx, err := app.pipeline.Process(sctx, decoded, false)
		gasUsed = pctx.GasMeter().GasConsumedToLimit()
		return err
	}()
	if err != nil {
		if halt, ok := appcore.IsHalt(err); ok {
			return types.GateVerdict{}, halt
		}
		return verdictFromError(err, gasWanted, gasUsed), nil
	}

	var sender string
	if msgs := decoded.GetMsgs(); len(msgs) > 0 && len(msgs[0].Signers()) > 0 {
		sender = msgs[0].Signers()[0].String()
	}
	var priority int64
	if fee := decoded.Fee().Amount; fee.Denom != "" && gasWanted > 0 {
		if v, err := fee.Int(); err == nil && v.IsUint64() {
			priority = int64(v.Uint64() / gasWanted)
		}
	}
	return types.GateVerdict{
		Priority:  priority,
		Sender:    sender,
		GasWanted: gasWanted,
		GasUsed:   gasUsed,
	}, nil
}

func verdictFromError(err error, gasWanted, gasUsed uint64) types.GateVerdict {
	codespace, code, log := appcore.ResultInfo(err)
	return types.GateVerdict{Code: code, Codespace: codespace, Info: log, GasWanted: gasWanted, GasUsed: gasUsed}
}

// Simulate implements appcore.Simulator. The tx runs with handlers and an
// unbounded gas meter on a throwaway scope; the signature may be omitted.
func (app *BaseApp) Simulate(ctx context.Context, raw types.Tx) (types.TxOutcome, error) {
	return app.runTx(app.snapshotContext(ctx, sdk.ExecModeSimulate), raw)
}

// snapshotContext returns a context over a throwaway scope on the last
// committed snapshot, positioned at the next height.
func (app *BaseApp) snapshotContext(ctx context.Context, mode sdk.ExecMode) sdk.Context {
	snap := app.cms.Snapshot()
	cs := app.chain.Load()
	header := sdk.Header{ChainID: cs.chainID, Height: snap.Version() + 1}
	return sdk.NewContext(snap.CacheMultiStore(), header, mode, app.logger).
		WithContext(ctx).
		WithConsensusParams(cs.params).
		WithGasConfig(app.gasConfig)
}
