package baseapp

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/types"
)

func (app *BaseApp) decodeTx(ctx sdk.Context, raw []byte) (*tx.Decoded, error) {
	if max := ctx.ConsensusParams().MaxTxBytes; max > 0 && uint64(len(raw)) > max {
		return nil, appcore.ErrInvalidRequest.Wrapf("tx size %d exceeds max %d", len(raw), max)
	}
	return tx.Decode(raw, app.registry)
}

// runTx executes one transaction on the scope carried by ctx.
//
// The pipeline writes into a tx scope and the handlers into a msg scope
// nested inside it. A pipeline failure discards both. A handler failure,
// including running out of gas, discards only the msg scope, so the fee
// and the sequence increment are kept. The returned error is non-nil only
// for a HaltError.
func (app *BaseApp) runTx(ctx sdk.Context, raw []byte) (types.TxOutcome, error) {
	mode := ctx.Mode()
	simulate := mode == sdk.ExecModeSimulate

	decoded, err := app.decodeTx(ctx, raw)
	if err != nil {
		return outcomeFromError(err, 0, 0, nil), nil
	}
	gasWanted := decoded.Fee().GasLimit

	if mode == sdk.ExecModeDeliver && ctx.BlockGasMeter() != nil && ctx.BlockGasMeter().IsOutOfGas() {
		return outcomeFromError(appcore.ErrOutOfGas.Wrap("block gas limit reached"), gasWanted, 0, nil), nil
	}

	txScope := ctx.MultiStore().CacheMultiStore()
	txCtx := ctx.WithMultiStore(txScope).
		WithEventManager(sdk.NewEventManager()).
		WithGasMeter(gas.NewInfiniteMeter()).
		WithTxBytes(raw)

	pctx, err := app.runPipeline(txCtx, decoded, simulate)
	if err != nil {
		if halt, ok := appcore.IsHalt(err); ok {
			return types.TxOutcome{}, halt
		}
		return outcomeFromError(err, gasWanted, pctx.GasMeter().GasConsumedToLimit(), nil), nil
	}
	pipelineEvents := pctx.EventManager().Events()

	msgScope := txScope.CacheMultiStore()
	mctx := pctx.WithMultiStore(msgScope).WithEventManager(sdk.NewEventManager())
	result, err := app.runMsgs(mctx, decoded.GetMsgs())
	gasUsed := pctx.GasMeter().GasConsumedToLimit()
	if mode == sdk.ExecModeDeliver {
		app.consumeBlockGas(ctx, gasUsed)
	}
	if err != nil {
		if halt, ok := appcore.IsHalt(err); ok {
			return types.TxOutcome{}, halt
		}
		txScope.Write()
		return outcomeFromError(err, gasWanted, gasUsed, pipelineEvents), nil
	}
	msgScope.Write()
	txScope.Write()

	return types.TxOutcome{
		Data:      result.Data,
		GasWanted: gasWanted,
		GasUsed:   gasUsed,
		Events:    append(pipelineEvents, result.Events...),
	}, nil
}

func (app *BaseApp) runPipeline(ctx sdk.Context, decoded *tx.Decoded, simulate bool) (out sdk.Context, err error) {
	out = ctx
	defer func() {
		if r := recover(); r != nil {
			err = app.recovered(ctx, r)
		}
	}()
	return app.pipeline.Process(ctx, decoded, simulate)
}

// runMsgs routes every message in order. The first failure aborts the rest.
func (app *BaseApp) runMsgs(ctx sdk.Context, msgs []sdk.Msg) (result sdk.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = app.recovered(ctx, r)
		}
	}()
	for i, msg := range msgs {
		handler, err := app.registry.Route(msg.TypeURL())
		if err != nil {
			return sdk.Result{}, err
		}
		res, err := handler(ctx, msg)
		if err != nil {
			return sdk.Result{}, errors.Wrapf(err, "message %d", i)
		}
		if res != nil {
			result.Data = append(result.Data, res.Data...)
			result.Events = append(result.Events, res.Events...)
		}
	}
	result.Events = append(ctx.EventManager().Events(), result.Events...)
	return result, nil
}

func (app *BaseApp) recovered(ctx sdk.Context, r interface{}) error {
	err := panicToError(r)
	switch {
	case errors.Is(err, appcore.ErrOutOfGas):
		meter := ctx.GasMeter()
		return errors.Wrapf(err, "gasWanted: %d, gasUsed: %d", meter.Limit(), meter.GasConsumed())
	case errors.Is(err, appcore.ErrPanic):
		ctx.Logger().Error("Recovered panic while executing tx.", zap.Error(err), zap.Stack("stack"))
	}
	return err
}

// consumeBlockGas charges used to the block meter without exceeding its
// limit. Once the limit is reached later txs of the block are rejected.
func (app *BaseApp) consumeBlockGas(ctx sdk.Context, used uint64) {
	meter := ctx.BlockGasMeter()
	if meter == nil {
		return
	}
	if rem := meter.GasRemaining(); used > rem {
		used = rem
	}
	meter.ConsumeGas(used, "block gas")
}

func outcomeFromError(err error, gasWanted, gasUsed uint64, events []types.Event) types.TxOutcome {
	codespace, code, log := appcore.ResultInfo(err)
	return types.TxOutcome{
		Code:      code,
		Codespace: codespace,
		Log:       log,
		GasWanted: gasWanted,
		GasUsed:   gasUsed,
		Events:    events,
	}
}
