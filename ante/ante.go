// Package ante is the pre-processing pipeline: the ordered checks every
// transaction passes before its messages reach a handler.
package ante

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/x/auth"
)

// Check is one stage of the pipeline. It either passes, returning the
// context the next stage runs with, or fails with a typed error. Writes go
// to the tx scope carried by ctx.
type Check interface {
	Name() string
	Run(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error)
}

// AccountKeeper is the part of auth the pipeline needs.
type AccountKeeper interface {
	GetAccount(ctx sdk.Context, addr sdk.AccAddress) (*auth.Account, bool)
	SetAccount(ctx sdk.Context, acc *auth.Account)
	GetParams(ctx sdk.Context) auth.Params
}

// BankKeeper is the part of bank the pipeline needs.
type BankKeeper interface {
	SendCoinsFromAccountToModule(ctx sdk.Context, from sdk.AccAddress, moduleName string, amt sdk.Coins) error
}

// Pipeline runs its checks in order and stops at the first failure.
type Pipeline struct {
	checks []Check
}

// NewPipeline returns a pipeline over checks.
func NewPipeline(checks ...Check) *Pipeline {
	return &Pipeline{checks: checks}
}

// Options configure the default pipeline.
type Options struct {
	Accounts AccountKeeper
	Bank     BankKeeper
	// FeeCollector is the module account fees are paid to.
	FeeCollector string
	// MinGasPrice is the per-gas price a mempool check demands. Zero
	// disables the check.
	MinGasPrice sdk.Coin
}

// NewDefaultPipeline returns the standard chain: stateless validation,
// signature, sequence, fee deduction, gas-limit setup.
func NewDefaultPipeline(opts Options) (*Pipeline, error) {
	if opts.Accounts == nil {
		return nil, errors.New("account keeper is required")
	}
	if opts.Bank == nil {
		return nil, errors.New("bank keeper is required")
	}
	if opts.FeeCollector == "" {
		return nil, errors.New("fee collector is required")
	}
	if opts.MinGasPrice.Denom != "" {
		if err := opts.MinGasPrice.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid min gas price")
		}
	}
	return NewPipeline(
		NewValidateBasic(opts.Accounts),
		NewSigVerify(opts.Accounts),
		NewSequence(opts.Accounts),
		NewDeductFee(opts.Bank, opts.FeeCollector, opts.MinGasPrice),
		NewGasSetup(opts.Accounts),
	), nil
}

// Process runs every check. On failure the returned context must be
// discarded together with the tx scope.
func (p *Pipeline) Process(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	var err error
	for _, c := range p.checks {
		ctx, err = c.Run(ctx, t, simulate)
		if err != nil {
			ctx.Logger().Debug("Pre-processing check failed.", zap.String("check", c.Name()), zap.Error(err))
			return ctx, err
		}
	}
	return ctx, nil
}

// Names lists the checks in execution order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.checks))
	for i, c := range p.checks {
		out[i] = c.Name()
	}
	return out
}
