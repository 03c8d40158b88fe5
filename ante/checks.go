package ante

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/crypto"
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/auth"
)

// --- ValidateBasic ---

type validateBasic struct {
	accounts AccountKeeper
}

// NewValidateBasic returns the stateless envelope check: message
// validity, memo length and timeout height. Simulation may omit the
// signature.
func NewValidateBasic(ak AccountKeeper) Check { return validateBasic{accounts: ak} }

func (validateBasic) Name() string { return "validate_basic" }

func (c validateBasic) Run(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	if err := t.ValidateBasic(); err != nil {
		if !(simulate && errors.Is(err, appcore.ErrNoSignatures)) {
			return ctx, err
		}
	}
	params := c.accounts.GetParams(ctx)
	if uint64(len(t.Memo())) > params.MaxMemoCharacters {
		return ctx, appcore.ErrMemoTooLarge.Wrapf("%d > %d", len(t.Memo()), params.MaxMemoCharacters)
	}
	if th := t.Tx.Body.TimeoutHeight; th > 0 && ctx.BlockHeight() > th {
		return ctx, appcore.ErrInvalidHeight.Wrapf("tx timed out at height %d, current %d", th, ctx.BlockHeight())
	}
	return ctx, nil
}

// signerAccount resolves the account the tx is signed for. Every message
// signer must be that account.
func signerAccount(ctx sdk.Context, ak AccountKeeper, t *tx.Decoded) (*auth.Account, crypto.PubKey, error) {
	pub, err := crypto.PubKeyFromProto(t.Signer().PubKey)
	if err != nil {
		return nil, nil, err
	}
	addr := pub.Address()
	for _, msg := range t.GetMsgs() {
		for _, s := range msg.Signers() {
			if s != addr {
				return nil, nil, appcore.ErrUnauthorized.Wrapf("message %s requires signer %s, tx signed by %s", msg.TypeURL(), s, addr)
			}
		}
	}
	acc, ok := ak.GetAccount(ctx, addr)
	if !ok {
		return nil, nil, appcore.ErrUnknownAddress.Wrapf("account %s does not exist", addr)
	}
	return acc, pub, nil
}

// --- SigVerify ---

type sigVerify struct {
	accounts AccountKeeper
}

// NewSigVerify returns the authentication check. It binds the public key
// to the account on first use and verifies the signature over the sign
// bytes. Verification is skipped on mempool recheck and in simulation.
func NewSigVerify(ak AccountKeeper) Check { return sigVerify{accounts: ak} }

func (sigVerify) Name() string { return "sig_verify" }

func (c sigVerify) Run(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	acc, pub, err := signerAccount(ctx, c.accounts, t)
	if err != nil {
		return ctx, err
	}
	wire := crypto.ToProto(pub)
	switch {
	case acc.PubKey == nil:
		acc.PubKey = &wire
		c.accounts.SetAccount(ctx, acc)
	case acc.PubKey.Type != wire.Type || string(acc.PubKey.Data) != string(wire.Data):
		return ctx, appcore.ErrInvalidPubKey.Wrapf("public key does not match account %s", acc.Address)
	}

	params := c.accounts.GetParams(ctx)
	switch pub.Type() {
	case types.KeyTypeSecp256k1:
		ctx.GasMeter().ConsumeGas(params.SigVerifyCostSecp256k1, "ante verify: secp256k1")
	case types.KeyTypeEd25519:
		ctx.GasMeter().ConsumeGas(params.SigVerifyCostEd25519, "ante verify: ed25519")
	}
	if simulate || ctx.IsReCheckTx() {
		return ctx, nil
	}
	signBytes, err := t.SignBytes(ctx.ChainID(), acc.AccountNumber)
	if err != nil {
		return ctx, errors.Wrap(appcore.ErrTxDecode, err.Error())
	}
	if !pub.VerifySignature(signBytes, t.Tx.Signature) {
		return ctx, appcore.ErrUnauthorized.Wrapf("signature verification failed; verify account number (%d), sequence (%d) and chain-id (%s)",
			acc.AccountNumber, acc.Sequence, ctx.ChainID())
	}
	return ctx, nil
}

// --- Sequence ---

type sequence struct {
	accounts AccountKeeper
}

// NewSequence returns the replay check. The tx sequence must equal the
// account sequence, which is then incremented.
func NewSequence(ak AccountKeeper) Check { return sequence{accounts: ak} }

func (sequence) Name() string { return "sequence" }

func (c sequence) Run(ctx sdk.Context, t *tx.Decoded, _ bool) (sdk.Context, error) {
	acc, _, err := signerAccount(ctx, c.accounts, t)
	if err != nil {
		return ctx, err
	}
	if got := t.Signer().Sequence; got != acc.Sequence {
		return ctx, appcore.ErrInvalidSequence.Wrapf("account sequence mismatch, expected %d, got %d", acc.Sequence, got)
	}
	acc.Sequence++
	c.accounts.SetAccount(ctx, acc)
	return ctx, nil
}

// --- DeductFee ---

type deductFee struct {
	bank         BankKeeper
	feeCollector string
	minGasPrice  sdk.Coin
}

// NewDeductFee returns the fee check. The declared fee is moved to the
// fee collector inside the tx scope. Mempool checks also enforce the
// minimum gas price.
func NewDeductFee(bk BankKeeper, feeCollector string, minGasPrice sdk.Coin) Check {
	return deductFee{bank: bk, feeCollector: feeCollector, minGasPrice: minGasPrice}
}

func (deductFee) Name() string { return "deduct_fee" }

func (c deductFee) Run(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	fee := t.Fee()
	if ctx.IsCheckTx() && !simulate && c.minGasPrice.Denom != "" && !c.minGasPrice.IsZero() {
		required, overflow := new(uint256.Int).MulOverflow(c.minGasPrice.MustInt(), uint256.NewInt(fee.GasLimit))
		if overflow {
			return ctx, appcore.ErrInsufficientFee.Wrap("required fee overflows")
		}
		var paid *uint256.Int
		if fee.Amount.Denom == c.minGasPrice.Denom {
			paid = fee.Amount.MustInt()
		} else {
			paid = new(uint256.Int)
		}
		if paid.Lt(required) {
			return ctx, appcore.ErrInsufficientFee.Wrapf("got %s, required %s", fee.Amount, sdk.FormatAmount(required, c.minGasPrice.Denom))
		}
	}
	if fee.Amount.Denom == "" || fee.Amount.IsZero() {
		return ctx, nil
	}
	pub, err := crypto.PubKeyFromProto(t.Signer().PubKey)
	if err != nil {
		return ctx, err
	}
	payer := pub.Address()
	if err := c.bank.SendCoinsFromAccountToModule(ctx, payer, c.feeCollector, sdk.Coins{fee.Amount}); err != nil {
		return ctx, errors.Wrapf(err, "failed to deduct fee %s", fee.Amount)
	}
	ctx.EventManager().Emit(sdk.NewEvent(sdk.EventTypeTx,
		sdk.NewAttribute(sdk.AttributeKeyFee, fee.Amount.String()),
		sdk.NewAttribute(sdk.AttributeKeySender, payer.String()),
	))
	return ctx, nil
}

// --- GasSetup ---

type gasSetup struct {
	accounts AccountKeeper
}

// NewGasSetup returns the gas-limit check. It charges the tx size,
// replaces the unmetered pipeline meter with one bounded by the declared
// limit, and carries the gas consumed so far into it. Simulation keeps an
// unbounded meter so the full cost can be measured.
func NewGasSetup(ak AccountKeeper) Check { return gasSetup{accounts: ak} }

func (gasSetup) Name() string { return "gas_setup" }

func (c gasSetup) Run(ctx sdk.Context, t *tx.Decoded, simulate bool) (sdk.Context, error) {
	limit := t.Fee().GasLimit
	if maxGas := ctx.ConsensusParams().MaxGas; maxGas > 0 && limit > maxGas && !simulate {
		return ctx, appcore.ErrInvalidGasLimit.Wrapf("gas limit %d exceeds block max gas %d", limit, maxGas)
	}
	params := c.accounts.GetParams(ctx)
	ctx.GasMeter().ConsumeGas(params.TxSizeCostPerByte*uint64(t.Size), "txSize")
	consumed := ctx.GasMeter().GasConsumed()

	if simulate {
		return ctx, nil
	}
	if consumed > limit {
		return ctx, appcore.ErrOutOfGas.Wrapf("pre-processing used %d, limit %d", consumed, limit)
	}
	meter := gas.NewMeter(limit)
	meter.ConsumeGas(consumed, "ante")
	return ctx.WithGasMeter(meter), nil
}
