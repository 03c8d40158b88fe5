package bank

import (
	"github.com/holiman/uint256"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/x/auth"
)

var (
	_balancePrefix = []byte{0x01}
	_supplyPrefix  = []byte{0x02}
)

func balancePrefix(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, _balancePrefix...), addr[:]...)
}

// BalanceKey returns the store key of the balance of addr in denom. The
// value is the 32-byte big-endian amount.
func BalanceKey(addr sdk.AccAddress, denom string) []byte {
	return append(balancePrefix(addr), denom...)
}

func supplyKey(denom string) []byte {
	return append(append([]byte{}, _supplyPrefix...), denom...)
}

// AccountKeeper is the part of auth bank needs.
type AccountKeeper interface {
	HasAccount(ctx sdk.Context, addr sdk.AccAddress) bool
	EnsureAccount(ctx sdk.Context, addr sdk.AccAddress) *auth.Account
}

// Keeper reads and writes balances.
type Keeper struct {
	key      *store.StoreKey
	accounts AccountKeeper
}

// NewKeeper returns a keeper over key.
func NewKeeper(key *store.StoreKey, ak AccountKeeper) Keeper {
	return Keeper{key: key, accounts: ak}
}

func readInt(bz []byte) *uint256.Int {
	return new(uint256.Int).SetBytes(bz)
}

func writeInt(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// GetBalance returns the balance of addr in denom.
func (k Keeper) GetBalance(ctx sdk.Context, addr sdk.AccAddress, denom string) *uint256.Int {
	bz := ctx.KVStore(k.key).Get(BalanceKey(addr, denom))
	if bz == nil {
		return new(uint256.Int)
	}
	return readInt(bz)
}

// GetAllBalances returns the non-zero balances of addr sorted by denom.
func (k Keeper) GetAllBalances(ctx sdk.Context, addr sdk.AccAddress) sdk.Coins {
	prefix := balancePrefix(addr)
	it := store.PrefixIterator(ctx.KVStore(k.key), prefix)
	defer it.Close()
	var coins sdk.Coins
	for ; it.Valid(); it.Next() {
		denom := string(it.Key()[len(prefix):])
		coins = append(coins, sdk.NewCoin(denom, readInt(it.Value())))
	}
	return coins
}

// GetSupply returns the total supply of denom.
func (k Keeper) GetSupply(ctx sdk.Context, denom string) *uint256.Int {
	bz := ctx.KVStore(k.key).Get(supplyKey(denom))
	if bz == nil {
		return new(uint256.Int)
	}
	return readInt(bz)
}

func (k Keeper) setBalance(ctx sdk.Context, addr sdk.AccAddress, denom string, v *uint256.Int) {
	kv := ctx.KVStore(k.key)
	if v.IsZero() {
		kv.Delete(BalanceKey(addr, denom))
		return
	}
	kv.Set(BalanceKey(addr, denom), writeInt(v))
}

func (k Keeper) subCoins(ctx sdk.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	remaining := make([]*uint256.Int, len(amt))
	for i, c := range amt {
		v, err := c.Int()
		if err != nil {
			return err
		}
		bal := k.GetBalance(ctx, addr, c.Denom)
		if bal.Lt(v) {
			return appcore.ErrInsufficientFunds.Wrapf("%s < %s", sdk.FormatAmount(bal, c.Denom), c)
		}
		remaining[i] = new(uint256.Int).Sub(bal, v)
	}
	for i, c := range amt {
		k.setBalance(ctx, addr, c.Denom, remaining[i])
	}
	return nil
}

func (k Keeper) addCoins(ctx sdk.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	for _, c := range amt {
		v, err := c.Int()
		if err != nil {
			return err
		}
		sum, overflow := new(uint256.Int).AddOverflow(k.GetBalance(ctx, addr, c.Denom), v)
		if overflow {
			return appcore.ErrInvalidCoins.Wrapf("balance overflow for %s", c.Denom)
		}
		k.setBalance(ctx, addr, c.Denom, sum)
	}
	return nil
}

// SendCoins moves amt from one account to another, creating the recipient
// account if needed. Nothing is written when the sender is short.
func (k Keeper) SendCoins(ctx sdk.Context, from, to sdk.AccAddress, amt sdk.Coins) error {
	if err := amt.Validate(); err != nil {
		return err
	}
	if err := k.subCoins(ctx, from, amt); err != nil {
		return err
	}
	if err := k.addCoins(ctx, to, amt); err != nil {
		return err
	}
	k.accounts.EnsureAccount(ctx, to)
	ctx.EventManager().Emit(sdk.NewEvent(EventTypeTransfer,
		sdk.NewAttribute(AttributeKeySender, from.String()),
		sdk.NewAttribute(AttributeKeyRecipient, to.String()),
		sdk.NewAttribute(sdk.AttributeKeyAmount, amt.String()),
	))
	return nil
}

// SendCoinsFromAccountToModule pays amt into the module account.
func (k Keeper) SendCoinsFromAccountToModule(ctx sdk.Context, from sdk.AccAddress, moduleName string, amt sdk.Coins) error {
	return k.SendCoins(ctx, from, sdk.ModuleAddress(moduleName), amt)
}

// SendCoinsFromModuleToAccount pays amt out of the module account.
func (k Keeper) SendCoinsFromModuleToAccount(ctx sdk.Context, moduleName string, to sdk.AccAddress, amt sdk.Coins) error {
	return k.SendCoins(ctx, sdk.ModuleAddress(moduleName), to, amt)
}

// MintCoins credits amt to addr and raises the supply.
func (k Keeper) MintCoins(ctx sdk.Context, addr sdk.AccAddress, amt sdk.Coins) error {
	if err := amt.Validate(); err != nil {
		return err
	}
	for _, c := range amt {
		sum, overflow := new(uint256.Int).AddOverflow(k.GetSupply(ctx, c.Denom), c.MustInt())
		if overflow {
			return appcore.ErrInvalidCoins.Wrapf("supply overflow for %s", c.Denom)
		}
		ctx.KVStore(k.key).Set(supplyKey(c.Denom), writeInt(sum))
	}
	if err := k.addCoins(ctx, addr, amt); err != nil {
		return err
	}
	k.accounts.EnsureAccount(ctx, addr)
	ctx.EventManager().Emit(sdk.NewEvent(EventTypeMint,
		sdk.NewAttribute(AttributeKeyRecipient, addr.String()),
		sdk.NewAttribute(sdk.AttributeKeyAmount, amt.String()),
	))
	return nil
}
