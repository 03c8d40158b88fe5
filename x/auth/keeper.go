package auth

import (
	"encoding/binary"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
)

var (
	_accountPrefix     = []byte{0x01}
	_nextAccountNumKey = []byte{0x02}
	_paramsKey         = []byte{0x03}
)

func accountKey(addr sdk.AccAddress) []byte {
	return append(append([]byte{}, _accountPrefix...), addr[:]...)
}

// Keeper reads and writes accounts in the auth sub-store.
type Keeper struct {
	key *store.StoreKey
}

// NewKeeper returns a keeper over key.
func NewKeeper(key *store.StoreKey) Keeper {
	return Keeper{key: key}
}

// GetAccount returns the account at addr.
func (k Keeper) GetAccount(ctx sdk.Context, addr sdk.AccAddress) (*Account, bool) {
	bz := ctx.KVStore(k.key).Get(accountKey(addr))
	if bz == nil {
		return nil, false
	}
	acc := new(Account)
	if err := cramberry.Unmarshal(bz, acc); err != nil {
		panic(appcore.NewHaltError(ctx.BlockHeight(), "corrupted account "+addr.String()+": "+err.Error()))
	}
	return acc, true
}

// HasAccount reports whether addr has an account.
func (k Keeper) HasAccount(ctx sdk.Context, addr sdk.AccAddress) bool {
	return ctx.KVStore(k.key).Has(accountKey(addr))
}

// SetAccount stores acc.
func (k Keeper) SetAccount(ctx sdk.Context, acc *Account) {
	bz, err := cramberry.Marshal(acc)
	if err != nil {
		panic(err)
	}
	ctx.KVStore(k.key).Set(accountKey(acc.Address), bz)
}

// NewAccountWithAddress creates and stores an account with the next
// account number. It does not check for an existing account.
func (k Keeper) NewAccountWithAddress(ctx sdk.Context, addr sdk.AccAddress) *Account {
	acc := &Account{Address: addr, AccountNumber: k.nextAccountNumber(ctx)}
	k.SetAccount(ctx, acc)
	return acc
}

// EnsureAccount returns the account at addr, creating it if missing.
func (k Keeper) EnsureAccount(ctx sdk.Context, addr sdk.AccAddress) *Account {
	if acc, ok := k.GetAccount(ctx, addr); ok {
		return acc
	}
	return k.NewAccountWithAddress(ctx, addr)
}

func (k Keeper) nextAccountNumber(ctx sdk.Context) uint64 {
	kv := ctx.KVStore(k.key)
	var next uint64
	if bz := kv.Get(_nextAccountNumKey); bz != nil {
		next = binary.BigEndian.Uint64(bz)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next+1)
	kv.Set(_nextAccountNumKey, buf)
	return next
}

// IterateAccounts calls fn for every account in address order until fn
// returns true.
func (k Keeper) IterateAccounts(ctx sdk.Context, fn func(acc *Account) (stop bool)) {
	it := store.PrefixIterator(ctx.KVStore(k.key), _accountPrefix)
	defer it.Close()
	for ; it.Valid(); it.Next() {
		acc := new(Account)
		if err := cramberry.Unmarshal(it.Value(), acc); err != nil {
			panic(appcore.NewHaltError(ctx.BlockHeight(), "corrupted account: "+err.Error()))
		}
		if fn(acc) {
			return
		}
	}
}

// GetParams returns the module parameters.
func (k Keeper) GetParams(ctx sdk.Context) Params {
	bz := ctx.KVStore(k.key).Get(_paramsKey)
	if bz == nil {
		return DefaultParams()
	}
	var p Params
	if err := cramberry.Unmarshal(bz, &p); err != nil {
		panic(appcore.NewHaltError(ctx.BlockHeight(), "corrupted auth params: "+err.Error()))
	}
	return p
}

// SetParams stores the module parameters.
func (k Keeper) SetParams(ctx sdk.Context, p Params) {
	bz, err := cramberry.Marshal(p)
	if err != nil {
		panic(err)
	}
	ctx.KVStore(k.key).Set(_paramsKey, bz)
}
