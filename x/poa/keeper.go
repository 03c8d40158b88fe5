package poa

import (
	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/crypto"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/types"
)

var (
	_validatorPrefix = []byte{0x01}
	_pendingPrefix   = []byte{0x02}
	_authorityKey    = []byte{0x03}
)

func prefixed(prefix []byte, addr types.ValidatorAddress) []byte {
	return append(append([]byte{}, prefix...), addr[:]...)
}

// ValidatorAddressOf derives the validator address of a key.
func ValidatorAddressOf(pk types.PublicKey) (types.ValidatorAddress, error) {
	pub, err := crypto.PubKeyFromProto(pk)
	if err != nil {
		return types.ValidatorAddress{}, err
	}
	return types.ValidatorAddress(pub.Address()), nil
}

// Keeper stores the authority, the current set and the queued updates.
type Keeper struct {
	key *store.StoreKey
}

// NewKeeper returns a keeper over key.
func NewKeeper(key *store.StoreKey) Keeper { return Keeper{key: key} }

// Authority returns the account allowed to change the set.
func (k Keeper) Authority(ctx sdk.Context) sdk.AccAddress {
	var addr sdk.AccAddress
	copy(addr[:], ctx.KVStore(k.key).Get(_authorityKey))
	return addr
}

// SetAuthority stores the authority.
func (k Keeper) SetAuthority(ctx sdk.Context, addr sdk.AccAddress) {
	ctx.KVStore(k.key).Set(_authorityKey, addr[:])
}

func (k Keeper) put(ctx sdk.Context, prefix []byte, v Validator) {
	bz, err := cramberry.Marshal(&v)
	if err != nil {
		panic(err)
	}
	ctx.KVStore(k.key).Set(prefixed(prefix, v.Address), bz)
}

func (k Keeper) list(ctx sdk.Context, prefix []byte) []Validator {
	it := store.PrefixIterator(ctx.KVStore(k.key), prefix)
	defer it.Close()
	var out []Validator
	for ; it.Valid(); it.Next() {
		var v Validator
		if err := cramberry.Unmarshal(it.Value(), &v); err != nil {
			panic(appcore.NewHaltError(ctx.BlockHeight(), "corrupted validator record: "+err.Error()))
		}
		out = append(out, v)
	}
	return out
}

// Validators returns the current set ordered by address.
func (k Keeper) Validators(ctx sdk.Context) []Validator {
	return k.list(ctx, _validatorPrefix)
}

// SetValidator writes v into the current set. Power 0 removes it.
func (k Keeper) SetValidator(ctx sdk.Context, v Validator) {
	if v.Power == 0 {
		ctx.KVStore(k.key).Delete(prefixed(_validatorPrefix, v.Address))
		return
	}
	k.put(ctx, _validatorPrefix, v)
}

// QueueUpdate records an update to be applied at end of block. A later
// update for the same validator in the same block replaces the earlier.
func (k Keeper) QueueUpdate(ctx sdk.Context, v Validator) {
	k.put(ctx, _pendingPrefix, v)
}

// ApplyPending moves the queued updates into the set and returns them in
// address order.
func (k Keeper) ApplyPending(ctx sdk.Context) []types.ValidatorUpdate {
	pending := k.list(ctx, _pendingPrefix)
	if len(pending) == 0 {
		return nil
	}
	kv := ctx.KVStore(k.key)
	updates := make([]types.ValidatorUpdate, 0, len(pending))
	for _, v := range pending {
		kv.Delete(prefixed(_pendingPrefix, v.Address))
		k.SetValidator(ctx, v)
		updates = append(updates, types.ValidatorUpdate{PubKey: v.PubKey, Power: v.Power})
	}
	return updates
}
