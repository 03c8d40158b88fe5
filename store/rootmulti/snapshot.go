package rootmulti

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/pkg/errors"

	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachemulti"
	"github.com/blockberries/appcore/store/mem"
	"github.com/blockberries/appcore/store/merkle"
	"github.com/blockberries/appcore/types"
)

// Proof op types.
const (
	ProofOpKV         = "appcore:kv"
	ProofOpMultiStore = "appcore:multistore"
)

// ErrKeyNotFound is returned by Prove for an absent key.
var ErrKeyNotFound = errors.New("key not found")

// Snapshot is an immutable view of one committed version. It is safe for
// concurrent use and stays valid while later versions are written.
type Snapshot struct {
	info   CommitInfo
	hash   []byte
	stores map[*store.StoreKey]*mem.Store
	names  map[string]*store.StoreKey
}

var _ store.MultiStore = (*Snapshot)(nil)

// Version returns the committed version, 0 for an empty store.
func (s *Snapshot) Version() uint64 { return s.info.Version }

// Hash returns the app hash of the version.
func (s *Snapshot) Hash() []byte { return s.hash }

// AppHash returns the hash as a fixed array.
func (s *Snapshot) AppHash() types.AppHash {
	var h types.AppHash
	copy(h[:], s.hash)
	return h
}

// StoreKey resolves a store name.
func (s *Snapshot) StoreKey(name string) (*store.StoreKey, bool) {
	key, ok := s.names[name]
	return key, ok
}

// GetKVStore returns the read-only sub-store. Writes panic.
func (s *Snapshot) GetKVStore(key *store.StoreKey) store.KVStore {
	kv, ok := s.stores[key]
	if !ok {
		panic(fmt.Sprintf("kv store with key %v has not been registered in stores", key))
	}
	return kv
}

// CacheMultiStore opens a throwaway scope over the snapshot.
func (s *Snapshot) CacheMultiStore() store.CacheMultiStore {
	parents := make(map[*store.StoreKey]store.KVStore, len(s.stores))
	for key, kv := range s.stores {
		parents[key] = kv
	}
	return cachemulti.NewStore(parents)
}

// Prove returns the value of key in the named store together with a proof
// against the snapshot's app hash.
func (s *Snapshot) Prove(storeName string, key []byte) ([]byte, *types.MerkleProof, error) {
	sk, ok := s.names[storeName]
	if !ok {
		return nil, nil, errors.Errorf("unknown store %q", storeName)
	}
	kvProof, ok := merkle.ProofFromPairs(s.stores[sk].Pairs(), key)
	if !ok {
		return nil, nil, errors.Wrapf(ErrKeyNotFound, "%s/%x", storeName, key)
	}
	storeProof, ok := merkle.ProofFromPairs(s.info.pairs(), []byte(storeName))
	if !ok {
		return nil, nil, errors.Errorf("store %q missing from commit info", storeName)
	}
	kvBytes, err := cramberry.Marshal(kvProof)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode kv proof")
	}
	storeBytes, err := cramberry.Marshal(storeProof)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to encode store proof")
	}
	return s.stores[sk].Get(key), &types.MerkleProof{Ops: []types.ProofOp{
		{Type: ProofOpKV, Key: key, Data: kvBytes},
		{Type: ProofOpMultiStore, Key: []byte(storeName), Data: storeBytes},
	}}, nil
}

// VerifyProof checks a proof produced by Prove: value is stored under key in
// the sub-store, whose hash is committed under root.
func VerifyProof(root []byte, storeName string, key, value []byte, proof *types.MerkleProof) error {
	if proof == nil || len(proof.Ops) != 2 {
		return errors.Wrap(merkle.ErrInvalidProof, "expected two proof ops")
	}
	kvOp, storeOp := proof.Ops[0], proof.Ops[1]
	if kvOp.Type != ProofOpKV || storeOp.Type != ProofOpMultiStore {
		return errors.Wrapf(merkle.ErrInvalidProof, "unexpected op types %s, %s", kvOp.Type, storeOp.Type)
	}
	if string(storeOp.Key) != storeName {
		return errors.Wrapf(merkle.ErrInvalidProof, "proof is for store %q", storeOp.Key)
	}
	var kvProof, storeProof merkle.Proof
	if err := cramberry.Unmarshal(kvOp.Data, &kvProof); err != nil {
		return errors.Wrap(err, "failed to decode kv proof")
	}
	if err := cramberry.Unmarshal(storeOp.Data, &storeProof); err != nil {
		return errors.Wrap(err, "failed to decode store proof")
	}
	storeHash, err := kvProof.ComputeRoot()
	if err != nil {
		return err
	}
	if err := kvProof.Verify(storeHash, key, value); err != nil {
		return err
	}
	return storeProof.Verify(root, []byte(storeName), storeHash)
}
