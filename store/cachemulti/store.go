// Package cachemulti implements a scope over every sub-store of a
// MultiStore. Scopes nest: a transaction scope is a CacheMultiStore over the
// block scope, which is one over the committed layer.
package cachemulti

import (
	"fmt"
	"sort"

	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachekv"
)

// Store holds one cachekv scope per sub-store.
type Store struct {
	stores map[*store.StoreKey]*cachekv.Store
	keys   []*store.StoreKey
}

var _ store.CacheMultiStore = (*Store)(nil)

// NewStore opens a scope over the given parents. Keys are kept sorted by
// name so Write is deterministic.
func NewStore(parents map[*store.StoreKey]store.KVStore) *Store {
	cms := &Store{stores: make(map[*store.StoreKey]*cachekv.Store, len(parents))}
	for key, parent := range parents {
		cms.stores[key] = cachekv.NewStore(parent)
		cms.keys = append(cms.keys, key)
	}
	sort.Slice(cms.keys, func(i, j int) bool {
		return cms.keys[i].Name() < cms.keys[j].Name()
	})
	return cms
}

// GetKVStore returns the scope of the named sub-store. Unknown keys are a
// wiring error and panic.
func (cms *Store) GetKVStore(key *store.StoreKey) store.KVStore {
	s, ok := cms.stores[key]
	if !ok {
		panic(fmt.Sprintf("kv store with key %v has not been registered in stores", key))
	}
	return s
}

// CacheMultiStore opens a nested scope over this one.
func (cms *Store) CacheMultiStore() store.CacheMultiStore {
	parents := make(map[*store.StoreKey]store.KVStore, len(cms.stores))
	for key, s := range cms.stores {
		parents[key] = s
	}
	return NewStore(parents)
}

// Write merges every sub-store scope into its parent in sorted name order.
func (cms *Store) Write() {
	for _, key := range cms.keys {
		cms.stores[key].Write()
	}
}

// Discard drops every buffered write.
func (cms *Store) Discard() {
	for _, key := range cms.keys {
		cms.stores[key].Discard()
	}
}

// Keys returns the mounted store keys in name order.
func (cms *Store) Keys() []*store.StoreKey { return cms.keys }
