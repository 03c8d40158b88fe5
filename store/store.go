// Package store defines the interfaces shared by the layers of the
// versioned state: committed snapshots, copy-on-write scopes and
// gas-metered views.
package store

import (
	"fmt"
	"strings"
)

// Iterator walks a key range. Keys and values returned must not be
// modified by the caller.
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() []byte
	Close() error
}

// KVStore is an ordered byte-key to byte-value mapping. Reads never fail;
// a nil or empty key is a programming error and panics.
type KVStore interface {
	// Get returns nil if the key is absent.
	Get(key []byte) []byte
	Has(key []byte) bool
	Set(key, value []byte)
	Delete(key []byte)
	// Iterator walks [start, end) ascending. Nil bounds are open.
	Iterator(start, end []byte) Iterator
	// ReverseIterator walks [start, end) descending.
	ReverseIterator(start, end []byte) Iterator
}

// CacheKVStore is a scope over a parent KVStore. Writes are buffered until
// Write merges them into the parent.
type CacheKVStore interface {
	KVStore
	Write()
}

// MultiStore groups the named sub-stores of the application.
type MultiStore interface {
	GetKVStore(key *StoreKey) KVStore
	CacheMultiStore() CacheMultiStore
}

// CacheMultiStore is a scope over every sub-store of a MultiStore.
type CacheMultiStore interface {
	MultiStore
	// Write merges the buffered writes of every sub-store into the parent,
	// in sorted store-name order.
	Write()
}

// StoreKey names a sub-store. Keys are compared by pointer so a module can
// only reach the stores it was handed.
type StoreKey struct {
	name string
}

// NewKVStoreKey returns a key for the named sub-store.
func NewKVStoreKey(name string) *StoreKey {
	if name == "" || strings.ContainsAny(name, "/ ") {
		panic(fmt.Sprintf("invalid store name %q", name))
	}
	return &StoreKey{name: name}
}

// Name returns the store name.
func (k *StoreKey) Name() string { return k.name }

func (k *StoreKey) String() string { return fmt.Sprintf("StoreKey{%s}", k.name) }

// AssertValidKey panics on a nil or empty key.
func AssertValidKey(key []byte) {
	if len(key) == 0 {
		panic("key is nil or empty")
	}
}

// AssertValidValue panics on a nil value.
func AssertValidValue(value []byte) {
	if value == nil {
		panic("value is nil")
	}
}
