// Package cachekv implements the copy-on-write scope: an owned write buffer
// over a non-owning parent. Reads fall through to the parent on a miss;
// writes stay in the buffer until Write.
package cachekv

import (
	"bytes"

	"github.com/google/btree"

	"github.com/blockberries/appcore/store"
)

type cValue struct {
	key     []byte
	value   []byte
	deleted bool
}

func less(a, b cValue) bool { return bytes.Compare(a.key, b.key) < 0 }

// Store wraps a parent KVStore with a write buffer. It is not safe for
// concurrent use; every scope belongs to exactly one executing call.
type Store struct {
	cache  *btree.BTreeG[cValue]
	parent store.KVStore
}

var _ store.CacheKVStore = (*Store)(nil)

// NewStore opens a scope over parent.
func NewStore(parent store.KVStore) *Store {
	return &Store{
		cache:  btree.NewG(16, less),
		parent: parent,
	}
}

// Get implements store.KVStore.
func (s *Store) Get(key []byte) []byte {
	store.AssertValidKey(key)
	if cv, ok := s.cache.Get(cValue{key: key}); ok {
		if cv.deleted {
			return nil
		}
		return cv.value
	}
	return s.parent.Get(key)
}

// Has implements store.KVStore.
func (s *Store) Has(key []byte) bool {
	return s.Get(key) != nil
}

// Set implements store.KVStore.
func (s *Store) Set(key, value []byte) {
	store.AssertValidKey(key)
	store.AssertValidValue(value)
	s.cache.ReplaceOrInsert(cValue{key: bytes.Clone(key), value: bytes.Clone(value)})
}

// Delete implements store.KVStore.
func (s *Store) Delete(key []byte) {
	store.AssertValidKey(key)
	s.cache.ReplaceOrInsert(cValue{key: bytes.Clone(key), deleted: true})
}

// Write merges the buffer into the parent in ascending key order, last
// write wins, and resets the buffer.
func (s *Store) Write() {
	s.cache.Ascend(func(cv cValue) bool {
		if cv.deleted {
			s.parent.Delete(cv.key)
		} else {
			s.parent.Set(cv.key, cv.value)
		}
		return true
	})
	s.cache.Clear(false)
}

// Discard drops every buffered write.
func (s *Store) Discard() {
	s.cache.Clear(false)
}

// Dirty reports whether the buffer holds any write.
func (s *Store) Dirty() bool { return s.cache.Len() > 0 }

// Iterator implements store.KVStore.
func (s *Store) Iterator(start, end []byte) store.Iterator {
	return s.iterator(start, end, true)
}

// ReverseIterator implements store.KVStore.
func (s *Store) ReverseIterator(start, end []byte) store.Iterator {
	return s.iterator(start, end, false)
}

func (s *Store) iterator(start, end []byte, ascending bool) store.Iterator {
	var parent store.Iterator
	if ascending {
		parent = s.parent.Iterator(start, end)
	} else {
		parent = s.parent.ReverseIterator(start, end)
	}
	var buffered []cValue
	s.cache.Ascend(func(cv cValue) bool {
		if store.InRange(cv.key, start, end) {
			buffered = append(buffered, cv)
		}
		return end == nil || bytes.Compare(cv.key, end) < 0
	})
	if !ascending {
		for i, j := 0, len(buffered)-1; i < j; i, j = i+1, j-1 {
			buffered[i], buffered[j] = buffered[j], buffered[i]
		}
	}
	return newMergedIterator(parent, buffered, ascending)
}
