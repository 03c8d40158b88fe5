// Package mem holds the in-memory B-tree layer every sub-store keeps its
// working state in. Committed snapshots are lazy copy-on-write clones of it.
package mem

import (
	"bytes"

	"github.com/google/btree"

	"github.com/blockberries/appcore/store"
)

const _degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// Store is a B-tree backed KVStore. It is not safe for concurrent writes;
// a read-only clone may be read concurrently with writes to the original.
type Store struct {
	tree     *btree.BTreeG[item]
	readOnly bool
}

var _ store.KVStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{tree: btree.NewG(_degree, less)}
}

// Get implements store.KVStore.
func (s *Store) Get(key []byte) []byte {
	store.AssertValidKey(key)
	it, ok := s.tree.Get(item{key: key})
	if !ok {
		return nil
	}
	return it.value
}

// Has implements store.KVStore.
func (s *Store) Has(key []byte) bool {
	store.AssertValidKey(key)
	return s.tree.Has(item{key: key})
}

// Set implements store.KVStore. Key and value are copied.
func (s *Store) Set(key, value []byte) {
	s.assertWritable()
	store.AssertValidKey(key)
	store.AssertValidValue(value)
	s.tree.ReplaceOrInsert(item{key: bytes.Clone(key), value: bytes.Clone(value)})
}

// Delete implements store.KVStore.
func (s *Store) Delete(key []byte) {
	s.assertWritable()
	store.AssertValidKey(key)
	s.tree.Delete(item{key: key})
}

// Iterator implements store.KVStore.
func (s *Store) Iterator(start, end []byte) store.Iterator {
	return store.NewSliceIterator(s.collect(start, end, false))
}

// ReverseIterator implements store.KVStore.
func (s *Store) ReverseIterator(start, end []byte) store.Iterator {
	return store.NewSliceIterator(s.collect(start, end, true))
}

// Len returns the number of keys.
func (s *Store) Len() int { return s.tree.Len() }

// Pairs returns every pair in ascending key order.
func (s *Store) Pairs() []store.KVPair { return s.collect(nil, nil, false) }

// Snapshot returns a read-only clone that shares structure with s until
// either side is modified.
func (s *Store) Snapshot() *Store {
	return &Store{tree: s.tree.Clone(), readOnly: true}
}

func (s *Store) assertWritable() {
	if s.readOnly {
		panic("write to a read-only snapshot")
	}
}

func (s *Store) collect(start, end []byte, reverse bool) []store.KVPair {
	var pairs []store.KVPair
	visit := func(it item) bool {
		pairs = append(pairs, store.KVPair{Key: it.key, Value: it.value})
		return true
	}
	switch {
	case start == nil && end == nil:
		s.tree.Ascend(visit)
	case start == nil:
		s.tree.AscendLessThan(item{key: end}, visit)
	case end == nil:
		s.tree.AscendGreaterOrEqual(item{key: start}, visit)
	default:
		if bytes.Compare(start, end) < 0 {
			s.tree.AscendRange(item{key: start}, item{key: end}, visit)
		}
	}
	if reverse {
		for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		}
	}
	return pairs
}
