package db

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

type memItem struct {
	key   []byte
	value []byte
}

func memLess(a, b memItem) bool { return bytes.Compare(a.key, b.key) < 0 }

// MemDB is an in-memory KVStore ordered by a B-tree. It is used by tests
// and by nodes that do not need durability.
type MemDB struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[memItem]
}

// NewMemDB returns an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{tree: btree.NewG(32, memLess)}
}

// Get retrieves a record
func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tree.Get(memItem{key: key})
	if !ok {
		return nil, errors.Wrapf(ErrNotExist, "key = %x", key)
	}
	return bytes.Clone(item.value), nil
}

// Has reports whether the key exists
func (m *MemDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Has(memItem{key: key}), nil
}

// Iterate walks the keys under prefix in ascending order
func (m *MemDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	visit := func(item memItem) bool {
		return fn(item.key, item.value)
	}
	if end := prefixEnd(prefix); end != nil {
		m.tree.AscendRange(memItem{key: prefix}, memItem{key: end}, visit)
	} else {
		m.tree.AscendGreaterOrEqual(memItem{key: prefix}, visit)
	}
	return nil
}

// NewBatch starts a batch applied under the write lock
func (m *MemDB) NewBatch() Batch {
	return &opBatch{write: m.commit}
}

func (m *MemDB) commit(ops []writeOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.delete {
			m.tree.Delete(memItem{key: op.key})
		} else {
			m.tree.ReplaceOrInsert(memItem{key: op.key, value: op.value})
		}
	}
	return nil
}

// Close is a no-op
func (m *MemDB) Close() error { return nil }
