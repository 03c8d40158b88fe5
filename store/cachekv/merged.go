package cachekv

import (
	"bytes"

	"github.com/blockberries/appcore/store"
)

// mergedIterator merges the parent's iterator with a snapshot of the
// buffered writes. Buffered entries shadow parent entries with the same
// key; buffered deletes hide them.
type mergedIterator struct {
	parent    store.Iterator
	cache     []cValue
	pos       int
	ascending bool
}

func newMergedIterator(parent store.Iterator, cache []cValue, ascending bool) *mergedIterator {
	it := &mergedIterator{parent: parent, cache: cache, ascending: ascending}
	it.skipDeleted()
	return it
}

func (it *mergedIterator) cacheValid() bool { return it.pos < len(it.cache) }

// compare orders the parent key against the cache key in iteration order.
func (it *mergedIterator) compare(parentKey, cacheKey []byte) int {
	c := bytes.Compare(parentKey, cacheKey)
	if it.ascending {
		return c
	}
	return -c
}

func (it *mergedIterator) Valid() bool {
	return it.parent.Valid() || it.cacheValid()
}

func (it *mergedIterator) Next() {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	switch {
	case !it.parent.Valid():
		it.pos++
	case !it.cacheValid():
		it.parent.Next()
	default:
		switch c := it.compare(it.parent.Key(), it.cache[it.pos].key); {
		case c < 0:
			it.parent.Next()
		case c == 0:
			it.parent.Next()
			it.pos++
		default:
			it.pos++
		}
	}
	it.skipDeleted()
}

func (it *mergedIterator) Key() []byte {
	if it.useCache() {
		return it.cache[it.pos].key
	}
	return it.parent.Key()
}

func (it *mergedIterator) Value() []byte {
	if it.useCache() {
		return it.cache[it.pos].value
	}
	return it.parent.Value()
}

func (it *mergedIterator) Close() error {
	return it.parent.Close()
}

func (it *mergedIterator) useCache() bool {
	if !it.cacheValid() {
		return false
	}
	if !it.parent.Valid() {
		return true
	}
	return it.compare(it.parent.Key(), it.cache[it.pos].key) >= 0
}

// skipDeleted advances past buffered deletes and the parent entries they
// shadow.
func (it *mergedIterator) skipDeleted() {
	for it.cacheValid() && it.cache[it.pos].deleted {
		if it.parent.Valid() {
			c := it.compare(it.parent.Key(), it.cache[it.pos].key)
			if c < 0 {
				return
			}
			if c == 0 {
				it.parent.Next()
			}
		}
		it.pos++
	}
}
