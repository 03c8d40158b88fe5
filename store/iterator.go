package store

import "bytes"

// KVPair is a key and its value.
type KVPair struct {
	Key   []byte
	Value []byte
}

// sliceIterator iterates a materialized, already ordered range.
type sliceIterator struct {
	pairs []KVPair
	pos   int
}

// NewSliceIterator returns an Iterator over pairs in the given order.
func NewSliceIterator(pairs []KVPair) Iterator {
	return &sliceIterator{pairs: pairs}
}

func (it *sliceIterator) Valid() bool { return it.pos < len(it.pairs) }

func (it *sliceIterator) Next() {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	it.pos++
}

func (it *sliceIterator) Key() []byte { return it.pairs[it.pos].Key }

func (it *sliceIterator) Value() []byte { return it.pairs[it.pos].Value }

func (it *sliceIterator) Close() error { return nil }

// InRange reports whether key falls within [start, end).
func InRange(key, start, end []byte) bool {
	if start != nil && bytes.Compare(key, start) < 0 {
		return false
	}
	if end != nil && bytes.Compare(key, end) >= 0 {
		return false
	}
	return true
}

// PrefixEnd returns the exclusive upper bound of all keys with prefix, or
// nil if no such bound exists.
func PrefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// PrefixIterator walks every key starting with prefix.
func PrefixIterator(kv KVStore, prefix []byte) Iterator {
	return kv.Iterator(prefix, PrefixEnd(prefix))
}
