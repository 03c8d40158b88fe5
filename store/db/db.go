// Package db provides the persistent key/value backends the versioned
// store writes committed state to.
package db

import (
	"bytes"

	"github.com/pkg/errors"
)

var (
	// ErrNotExist indicates the key does not exist in the database
	ErrNotExist = errors.New("not exist in DB")
	// ErrIO indicates the generic error of DB I/O operation
	ErrIO = errors.New("DB I/O operation error")
	// ErrClosed indicates the database was used after Close
	ErrClosed = errors.New("DB is closed")
	// ErrUnknownBackend indicates the configured backend name is not supported
	ErrUnknownBackend = errors.New("unknown DB backend")
)

// KVStore is the interface of a persistent, ordered key/value store.
// Keys are compared as raw bytes.
type KVStore interface {
	// Get returns a copy of the value, or ErrNotExist.
	Get(key []byte) ([]byte, error)
	// Has reports whether key exists.
	Has(key []byte) (bool, error)
	// Iterate calls fn for every pair whose key starts with prefix in
	// ascending key order until fn returns false. Slices passed to fn are
	// only valid for the duration of the call.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
	// NewBatch starts an atomic write batch.
	NewBatch() Batch
	// Close releases the underlying resources.
	Close() error
}

// Batch collects writes that are applied atomically by Write.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	// Len returns the number of queued operations.
	Len() int
	// Write applies all queued operations atomically. When the store was
	// opened with Sync the write is durable on return.
	Write() error
}

// prefixEnd returns the smallest key greater than every key starting with
// prefix, or nil if there is none.
func prefixEnd(prefix []byte) []byte {
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

type writeOp struct {
	key    []byte
	value  []byte
	delete bool
}

// opBatch is the batch used by backends without a native batch type.
type opBatch struct {
	ops   []writeOp
	write func([]writeOp) error
}

func (b *opBatch) Set(key, value []byte) {
	b.ops = append(b.ops, writeOp{key: bytes.Clone(key), value: bytes.Clone(value)})
}

func (b *opBatch) Delete(key []byte) {
	b.ops = append(b.ops, writeOp{key: bytes.Clone(key), delete: true})
}

func (b *opBatch) Len() int { return len(b.ops) }

func (b *opBatch) Write() error {
	err := b.write(b.ops)
	b.ops = nil
	return err
}
