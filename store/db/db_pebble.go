package db

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleDB is KVStore implementation based on pebble DB
type PebbleDB struct {
	db     *pebble.DB
	wo     *pebble.WriteOptions
	closed atomic.Bool
}

// NewPebbleDB opens (or creates) the database under cfg.Path().
func NewPebbleDB(cfg Config) (*PebbleDB, error) {
	db, err := pebble.Open(cfg.Path(), &pebble.Options{
		ReadOnly: cfg.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	wo := pebble.NoSync
	if cfg.Sync {
		wo = pebble.Sync
	}
	return &PebbleDB{db: db, wo: wo}, nil
}

// Get retrieves a record
func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	v, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotExist, "key = %x", key)
		}
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	val := make([]byte, len(v))
	copy(val, v)
	return val, closer.Close()
}

// Has reports whether the key exists
func (p *PebbleDB) Has(key []byte) (bool, error) {
	_, err := p.Get(key)
	if errors.Cause(err) == ErrNotExist {
		return false, nil
	}
	return err == nil, err
}

// Iterate walks the keys under prefix in ascending order
func (p *PebbleDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	if p.closed.Load() {
		return ErrClosed
	}
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// NewBatch starts a batch backed by pebble.Batch
func (p *PebbleDB) NewBatch() Batch {
	return &pebbleBatch{db: p, b: p.db.NewBatch()}
}

// Close closes the DB
func (p *PebbleDB) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

type pebbleBatch struct {
	db *PebbleDB
	b  *pebble.Batch
	n  int
}

func (b *pebbleBatch) Set(key, value []byte) {
	_ = b.b.Set(key, value, nil)
	b.n++
}

func (b *pebbleBatch) Delete(key []byte) {
	_ = b.b.Delete(key, nil)
	b.n++
}

func (b *pebbleBatch) Len() int { return b.n }

func (b *pebbleBatch) Write() error {
	if b.db.closed.Load() {
		return ErrClosed
	}
	err := b.b.Commit(b.db.wo)
	b.b.Close()
	b.b = b.db.db.NewBatch()
	b.n = 0
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}
