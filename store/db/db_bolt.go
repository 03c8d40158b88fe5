package db

import (
	"bytes"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const fileMode = 0600

var _stateBucket = []byte("state")

// BoltDB is KVStore implementation based on bolt DB. All keys live in a
// single bucket.
type BoltDB struct {
	db     *bolt.DB
	closed atomic.Bool
}

// NewBoltDB opens (or creates) the database file at cfg.Path().
func NewBoltDB(cfg Config) (*BoltDB, error) {
	path := cfg.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	db, err := bolt.Open(path, fileMode, &bolt.Options{ReadOnly: cfg.ReadOnly})
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	db.NoSync = !cfg.Sync
	if !cfg.ReadOnly {
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(_stateBucket)
			return err
		}); err != nil {
			db.Close()
			return nil, errors.Wrap(ErrIO, err.Error())
		}
	}
	return &BoltDB{db: db}, nil
}

// Get retrieves a record
func (b *BoltDB) Get(key []byte) ([]byte, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(_stateBucket)
		if bucket == nil {
			return nil
		}
		// bolt values are only valid for the life of the transaction
		if v := bucket.Get(key); v != nil {
			value = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	if value == nil {
		return nil, errors.Wrapf(ErrNotExist, "key = %x", key)
	}
	return value, nil
}

// Has reports whether the key exists
func (b *BoltDB) Has(key []byte) (bool, error) {
	_, err := b.Get(key)
	if errors.Cause(err) == ErrNotExist {
		return false, nil
	}
	return err == nil, err
}

// Iterate walks the keys under prefix in ascending order
func (b *BoltDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	if b.closed.Load() {
		return ErrClosed
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(_stateBucket)
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// NewBatch starts a batch applied in a single bolt transaction
func (b *BoltDB) NewBatch() Batch {
	return &opBatch{write: b.commit}
}

func (b *BoltDB) commit(ops []writeOp) error {
	if b.closed.Load() {
		return ErrClosed
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(_stateBucket)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if op.delete {
				err = bucket.Delete(op.key)
			} else {
				err = bucket.Put(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// Close closes the DB
func (b *BoltDB) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}
