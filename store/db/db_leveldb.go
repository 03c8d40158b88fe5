package db

import (
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is KVStore implementation based on goleveldb
type LevelDB struct {
	db     *leveldb.DB
	wo     *opt.WriteOptions
	closed atomic.Bool
}

// NewLevelDB opens (or creates) the database under cfg.Path().
func NewLevelDB(cfg Config) (*LevelDB, error) {
	path := cfg.Path()
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		Filter:   filter.NewBloomFilter(10),
		ReadOnly: cfg.ReadOnly,
	})
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		return nil, errors.Wrapf(err, "leveldb at %s is corrupted", path)
	}
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	return &LevelDB{db: db, wo: &opt.WriteOptions{Sync: cfg.Sync}}, nil
}

// Get retrieves a record
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	v, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotExist, "key = %x", key)
		}
		return nil, errors.Wrap(ErrIO, err.Error())
	}
	return v, nil
}

// Has reports whether the key exists
func (l *LevelDB) Has(key []byte) (bool, error) {
	if l.closed.Load() {
		return false, ErrClosed
	}
	ok, err := l.db.Has(key, nil)
	if err != nil {
		return false, errors.Wrap(ErrIO, err.Error())
	}
	return ok, nil
}

// Iterate walks the keys under prefix in ascending order
func (l *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	if l.closed.Load() {
		return ErrClosed
	}
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

// NewBatch starts a batch backed by leveldb.Batch
func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{db: l, b: new(leveldb.Batch)}
}

// Close closes the DB
func (l *LevelDB) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}

type levelBatch struct {
	db *LevelDB
	b  *leveldb.Batch
}

func (b *levelBatch) Set(key, value []byte) { b.b.Put(key, value) }

func (b *levelBatch) Delete(key []byte) { b.b.Delete(key) }

func (b *levelBatch) Len() int { return b.b.Len() }

func (b *levelBatch) Write() error {
	if b.db.closed.Load() {
		return ErrClosed
	}
	defer b.b.Reset()
	if err := b.db.db.Write(b.b, b.db.wo); err != nil {
		return errors.Wrap(ErrIO, err.Error())
	}
	return nil
}
