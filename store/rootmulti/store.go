// Package rootmulti implements the versioned store: named sub-stores kept
// in memory, persisted to a db.KVStore on every commit and published as
// immutable snapshots for concurrent readers.
package rootmulti

import (
	"bytes"
	"sort"
	"sync/atomic"
	"time"

	"github.com/blockberries/cramberry/pkg/cramberry"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachemulti"
	"github.com/blockberries/appcore/store/db"
	"github.com/blockberries/appcore/store/mem"
	"github.com/blockberries/appcore/store/merkle"
)

var (
	// ErrCorrupted is returned by Load when the persisted data does not
	// reproduce the persisted app hash.
	ErrCorrupted = errors.New("state database is corrupted")
	// ErrVersionNotRetained is returned for versions outside the retained window.
	ErrVersionNotRetained = errors.New("version is not retained")
)

var (
	_commitInfoKey = []byte("c/latest")
	_dataPrefix    = []byte("s/")
)

// trackedStore is the working layer of one sub-store. It records which keys
// changed since the last commit.
type trackedStore struct {
	*mem.Store
	dirty map[string]struct{}
	hash  []byte
	stale bool
}

func newTrackedStore() *trackedStore {
	return &trackedStore{Store: mem.New(), dirty: map[string]struct{}{}, stale: true}
}

func (ts *trackedStore) Set(key, value []byte) {
	ts.Store.Set(key, value)
	ts.dirty[string(key)] = struct{}{}
	ts.stale = true
}

func (ts *trackedStore) Delete(key []byte) {
	ts.Store.Delete(key)
	ts.dirty[string(key)] = struct{}{}
	ts.stale = true
}

func (ts *trackedStore) Hash() []byte {
	if ts.stale {
		ts.hash = merkle.HashFromPairs(ts.Pairs())
		ts.stale = false
	}
	return ts.hash
}

// Store is the versioned store. Only one goroutine may drive the write
// path (Load, CacheMultiStore, WorkingHash, Commit); Snapshot and
// SnapshotAt may be called from any goroutine.
type Store struct {
	db     db.KVStore
	logger *zap.Logger

	keys    []*store.StoreKey
	names   map[string]*store.StoreKey
	working map[*store.StoreKey]*trackedStore

	lastCommit     CommitInfo
	initialVersion uint64

	current atomic.Pointer[Snapshot]
	history *lru.Cache
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(rs *Store) error {
		rs.logger = logger
		return nil
	}
}

// WithKeepRecent retains the given number of recent snapshots for
// historical queries.
func WithKeepRecent(n int) Option {
	return func(rs *Store) error {
		if n < 1 {
			n = 1
		}
		cache, err := lru.New(n)
		if err != nil {
			return errors.Wrap(err, "failed to create snapshot cache")
		}
		rs.history = cache
		return nil
	}
}

// NewStore returns a store writing to kv. Sub-stores must be mounted before
// Load is called.
func NewStore(kv db.KVStore, opts ...Option) (*Store, error) {
	rs := &Store{
		db:      kv,
		logger:  log.Logger("store"),
		names:   map[string]*store.StoreKey{},
		working: map[*store.StoreKey]*trackedStore{},
	}
	for _, opt := range append([]Option{WithKeepRecent(10)}, opts...) {
		if err := opt(rs); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// MountStore registers a sub-store. Mounting the same name twice panics.
func (rs *Store) MountStore(key *store.StoreKey) {
	if _, ok := rs.names[key.Name()]; ok {
		panic("store duplicate store name " + key.Name())
	}
	rs.names[key.Name()] = key
	rs.working[key] = newTrackedStore()
	rs.keys = append(rs.keys, key)
	sort.Slice(rs.keys, func(i, j int) bool { return rs.keys[i].Name() < rs.keys[j].Name() })
}

// SetInitialVersion sets the version of the first commit. Only valid
// before anything has been committed.
func (rs *Store) SetInitialVersion(version uint64) error {
	if rs.lastCommit.Version != 0 {
		return errors.Errorf("cannot set initial version %d after version %d was committed", version, rs.lastCommit.Version)
	}
	rs.initialVersion = version
	return nil
}

// Load reads the latest committed version from the database, verifies the
// data against the persisted app hash and publishes it as the current
// snapshot.
func (rs *Store) Load() error {
	raw, err := rs.db.Get(_commitInfoKey)
	switch {
	case errors.Cause(err) == db.ErrNotExist:
		rs.lastCommit = CommitInfo{}
		rs.publish()
		rs.logger.Info("Opened empty state database.")
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to read commit info")
	}
	var info CommitInfo
	if err := cramberry.Unmarshal(raw, &info); err != nil {
		return errors.Wrapf(ErrCorrupted, "failed to decode commit info: %v", err)
	}

	var loadErr error
	if err := rs.db.Iterate(_dataPrefix, func(k, v []byte) bool {
		rest := k[len(_dataPrefix):]
		sep := bytes.IndexByte(rest, '/')
		if sep <= 0 || sep == len(rest)-1 {
			loadErr = errors.Wrapf(ErrCorrupted, "malformed data key %x", k)
			return false
		}
		key, ok := rs.names[string(rest[:sep])]
		if !ok {
			loadErr = errors.Wrapf(ErrCorrupted, "data for unmounted store %q", rest[:sep])
			return false
		}
		rs.working[key].Store.Set(rest[sep+1:], v)
		return true
	}); err != nil {
		return errors.Wrap(err, "failed to load state")
	}
	if loadErr != nil {
		return loadErr
	}

	for _, key := range rs.keys {
		ts := rs.working[key]
		ts.dirty = map[string]struct{}{}
		recorded, ok := info.StoreHash(key.Name())
		if !ok {
			return errors.Wrapf(ErrCorrupted, "store %q missing from commit info at version %d", key.Name(), info.Version)
		}
		if got := ts.Hash(); !bytes.Equal(got, recorded) {
			return errors.Wrapf(ErrCorrupted, "store %q hash %X does not match committed %X", key.Name(), got, recorded)
		}
	}
	if len(info.Stores) != len(rs.keys) {
		return errors.Wrapf(ErrCorrupted, "commit info has %d stores, %d mounted", len(info.Stores), len(rs.keys))
	}
	rs.lastCommit = info
	rs.publish()
	rs.logger.Info("Loaded state database.",
		zap.Uint64("version", info.Version),
		zap.String("appHash", rs.current.Load().AppHash().String()))
	return nil
}

// LastCommitInfo returns the commit info of the latest version.
func (rs *Store) LastCommitInfo() CommitInfo { return rs.lastCommit }

// CacheMultiStore opens a block scope over the working layer.
func (rs *Store) CacheMultiStore() *cachemulti.Store {
	parents := make(map[*store.StoreKey]store.KVStore, len(rs.working))
	for key, ts := range rs.working {
		parents[key] = ts
	}
	return cachemulti.NewStore(parents)
}

// StoreKey resolves a mounted store name.
func (rs *Store) StoreKey(name string) (*store.StoreKey, bool) {
	key, ok := rs.names[name]
	return key, ok
}

func (rs *Store) workingInfo(version uint64) CommitInfo {
	info := CommitInfo{Version: version, Stores: make([]StoreInfo, 0, len(rs.keys))}
	for _, key := range rs.keys {
		info.Stores = append(info.Stores, StoreInfo{Name: key.Name(), Hash: rs.working[key].Hash()})
	}
	return info
}

// WorkingHash returns the app hash the working layer would commit to.
func (rs *Store) WorkingHash() []byte {
	return rs.workingInfo(rs.nextVersion()).Hash()
}

// WorkingVersion returns the version the next commit will write.
func (rs *Store) WorkingVersion() uint64 { return rs.nextVersion() }

func (rs *Store) nextVersion() uint64 {
	if rs.lastCommit.Version == 0 && rs.initialVersion > 1 {
		return rs.initialVersion
	}
	return rs.lastCommit.Version + 1
}

// Commit writes the block scope into the working layer, persists every
// changed key and the new commit info in one atomic batch, and publishes
// the new snapshot. An error means nothing was published; the working
// layer is then ahead of the database and the process must halt.
func (rs *Store) Commit(scope *cachemulti.Store) (CommitInfo, error) {
	start := time.Now()
	if scope != nil {
		scope.Write()
	}
	version := rs.nextVersion()
	info := rs.workingInfo(version)

	batch := rs.db.NewBatch()
	changed := 0
	for _, key := range rs.keys {
		ts := rs.working[key]
		dirty := make([]string, 0, len(ts.dirty))
		for k := range ts.dirty {
			dirty = append(dirty, k)
		}
		sort.Strings(dirty)
		for _, k := range dirty {
			dbKey := dataKey(key.Name(), []byte(k))
			if v := ts.Store.Get([]byte(k)); v != nil {
				batch.Set(dbKey, v)
			} else {
				batch.Delete(dbKey)
			}
		}
		changed += len(dirty)
	}
	raw, err := cramberry.Marshal(info)
	if err != nil {
		return CommitInfo{}, errors.Wrap(err, "failed to encode commit info")
	}
	batch.Set(_commitInfoKey, raw)
	if err := batch.Write(); err != nil {
		return CommitInfo{}, errors.Wrapf(err, "failed to persist version %d", version)
	}

	for _, ts := range rs.working {
		ts.dirty = map[string]struct{}{}
	}
	rs.lastCommit = info
	snap := rs.publish()
	rs.logger.Debug("Committed version.",
		zap.Uint64("version", version),
		zap.Int("changedKeys", changed),
		zap.String("appHash", snap.AppHash().String()),
		zap.Duration("elapsed", time.Since(start)))
	return info, nil
}

// publish clones the working layer into a new immutable snapshot.
func (rs *Store) publish() *Snapshot {
	snap := &Snapshot{
		info:   rs.lastCommit,
		hash:   rs.lastCommit.Hash(),
		stores: make(map[*store.StoreKey]*mem.Store, len(rs.working)),
		names:  rs.names,
	}
	if rs.lastCommit.Version == 0 {
		snap.info = rs.workingInfo(0)
		snap.hash = snap.info.Hash()
	}
	for key, ts := range rs.working {
		snap.stores[key] = ts.Store.Snapshot()
	}
	rs.current.Store(snap)
	rs.history.Add(snap.Version(), snap)
	return snap
}

// Snapshot returns the latest committed snapshot.
func (rs *Store) Snapshot() *Snapshot {
	return rs.current.Load()
}

// SnapshotAt returns a retained snapshot.
func (rs *Store) SnapshotAt(version uint64) (*Snapshot, error) {
	if cur := rs.current.Load(); cur != nil && cur.Version() == version {
		return cur, nil
	}
	if v, ok := rs.history.Get(version); ok {
		return v.(*Snapshot), nil
	}
	return nil, errors.Wrapf(ErrVersionNotRetained, "version %d", version)
}

// Close closes the database.
func (rs *Store) Close() error {
	return rs.db.Close()
}

func dataKey(name string, key []byte) []byte {
	out := make([]byte, 0, len(_dataPrefix)+len(name)+1+len(key))
	out = append(out, _dataPrefix...)
	out = append(out, name...)
	out = append(out, '/')
	return append(out, key...)
}
