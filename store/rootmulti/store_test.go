package rootmulti

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/db"
)

var (
	bankKey = store.NewKVStoreKey("bank")
	authKey = store.NewKVStoreKey("auth")
)

func newStore(t *testing.T, kv db.KVStore, opts ...Option) *Store {
	t.Helper()
	rs, err := NewStore(kv, opts...)
	require.NoError(t, err)
	rs.MountStore(bankKey)
	rs.MountStore(authKey)
	require.NoError(t, rs.Load())
	return rs
}

func commitSet(t *testing.T, rs *Store, key *store.StoreKey, k, v string) CommitInfo {
	t.Helper()
	scope := rs.CacheMultiStore()
	scope.GetKVStore(key).Set([]byte(k), []byte(v))
	info, err := rs.Commit(scope)
	require.NoError(t, err)
	return info
}

func TestStore_CommitVersions(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB())
	require.Equal(uint64(0), rs.Snapshot().Version())

	info1 := commitSet(t, rs, bankKey, "alice", "100")
	require.Equal(uint64(1), info1.Version)
	info2 := commitSet(t, rs, bankKey, "bob", "30")
	require.Equal(uint64(2), info2.Version)
	require.NotEqual(info1.Hash(), info2.Hash())

	snap := rs.Snapshot()
	require.Equal(uint64(2), snap.Version())
	require.Equal(info2.Hash(), snap.Hash())
	require.Equal([]byte("30"), snap.GetKVStore(bankKey).Get([]byte("bob")))
}

func TestStore_Determinism(t *testing.T) {
	require := require.New(t)

	a := newStore(t, db.NewMemDB())
	b := newStore(t, db.NewMemDB())
	for i := 0; i < 5; i++ {
		k, v := fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)
		require.Equal(commitSet(t, a, authKey, k, v).Hash(), commitSet(t, b, authKey, k, v).Hash())
	}
}

func TestStore_DurableAcrossRestart(t *testing.T) {
	for _, backend := range []string{db.BackendLevelDB, db.BackendBolt, db.BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			require := require.New(t)
			cfg := db.Config{Backend: backend, Dir: t.TempDir(), Sync: true}

			kv, err := db.New(cfg)
			require.NoError(err)
			rs := newStore(t, kv)
			commitSet(t, rs, bankKey, "alice", "100")
			commitSet(t, rs, authKey, "alice", "seq")

			scope := rs.CacheMultiStore()
			scope.GetKVStore(bankKey).Delete([]byte("alice"))
			info, err := rs.Commit(scope)
			require.NoError(err)
			require.NoError(rs.Close())

			kv, err = db.New(cfg)
			require.NoError(err)
			reopened := newStore(t, kv)
			defer reopened.Close()
			snap := reopened.Snapshot()
			require.Equal(uint64(3), snap.Version())
			require.Equal(info.Hash(), snap.Hash())
			require.Nil(snap.GetKVStore(bankKey).Get([]byte("alice")))
			require.Equal([]byte("seq"), snap.GetKVStore(authKey).Get([]byte("alice")))
		})
	}
}

func TestStore_LoadDetectsCorruption(t *testing.T) {
	require := require.New(t)

	kv := db.NewMemDB()
	rs := newStore(t, kv)
	commitSet(t, rs, bankKey, "alice", "100")

	b := kv.NewBatch()
	b.Set(dataKey("bank", []byte("alice")), []byte("1000000"))
	require.NoError(b.Write())

	reopened, err := NewStore(kv)
	require.NoError(err)
	reopened.MountStore(bankKey)
	reopened.MountStore(authKey)
	require.Equal(ErrCorrupted, errors.Cause(reopened.Load()))
}

func TestStore_SnapshotIsolation(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB())
	commitSet(t, rs, bankKey, "alice", "100")
	committed := rs.Snapshot()

	block := rs.CacheMultiStore()
	block.GetKVStore(bankKey).Set([]byte("alice"), []byte("70"))
	require.Equal([]byte("100"), committed.GetKVStore(bankKey).Get([]byte("alice")))

	_, err := rs.Commit(block)
	require.NoError(err)
	require.Equal([]byte("100"), committed.GetKVStore(bankKey).Get([]byte("alice")))
	require.Equal([]byte("70"), rs.Snapshot().GetKVStore(bankKey).Get([]byte("alice")))
}

func TestStore_ConcurrentReadsDuringCommit(t *testing.T) {
	rs := newStore(t, db.NewMemDB())
	commitSet(t, rs, bankKey, "alice", "0")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := rs.Snapshot()
				want := fmt.Sprintf("%d", snap.Version()-1)
				if got := string(snap.GetKVStore(bankKey).Get([]byte("alice"))); got != want {
					t.Errorf("version %d: got %q, want %q", snap.Version(), got, want)
					return
				}
			}
		}()
	}
	for i := 1; i <= 50; i++ {
		commitSet(t, rs, bankKey, "alice", fmt.Sprintf("%d", i))
	}
	close(stop)
	wg.Wait()
}

func TestStore_SnapshotAt(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB(), WithKeepRecent(2))
	for i := 1; i <= 4; i++ {
		commitSet(t, rs, bankKey, "alice", fmt.Sprintf("%d", i))
	}
	snap, err := rs.SnapshotAt(3)
	require.NoError(err)
	require.Equal([]byte("3"), snap.GetKVStore(bankKey).Get([]byte("alice")))

	_, err = rs.SnapshotAt(1)
	require.Equal(ErrVersionNotRetained, errors.Cause(err))
}

func TestStore_InitialVersion(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB())
	require.NoError(rs.SetInitialVersion(10))
	require.Equal(uint64(10), commitSet(t, rs, bankKey, "a", "b").Version)
	require.Equal(uint64(11), commitSet(t, rs, bankKey, "a", "c").Version)
	require.Error(rs.SetInitialVersion(20))
}

func TestStore_WorkingHashMatchesCommit(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB())
	genesis := rs.CacheMultiStore()
	genesis.GetKVStore(authKey).Set([]byte("params"), []byte("x"))
	genesis.Write()

	working := rs.WorkingHash()
	info, err := rs.Commit(nil)
	require.NoError(err)
	require.Equal(working, info.Hash())
}

type failingBatch struct{ db.Batch }

func (failingBatch) Write() error { return errors.Wrap(db.ErrIO, "disk full") }

type failingDB struct {
	db.KVStore
	fail bool
}

func (f *failingDB) NewBatch() db.Batch {
	if f.fail {
		return failingBatch{f.KVStore.NewBatch()}
	}
	return f.KVStore.NewBatch()
}

func TestStore_CommitFailureDoesNotPublish(t *testing.T) {
	require := require.New(t)

	kv := &failingDB{KVStore: db.NewMemDB()}
	rs := newStore(t, kv)
	before := commitSet(t, rs, bankKey, "alice", "100")

	kv.fail = true
	scope := rs.CacheMultiStore()
	scope.GetKVStore(bankKey).Set([]byte("alice"), []byte("70"))
	_, err := rs.Commit(scope)
	require.Equal(db.ErrIO, errors.Cause(err))
	require.Equal(before.Version, rs.Snapshot().Version())
	require.Equal(before.Hash(), rs.Snapshot().Hash())
}

func TestSnapshot_Prove(t *testing.T) {
	require := require.New(t)

	rs := newStore(t, db.NewMemDB())
	for i := 0; i < 6; i++ {
		commitSet(t, rs, bankKey, fmt.Sprintf("acct%d", i), fmt.Sprintf("%d", i*10))
	}
	commitSet(t, rs, authKey, "acct0", "seq")

	snap := rs.Snapshot()
	value, proof, err := snap.Prove("bank", []byte("acct3"))
	require.NoError(err)
	require.Equal([]byte("30"), value)
	require.NoError(VerifyProof(snap.Hash(), "bank", []byte("acct3"), value, proof))
	require.Error(VerifyProof(snap.Hash(), "bank", []byte("acct3"), []byte("31"), proof))
	require.Error(VerifyProof(snap.Hash(), "auth", []byte("acct3"), value, proof))

	_, _, err = snap.Prove("bank", []byte("nobody"))
	require.Equal(ErrKeyNotFound, errors.Cause(err))
}
