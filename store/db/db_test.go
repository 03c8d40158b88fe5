package db

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func openAll(t *testing.T) map[string]KVStore {
	stores := map[string]KVStore{}
	for _, backend := range []string{BackendLevelDB, BackendBolt, BackendPebble, BackendMem} {
		kv, err := New(Config{Backend: backend, Dir: t.TempDir(), Sync: true})
		require.NoError(t, err, backend)
		t.Cleanup(func() { kv.Close() })
		stores[backend] = kv
	}
	return stores
}

func TestKVStore_GetSetDelete(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			_, err := kv.Get([]byte("missing"))
			require.Equal(ErrNotExist, errors.Cause(err))
			ok, err := kv.Has([]byte("missing"))
			require.NoError(err)
			require.False(ok)

			b := kv.NewBatch()
			b.Set([]byte("k1"), []byte("v1"))
			b.Set([]byte("k2"), []byte("v2"))
			b.Set([]byte("k1"), []byte("v1b"))
			require.Equal(3, b.Len())
			require.NoError(b.Write())
			require.Equal(0, b.Len())

			v, err := kv.Get([]byte("k1"))
			require.NoError(err)
			require.Equal([]byte("v1b"), v)

			b = kv.NewBatch()
			b.Delete([]byte("k2"))
			require.NoError(b.Write())
			ok, err = kv.Has([]byte("k2"))
			require.NoError(err)
			require.False(ok)
		})
	}
}

func TestKVStore_IteratePrefix(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			b := kv.NewBatch()
			for i := 0; i < 5; i++ {
				b.Set([]byte(fmt.Sprintf("a/%d", 4-i)), []byte{byte(i)})
				b.Set([]byte(fmt.Sprintf("b/%d", i)), []byte{byte(i)})
			}
			b.Set([]byte{'a', 0xff}, []byte("edge"))
			require.NoError(b.Write())

			var keys []string
			require.NoError(kv.Iterate([]byte("a/"), func(k, _ []byte) bool {
				keys = append(keys, string(k))
				return true
			}))
			require.Equal([]string{"a/0", "a/1", "a/2", "a/3", "a/4"}, keys)

			count := 0
			require.NoError(kv.Iterate(nil, func(_, _ []byte) bool {
				count++
				return count < 3
			}))
			require.Equal(3, count)
		})
	}
}

func TestKVStore_Reopen(t *testing.T) {
	for _, backend := range []string{BackendLevelDB, BackendBolt, BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			require := require.New(t)
			cfg := Config{Backend: backend, Dir: t.TempDir(), Sync: true}

			kv, err := New(cfg)
			require.NoError(err)
			b := kv.NewBatch()
			b.Set([]byte("durable"), []byte("yes"))
			require.NoError(b.Write())
			require.NoError(kv.Close())

			_, err = kv.Get([]byte("durable"))
			require.Equal(ErrClosed, err)

			kv, err = New(cfg)
			require.NoError(err)
			defer kv.Close()
			v, err := kv.Get([]byte("durable"))
			require.NoError(err)
			require.Equal([]byte("yes"), v)
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "rocksdb"})
	require.Equal(t, ErrUnknownBackend, errors.Cause(err))
}

func TestPrefixEnd(t *testing.T) {
	require.Nil(t, prefixEnd(nil))
	require.Equal(t, []byte("b"), prefixEnd([]byte("a")))
	require.Equal(t, []byte{'b'}, prefixEnd([]byte{'a', 0xff}))
	require.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}
