package mem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore/store"
)

func keys(it store.Iterator) []string {
	defer it.Close()
	var out []string
	for ; it.Valid(); it.Next() {
		out = append(out, string(it.Key()))
	}
	return out
}

func TestStore_Ranges(t *testing.T) {
	require := require.New(t)

	s := New()
	for _, k := range []string{"d", "a", "c", "b", "e"} {
		s.Set([]byte(k), []byte("v"+k))
	}
	require.Equal([]string{"a", "b", "c", "d", "e"}, keys(s.Iterator(nil, nil)))
	require.Equal([]string{"b", "c"}, keys(s.Iterator([]byte("b"), []byte("d"))))
	require.Equal([]string{"a", "b"}, keys(s.Iterator(nil, []byte("c"))))
	require.Equal([]string{"e", "d", "c"}, keys(s.ReverseIterator([]byte("c"), nil)))
	require.Empty(keys(s.Iterator([]byte("d"), []byte("b"))))
}

func TestStore_SnapshotIsolation(t *testing.T) {
	require := require.New(t)

	s := New()
	s.Set([]byte("k"), []byte("v1"))
	snap := s.Snapshot()

	s.Set([]byte("k"), []byte("v2"))
	s.Set([]byte("new"), []byte("x"))
	require.Equal([]byte("v1"), snap.Get([]byte("k")))
	require.False(snap.Has([]byte("new")))
	require.Equal([]byte("v2"), s.Get([]byte("k")))

	require.Panics(func() { snap.Set([]byte("k"), []byte("v3")) })
}

func TestStore_InvalidKeyPanics(t *testing.T) {
	s := New()
	require.Panics(t, func() { s.Get(nil) })
	require.Panics(t, func() { s.Set([]byte{}, []byte("v")) })
	require.Panics(t, func() { s.Set([]byte("k"), nil) })
}
