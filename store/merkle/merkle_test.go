package merkle

import (
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/appcore/store"
)

func pairs(n int) []store.KVPair {
	out := make([]store.KVPair, n)
	for i := range out {
		out[i] = store.KVPair{Key: []byte(fmt.Sprintf("key%03d", i)), Value: []byte(fmt.Sprintf("value%d", i))}
	}
	return out
}

func TestSplitPoint(t *testing.T) {
	for n, want := range map[int]int{2: 1, 3: 2, 4: 2, 5: 4, 8: 4, 9: 8, 100: 64} {
		require.Equal(t, want, splitPoint(n), "n=%d", n)
	}
}

func TestHashFromPairs_Deterministic(t *testing.T) {
	require := require.New(t)

	require.Equal(EmptyHash(), HashFromPairs(nil))
	require.Equal(LeafHash([]byte("key000"), []byte("value0")), HashFromPairs(pairs(1)))

	a := HashFromPairs(pairs(7))
	b := HashFromPairs(pairs(7))
	require.Equal(a, b)

	changed := pairs(7)
	changed[3].Value = []byte("other")
	require.NotEqual(a, HashFromPairs(changed))
}

func TestLeafHash_NoAmbiguity(t *testing.T) {
	// the length prefix keeps ("ab","c") and ("a","bc") apart
	require.NotEqual(t, LeafHash([]byte("ab"), []byte("c")), LeafHash([]byte("a"), []byte("bc")))
}

func TestProof_AllSizes(t *testing.T) {
	for n := 1; n <= 17; n++ {
		ps := pairs(n)
		root := HashFromPairs(ps)
		for _, p := range ps {
			proof, ok := ProofFromPairs(ps, p.Key)
			require.True(t, ok)
			require.NoError(t, proof.Verify(root, p.Key, p.Value), "n=%d key=%s", n, p.Key)
		}
	}
}

func TestProof_Rejects(t *testing.T) {
	require := require.New(t)

	ps := pairs(5)
	root := HashFromPairs(ps)
	proof, ok := ProofFromPairs(ps, ps[2].Key)
	require.True(ok)

	require.Error(proof.Verify(root, ps[2].Key, []byte("forged")))
	require.Error(proof.Verify(EmptyHash(), ps[2].Key, ps[2].Value))

	proof.Index = 9
	require.Error(proof.Verify(root, ps[2].Key, ps[2].Value))

	_, ok = ProofFromPairs(ps, []byte("absent"))
	require.False(ok)
}

func TestProof_RejectsMalformed(t *testing.T) {
	ps := pairs(5)
	root := HashFromPairs(ps)
	leaf := LeafHash(ps[2].Key, ps[2].Value)
	valid, ok := ProofFromPairs(ps, ps[2].Key)
	require.True(t, ok)

	tests := []struct {
		name  string
		proof Proof
	}{
		{"zero total", Proof{Total: 0, Index: 0, LeafHash: leaf}},
		{"huge total", Proof{Total: math.MaxUint64, Index: 0, LeafHash: leaf, Aunts: [][]byte{make([]byte, 32)}}},
		{"total above max int", Proof{Total: math.MaxInt + 1, Index: 3, LeafHash: leaf, Aunts: [][]byte{make([]byte, 32)}}},
		{"missing aunt", Proof{Total: valid.Total, Index: valid.Index, LeafHash: leaf, Aunts: valid.Aunts[1:]}},
		{"extra aunt", Proof{Total: valid.Total, Index: valid.Index, LeafHash: leaf, Aunts: append(append([][]byte{}, valid.Aunts...), make([]byte, 32))}},
		{"single leaf with aunts", Proof{Total: 1, Index: 0, LeafHash: leaf, Aunts: [][]byte{make([]byte, 32)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				err := tt.proof.Verify(root, ps[2].Key, ps[2].Value)
				require.True(t, errors.Is(err, ErrInvalidProof), "%v", err)
			})
		})
	}
}
