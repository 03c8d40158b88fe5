// Package merkle computes the state commitment: an RFC 6962 style binary
// hash tree over ordered key/value pairs, with inclusion proofs.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/blockberries/appcore/store"
)

var (
	leafPrefix  = []byte{0}
	innerPrefix = []byte{1}

	// ErrInvalidProof is returned when a proof does not reproduce the root.
	ErrInvalidProof = errors.New("invalid merkle proof")
)

// EmptyHash is the root of a tree with no leaves.
func EmptyHash() []byte {
	h := sha256.Sum256(nil)
	return h[:]
}

// LeafHash commits to a single pair. The value is pre-hashed so proofs stay
// small for large values.
func LeafHash(key, value []byte) []byte {
	vh := sha256.Sum256(value)
	buf := make([]byte, 0, 1+binary.MaxVarintLen64*2+len(key)+len(vh))
	buf = append(buf, leafPrefix...)
	buf = binary.AppendUvarint(buf, uint64(len(key)))
	buf = append(buf, key...)
	buf = binary.AppendUvarint(buf, uint64(len(vh)))
	buf = append(buf, vh[:]...)
	h := sha256.Sum256(buf)
	return h[:]
}

func innerHash(left, right []byte) []byte {
	h := sha256.New()
	h.Write(innerPrefix)
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// splitPoint returns the largest power of two strictly less than n.
func splitPoint(n int) int {
	if n < 1 {
		panic("trying to split a tree with size < 1")
	}
	k := 1 << (bits.Len(uint(n)) - 1)
	if k == n {
		k >>= 1
	}
	return k
}

func hashFromLeaves(leaves [][]byte) []byte {
	switch len(leaves) {
	case 0:
		return EmptyHash()
	case 1:
		return leaves[0]
	default:
		k := splitPoint(len(leaves))
		return innerHash(hashFromLeaves(leaves[:k]), hashFromLeaves(leaves[k:]))
	}
}

// HashFromPairs returns the root over pairs, which must be sorted by key.
func HashFromPairs(pairs []store.KVPair) []byte {
	leaves := make([][]byte, len(pairs))
	for i, p := range pairs {
		leaves[i] = LeafHash(p.Key, p.Value)
	}
	return hashFromLeaves(leaves)
}

// Proof is an inclusion proof for one leaf.
type Proof struct {
	Total    uint64   `cramberry:"1"`
	Index    uint64   `cramberry:"2"`
	LeafHash []byte   `cramberry:"3"`
	Aunts    [][]byte `cramberry:"4"`
}

// ProofFromPairs builds the proof for the pair whose key equals key. The
// boolean is false if the key is absent.
func ProofFromPairs(pairs []store.KVPair, key []byte) (*Proof, bool) {
	leaves := make([][]byte, len(pairs))
	index := -1
	for i, p := range pairs {
		leaves[i] = LeafHash(p.Key, p.Value)
		if bytes.Equal(p.Key, key) {
			index = i
		}
	}
	if index < 0 {
		return nil, false
	}
	return &Proof{
		Total:    uint64(len(leaves)),
		Index:    uint64(index),
		LeafHash: leaves[index],
		Aunts:    aunts(leaves, index),
	}, true
}

// aunts returns the sibling hashes from the leaf up to the root.
func aunts(leaves [][]byte, index int) [][]byte {
	if len(leaves) <= 1 {
		return nil
	}
	k := splitPoint(len(leaves))
	if index < k {
		return append(aunts(leaves[:k], index), hashFromLeaves(leaves[k:]))
	}
	return append(aunts(leaves[k:], index-k), hashFromLeaves(leaves[:k]))
}

// ComputeRoot folds the aunts into the root hash.
func (p *Proof) ComputeRoot() ([]byte, error) {
	if p.Total == 0 || p.Total > math.MaxInt {
		return nil, errors.Wrapf(ErrInvalidProof, "invalid total %d", p.Total)
	}
	if p.Index >= p.Total {
		return nil, errors.Wrapf(ErrInvalidProof, "index %d out of range %d", p.Index, p.Total)
	}
	if depth := proofDepth(p.Index, p.Total); uint64(len(p.Aunts)) != depth {
		return nil, errors.Wrapf(ErrInvalidProof, "%d aunts, expected %d", len(p.Aunts), depth)
	}
	return computeFromAunts(p.Index, p.Total, p.LeafHash, p.Aunts)
}

// proofDepth is the number of aunts on the path to leaf index of a tree
// with total leaves.
func proofDepth(index, total uint64) uint64 {
	var depth uint64
	for total > 1 {
		k := uint64(splitPoint(int(total)))
		if index < k {
			total = k
		} else {
			index -= k
			total -= k
		}
		depth++
	}
	return depth
}

func computeFromAunts(index, total uint64, leaf []byte, aunts [][]byte) ([]byte, error) {
	switch total {
	case 1:
		if len(aunts) != 0 {
			return nil, errors.Wrap(ErrInvalidProof, "unexpected aunts")
		}
		return leaf, nil
	default:
		if len(aunts) == 0 {
			return nil, errors.Wrap(ErrInvalidProof, "missing aunts")
		}
		last := aunts[len(aunts)-1]
		rest := aunts[:len(aunts)-1]
		k := uint64(splitPoint(int(total)))
		if index < k {
			left, err := computeFromAunts(index, k, leaf, rest)
			if err != nil {
				return nil, err
			}
			return innerHash(left, last), nil
		}
		right, err := computeFromAunts(index-k, total-k, leaf, rest)
		if err != nil {
			return nil, err
		}
		return innerHash(last, right), nil
	}
}

// Verify checks that the proof commits key and value under root.
func (p *Proof) Verify(root, key, value []byte) error {
	if !bytes.Equal(p.LeafHash, LeafHash(key, value)) {
		return errors.Wrap(ErrInvalidProof, "leaf hash mismatch")
	}
	computed, err := p.ComputeRoot()
	if err != nil {
		return err
	}
	if !bytes.Equal(computed, root) {
		return errors.Wrapf(ErrInvalidProof, "root %X, expected %X", computed, root)
	}
	return nil
}
