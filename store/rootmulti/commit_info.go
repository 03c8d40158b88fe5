package rootmulti

import (
	"sort"

	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/merkle"
)

// StoreInfo is the commitment of one sub-store.
type StoreInfo struct {
	Name string `cramberry:"1"`
	Hash []byte `cramberry:"2"`
}

// CommitInfo is persisted with every version. Its Hash is the app hash.
type CommitInfo struct {
	Version uint64      `cramberry:"1"`
	Stores  []StoreInfo `cramberry:"2"`
}

func (ci CommitInfo) pairs() []store.KVPair {
	infos := make([]StoreInfo, len(ci.Stores))
	copy(infos, ci.Stores)
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	pairs := make([]store.KVPair, len(infos))
	for i, si := range infos {
		pairs[i] = store.KVPair{Key: []byte(si.Name), Value: si.Hash}
	}
	return pairs
}

// Hash returns the root over the sorted (name, hash) pairs.
func (ci CommitInfo) Hash() []byte {
	return merkle.HashFromPairs(ci.pairs())
}

// StoreHash returns the recorded hash of the named store.
func (ci CommitInfo) StoreHash(name string) ([]byte, bool) {
	for _, si := range ci.Stores {
		if si.Name == name {
			return si.Hash, true
		}
	}
	return nil, false
}
