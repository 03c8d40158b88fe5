// Package testutil builds contexts over in-memory stores for module
// tests.
package testutil

import (
	"time"

	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store"
	"github.com/blockberries/appcore/store/cachemulti"
	"github.com/blockberries/appcore/store/mem"
)

// DefaultChainID is the chain id of contexts built here.
const DefaultChainID = "test-chain"

// NewContext returns a deliver-mode context at height 1 over a fresh
// memory store per key.
func NewContext(keys ...*store.StoreKey) sdk.Context {
	parents := make(map[*store.StoreKey]store.KVStore, len(keys))
	for _, key := range keys {
		parents[key] = mem.New()
	}
	header := sdk.Header{
		ChainID: DefaultChainID,
		Height:  1,
		Time:    time.Unix(1700000000, 0).UTC(),
	}
	return sdk.NewContext(cachemulti.NewStore(parents), header, sdk.ExecModeDeliver, nil)
}
