package apptest

import (
	"context"
	"sync"
	"testing"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/types"
)

// RunComplianceSuite runs a standard compliance test suite against an
// application to verify correct lifecycle behavior.
//
// The factory function should return a fresh application instance with
// empty state for each call; appState is passed to InitChain.
func RunComplianceSuite(t *testing.T, factory func(t *testing.T) appcore.Application, appState []byte) {
	t.Helper()

	start := func(t *testing.T) *Harness {
		h := NewHarness(t, factory(t))
		h.InitDefault(appState)
		return h
	}

	t.Run("info_on_empty_state", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		info := h.Info()
		if info.LastVersion != 0 {
			t.Errorf("fresh app reports version %d", info.LastVersion)
		}
	})

	t.Run("init_chain_returns_app_hash", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		resp := h.InitDefault(appState)
		if resp.AppHash.IsZero() {
			t.Error("InitChain should return a non-zero AppHash")
		}
	})

	t.Run("block_cycle", func(t *testing.T) {
		h := start(t)
		var last uint64
		for i := uint64(1); i <= 5; i++ {
			res := h.ExecuteBlock(MakeEmptyBlock(i))
			if res.Commit.AppHash.IsZero() {
				t.Errorf("height %d: zero app hash", i)
			}
			if res.Commit.Version <= last {
				t.Errorf("height %d: version %d not above %d", i, res.Commit.Version, last)
			}
			last = res.Commit.Version
		}
		if info := h.Info(); info.LastVersion != last {
			t.Errorf("Info reports version %d, last commit was %d", info.LastVersion, last)
		}
	})

	t.Run("empty_blocks_deterministic", func(t *testing.T) {
		h1, h2 := start(t), start(t)
		for i := uint64(1); i <= 3; i++ {
			block := MakeEmptyBlock(i)
			r1 := h1.ExecuteBlock(block)
			r2 := h2.ExecuteBlock(block)
			if r1.Commit.AppHash != r2.Commit.AppHash {
				t.Errorf("height %d: non-deterministic: %s != %s",
					i, r1.Commit.AppHash, r2.Commit.AppHash)
			}
		}
	})

	t.Run("deterministic_with_txs", func(t *testing.T) {
		h1, h2 := start(t), start(t)
		tx := types.Tx([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
		block := MakeBlock(1, tx)

		r1 := h1.ExecuteBlock(block)
		r2 := h2.ExecuteBlock(block)
		if r1.Commit.AppHash != r2.Commit.AppHash {
			t.Errorf("non-deterministic with txs: %s != %s",
				r1.Commit.AppHash, r2.Commit.AppHash)
		}
		if len(r1.Txs) != 1 || len(r2.Txs) != 1 {
			t.Fatalf("outcome count mismatch: %d, %d", len(r1.Txs), len(r2.Txs))
		}
		if r1.Txs[0].Code != r2.Txs[0].Code || r1.Txs[0].GasUsed != r2.Txs[0].GasUsed {
			t.Errorf("non-deterministic outcome: %+v != %+v", r1.Txs[0], r2.Txs[0])
		}
	})

	t.Run("one_outcome_per_tx", func(t *testing.T) {
		h := start(t)
		txs := []types.Tx{
			{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x02, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			{0x03, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		}
		res := h.ExecuteBlock(MakeBlock(1, txs...))
		if len(res.Txs) != 3 {
			t.Fatalf("expected 3 tx outcomes, got %d", len(res.Txs))
		}
	})

	t.Run("concurrent_checktx", func(t *testing.T) {
		h := start(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tx := types.Tx([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
				if _, err := h.Server().CheckTx(context.Background(), tx, types.MempoolFirstSeen); err != nil {
					t.Errorf("concurrent CheckTx failed: %v", err)
				}
			}()
		}
		wg.Wait()
	})

	t.Run("concurrent_query_during_block", func(t *testing.T) {
		h := start(t)
		h.ExecuteBlock(MakeEmptyBlock(1))

		block := MakeBlock(2, types.Tx{0x01})
		h.BeginBlock(block)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := h.Server().Query(context.Background(), types.StateQuery{Path: "/app/version"})
				if err != nil {
					t.Errorf("concurrent Query failed: %v", err)
					return
				}
				if res.Height != 1 {
					t.Errorf("query during block 2 answered at height %d", res.Height)
				}
			}()
		}
		h.DeliverTx(block.Txs[0])
		wg.Wait()
		h.EndBlock(2)
		h.Commit()
	})

	t.Run("query_returns_height", func(t *testing.T) {
		h := start(t)
		h.ExecuteBlock(MakeEmptyBlock(1))
		h.ExecuteBlock(MakeEmptyBlock(2))

		result := h.Query("/app/version", nil)
		if result.Height != 2 {
			t.Errorf("query height should be 2 after two commits, got %d", result.Height)
		}
	})

	t.Run("call_order_enforced", func(t *testing.T) {
		h := start(t)
		defer func() {
			if r := recover(); r == nil {
				t.Error("DeliverTx outside a block should panic")
			}
		}()
		_, _ = h.Server().DeliverTx(context.Background(), types.Tx{0x01})
	})
}
