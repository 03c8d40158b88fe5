package local

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/app"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/server"
	"github.com/blockberries/appcore/store/db"
	apptest "github.com/blockberries/appcore/testing"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/counter"
)

func newConnection(t *testing.T) (*Connection, *apptest.Account) {
	t.Helper()
	a, err := app.New(db.NewMemDB(), app.Options{})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	conn := NewConnection(a, server.WithHaltHandler(func(err *appcore.HaltError) {
		t.Errorf("halted: %v", err)
	}))
	t.Cleanup(func() { _ = conn.Close() })

	alice := apptest.NewAccount("alice")
	appState := apptest.NewGenesis().WithAccount(alice, sdk.NewCoin64(apptest.Denom, 1000)).AppState(t)
	ctx := context.Background()
	if _, err := conn.Info(ctx); err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if _, err := conn.InitChain(ctx, apptest.DefaultInitChain(appState)); err != nil {
		t.Fatalf("init chain failed: %v", err)
	}
	return conn, alice
}

func TestLocalConnection_FullCycle(t *testing.T) {
	conn, alice := newConnection(t)
	ctx := context.Background()

	if conn.AsSimulator() == nil {
		t.Error("expected the app to support simulation")
	}

	tx := alice.NextTx(t, apptest.DefaultChainID, &counter.MsgIncrement{Sender: alice.Address, By: 42})
	if _, err := conn.BeginBlock(ctx, types.BeginBlockRequest{Height: 1, ChainID: apptest.DefaultChainID}); err != nil {
		t.Fatalf("begin block failed: %v", err)
	}
	outcome, err := conn.DeliverTx(ctx, tx)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if !outcome.OK() {
		t.Fatalf("tx failed: %s", outcome.Log)
	}
	if _, err := conn.EndBlock(ctx, types.EndBlockRequest{Height: 1}); err != nil {
		t.Fatalf("end block failed: %v", err)
	}
	if _, err := conn.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	result, err := conn.Query(ctx, types.StateQuery{Path: "/counter/count"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.Code != 0 {
		t.Fatalf("query failed: %s", result.Info)
	}
	if count := binary.BigEndian.Uint64(result.Value); count != 42 {
		t.Errorf("expected count=42, got %d", count)
	}
}

func TestLocalConnection_CheckTxConcurrent(t *testing.T) {
	conn, alice := newConnection(t)
	ctx := context.Background()

	// Genesis state becomes visible to CheckTx with the first commit.
	if _, err := conn.BeginBlock(ctx, types.BeginBlockRequest{Height: 1, ChainID: apptest.DefaultChainID}); err != nil {
		t.Fatalf("begin block failed: %v", err)
	}
	if _, err := conn.EndBlock(ctx, types.EndBlockRequest{Height: 1}); err != nil {
		t.Fatalf("end block failed: %v", err)
	}
	if _, err := conn.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	tx := alice.Tx(t, apptest.DefaultChainID, apptest.DefaultTxOptions(), &counter.MsgIncrement{Sender: alice.Address, By: 1})

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			v, err := conn.CheckTx(context.Background(), tx, types.MempoolFirstSeen)
			if err != nil {
				t.Errorf("CheckTx error: %v", err)
				return
			}
			if !v.Accepted() {
				t.Errorf("CheckTx rejected: %s", v.Info)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
